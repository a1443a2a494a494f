// Command sofsprobe inspects a SOFS volume without mounting it, printing
// superblock, inode, or directory information for offline debugging.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rafaelferreirapt/sofs14-sub000/pkg/elog"
	"github.com/rafaelferreirapt/sofs14-sub000/pkg/sofs"
)

var log elog.View

var rootCmd = &cobra.Command{
	Use:   "sofsprobe",
	Short: "Inspect a SOFS volume offline",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := &elog.CLI{DisableTTY: true}
		logrus.SetFormatter(logger)
		logrus.SetLevel(logrus.TraceLevel)
		log = logger
		return nil
	},
}

var superCmd = &cobra.Command{
	Use:   "super DEVICE",
	Short: "Print superblock fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := mount(args[0])
		if err != nil {
			return err
		}
		defer fs.Unmount()

		if fs.WasDirty() {
			log.Warnf("volume was not cleanly unmounted last time")
		}

		info, err := fs.StatFS()
		if err != nil {
			return err
		}

		log.Printf("Inodes:        \t%d free / %d total", info.FreeInodes, info.TotalInodes)
		log.Printf("Clusters:      \t%d free / %d total", info.FreeClusters, info.TotalClusters)
		log.Printf("Cluster size:  \t%d bytes", info.ClusterSize)
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat DEVICE PATH",
	Short: "Print attributes of a path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := mount(args[0])
		if err != nil {
			return err
		}
		defer fs.Unmount()

		ino, _, err := fs.ResolvePath(args[1], 0, 0)
		if err != nil {
			return err
		}
		attr, err := fs.GetAttr(ino)
		if err != nil {
			return err
		}

		log.Printf("File:   \t%s", filepath.Base(args[1]))
		log.Printf("Inode:  \t%d", ino)
		log.Printf("Type:   \t%s", typeName(attr.Type))
		log.Printf("Size:   \t%d", attr.Size)
		log.Printf("Links:  \t%d", attr.Links)
		log.Printf("Access: \t%#o", attr.Perm)
		log.Printf("Uid/Gid:\t%d/%d", attr.Owner, attr.Group)
		log.Printf("Atime:  \t%s", time.Unix(int64(attr.ATime), 0))
		log.Printf("Mtime:  \t%s", time.Unix(int64(attr.MTime), 0))
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls DEVICE PATH",
	Short: "List directory entries",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := mount(args[0])
		if err != nil {
			return err
		}
		defer fs.Unmount()

		path := "/"
		if len(args) > 1 {
			path = args[1]
		}

		dir, _, err := fs.ResolvePath(path, 0, 0)
		if err != nil {
			return err
		}
		names, _, err := fs.ReadDirNames(dir)
		if err != nil {
			return err
		}
		log.Printf("%s", strings.Join(names, "\n"))
		return nil
	},
}

func typeName(t sofs.FileType) string {
	switch t {
	case sofs.TypeDirectory:
		return "directory"
	case sofs.TypeSymlink:
		return "symlink"
	default:
		return "regular file"
	}
}

func mount(device string) (*sofs.FileSystem, error) {
	fs, err := sofs.Mount(device, sofs.MountOptions{CacheBlocks: 64})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}
	return fs, nil
}

func main() {
	rootCmd.AddCommand(superCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(lsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
