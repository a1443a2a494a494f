// Command sofsmount serves a SOFS volume over FUSE.
package main

import (
	"context"
	"fmt"
	"os"

	isatty "github.com/mattn/go-isatty"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rafaelferreirapt/sofs14-sub000/pkg/elog"
	"github.com/rafaelferreirapt/sofs14-sub000/pkg/fsadapter"
	"github.com/rafaelferreirapt/sofs14-sub000/pkg/sofs"
	"github.com/rafaelferreirapt/sofs14-sub000/pkg/sofsconfig"
)

var log elog.View

var (
	flagDebug     bool
	flagCacheSize int
	flagReadOnly  bool
	flagConfig    string
)

var rootCmd = &cobra.Command{
	Use:   "sofsmount DEVICE MOUNTPOINT",
	Short: "Mount a SOFS volume over FUSE",
	Long:  "sofsmount opens a SOFS volume and serves it as a FUSE file system until the mountpoint is unmounted.",
	Args:  cobra.ExactArgs(2),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := &elog.CLI{}
		if flagDebug {
			logger.IsDebug = true
			logger.IsVerbose = true
		}
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			logger.DisableColors = true
		}
		logrus.SetFormatter(logger)
		logrus.SetLevel(logrus.TraceLevel)
		log = logger
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		device := args[0]
		mountpoint := args[1]

		if !cmd.Flags().Changed("cache") {
			flagCacheSize = sofsconfig.Load(flagConfig, log).CacheBlocks
		}

		fs, err := sofs.Mount(device, sofs.MountOptions{CacheBlocks: flagCacheSize})
		if err != nil {
			return fmt.Errorf("failed to mount %s: %w", device, err)
		}
		if fs.WasDirty() {
			log.Warnf("%s was not cleanly unmounted last time; mounting anyway", device)
		}

		adapter := fsadapter.New(fs, log)

		cfg := &fuse.MountConfig{
			ReadOnly:                flagReadOnly,
			DisableWritebackCaching: true,
		}

		mfs, err := fuse.Mount(mountpoint, fuseutil.NewFileSystemServer(adapter), cfg)
		if err != nil {
			fs.Unmount()
			return fmt.Errorf("failed to mount fuse connection: %w", err)
		}

		log.Printf("mounted %s at %s", device, mountpoint)

		if err := mfs.Join(context.Background()); err != nil {
			fs.Unmount()
			return fmt.Errorf("fuse connection exited: %w", err)
		}

		return fs.Unmount()
	},
}

func addFlags(f *pflag.FlagSet) {
	f.BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")
	f.IntVarP(&flagCacheSize, "cache", "c", 256, "number of blocks to buffer in the block cache")
	f.BoolVarP(&flagReadOnly, "read-only", "r", false, "mount the volume read-only")
	f.StringVarP(&flagConfig, "config", "C", "", "path to a sofs.yaml config file")
}

func main() {
	addFlags(rootCmd.Flags())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
