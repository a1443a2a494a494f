// Command sofsmkfs formats a host file as a fresh SOFS volume.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rafaelferreirapt/sofs14-sub000/pkg/elog"
	"github.com/rafaelferreirapt/sofs14-sub000/pkg/sofs"
	"github.com/rafaelferreirapt/sofs14-sub000/pkg/sofsconfig"
)

var log elog.View

var (
	flagSizeMiB int64
	flagInodes  uint32
	flagLabel   string
	flagQuiet   bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "sofsmkfs DEVICE",
	Short: "Create a new SOFS volume",
	Long:  "sofsmkfs creates a host file of the requested size and writes a fresh SOFS volume into it.",
	Args:  cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := &elog.CLI{DisableTTY: flagQuiet}
		logrus.SetFormatter(logger)
		logrus.SetLevel(logrus.TraceLevel)
		log = logger
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		defaults := sofsconfig.Load(flagConfig, log)
		if !cmd.Flags().Changed("inodes") {
			flagInodes = defaults.TotalInodes
		}

		opts := sofs.FormatOptions{
			SizeBytes:   flagSizeMiB * 1024 * 1024,
			TotalInodes: flagInodes,
			VolumeName:  flagLabel,
		}

		if err := sofs.Format(path, opts); err != nil {
			return fmt.Errorf("failed to format %s: %w", path, err)
		}

		if !flagQuiet {
			log.Printf("formatted %s: %d MiB, %d inodes", path, flagSizeMiB, opts.TotalInodes)
		}
		return nil
	},
}

func addFlags(f *pflag.FlagSet) {
	f.Int64VarP(&flagSizeMiB, "size", "z", 16, "volume size in MiB")
	f.Uint32VarP(&flagInodes, "inodes", "i", 1024, "number of inodes to allocate")
	f.StringVarP(&flagLabel, "label", "n", "", "volume label")
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	f.StringVarP(&flagConfig, "config", "c", "", "path to a sofs.yaml config file")
}

func main() {
	addFlags(rootCmd.Flags())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
