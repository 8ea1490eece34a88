// Package main provides the autobackup CLI application.
//
// autobackup mirrors every changed file under a source directory into a
// fresh, versioned folder under a backup directory, either in real time
// (file system events) or by periodic scans.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
	worker     bool
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "autobackup",
		Short: "Versioned mirror backup worker",
		Long: `autobackup watches a source directory and copies every created or
modified file into a new version folder under the backup directory:

  <backup_dir>/<top folder>/<version name>/<middle path>/<file>

Version names come from the format template ($top_folder, $date, $time,
$timestamp, $count, $filename, $name). Settings are read from
backup_config.json (or a YAML file given with --config).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.worker {
				return runWorker(cmd, opts.configPath, false)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to settings file (JSON or YAML)")

	// Desktop launchers start the worker with --worker.
	cmd.Flags().BoolVar(&opts.worker, "worker", false, "run the backup worker (same as 'run')")
	_ = cmd.Flags().MarkHidden("worker")

	cmd.AddCommand(
		newRunCmd(opts),
		newConfigCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "autobackup %s\n", version)
			return err
		},
	}
}
