package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xmhha/autobackup/pkg/config"
	"github.com/0xmhha/autobackup/pkg/logger"
	"github.com/0xmhha/autobackup/pkg/worker"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var flush bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the backup worker until interrupted",
		Long: `Run the backup worker in the configured mode until SIGINT or SIGTERM.

Event mode backs up a file once it has been quiet for time_value seconds.
Periodic mode scans the source every time_value seconds and backs up files
modified since the previous scan. Progress is appended to
<backup_dir>/backup_log.txt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, opts.configPath, flush)
		},
	}

	cmd.Flags().BoolVar(&flush, "flush-on-stop", false, "back up pending changes on shutdown instead of dropping them")

	return cmd
}

// runWorker loads settings and runs the worker until a termination signal.
func runWorker(cmd *cobra.Command, configPath string, flush bool) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	boot := logger.New(logger.Config{
		Level:  settings.LogLevel,
		Output: "stderr",
		Format: settings.LogFormat,
	})

	w, err := worker.New(settings, boot, worker.WithFlushOnStop(flush))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return w.Run(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
