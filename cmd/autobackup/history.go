package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/autobackup/pkg/aggregator"
	"github.com/0xmhha/autobackup/pkg/config"
	"github.com/0xmhha/autobackup/pkg/display"
	"github.com/0xmhha/autobackup/pkg/ledger"
	"github.com/0xmhha/autobackup/pkg/logger"
)

// ledgerTimeout bounds waiting for a worker that is writing the ledger.
const ledgerTimeout = 5 * time.Second

type historyOptions struct {
	limit       int
	topFolder   string
	format      string
	stats       bool
	groupBy     string
	folders     int
	percentiles bool
	compact     bool
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	ho := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded backups",
		Long: `List backups recorded in the ledger at <backup_dir>/.autobackup.db,
newest first. With --stats, print aggregate statistics instead.

Examples:
  autobackup history --limit 20
  autobackup history --top Proj --format json
  autobackup history --stats --group-by top_folder,date
  autobackup history --stats --folders 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts.configPath, ho)
		},
	}

	cmd.Flags().IntVarP(&ho.limit, "limit", "n", 50, "maximum entries to list (0 for all; statistics use every entry)")
	cmd.Flags().StringVar(&ho.topFolder, "top", "", "only show one top-level folder")
	cmd.Flags().StringVarP(&ho.format, "format", "f", "table", "output format (table, simple, json)")
	cmd.Flags().BoolVar(&ho.stats, "stats", false, "show aggregate statistics")
	cmd.Flags().StringVar(&ho.groupBy, "group-by", "", "group statistics by dimensions (top_folder, version, date, hour)")
	cmd.Flags().IntVar(&ho.folders, "folders", 0, "show the N largest top-level folders")
	cmd.Flags().BoolVar(&ho.percentiles, "percentiles", false, "include size percentiles in statistics")
	cmd.Flags().BoolVar(&ho.compact, "compact", false, "compact table output")

	return cmd
}

func runHistory(cmd *cobra.Command, configPath string, ho *historyOptions) error {
	format, err := parseDisplayFormat(ho.format)
	if err != nil {
		return err
	}
	dims, err := parseDimensions(ho.groupBy)
	if err != nil {
		return err
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	path := filepath.Join(settings.BackupDir, ledger.FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No backups recorded.")
		return nil
	}

	aggregate := ho.stats || ho.folders > 0 || len(dims) > 0

	// Statistics always cover the whole history; --limit only trims the list.
	query := ledger.Query{TopFolder: ho.topFolder}
	if !aggregate {
		query.Limit = ho.limit
	}

	l, err := ledger.New(ledger.Config{Path: path, ReadOnly: true, Timeout: ledgerTimeout}, logger.Noop())
	if err != nil {
		return ledgerError(err)
	}
	defer l.Close()

	entries, err := l.List(query)
	if err != nil {
		return ledgerError(err)
	}

	formatter := display.New(display.Config{
		Format:          format,
		ShowPercentiles: ho.percentiles,
		ShowTimestamps:  true,
		Compact:         ho.compact,
	})

	if !aggregate {
		return formatter.FormatHistory(out, entries)
	}

	agg := aggregator.New(aggregator.Config{
		GroupBy:          dims,
		TrackPercentiles: ho.percentiles,
	})
	for _, e := range entries {
		agg.Add(e)
	}

	switch {
	case ho.folders > 0:
		return formatter.FormatTopFolders(out, agg.TopFolders(ho.folders))
	case len(dims) > 0:
		names := make([]string, len(dims))
		for i, d := range dims {
			names[i] = string(d)
		}
		return formatter.FormatGroupedStats(out, agg.GroupedStats(), names)
	default:
		return formatter.FormatStats(out, agg.Stats())
	}
}

func ledgerError(err error) error {
	if errors.Is(err, ledger.ErrLedgerBusy) {
		return fmt.Errorf("backup history is busy (a worker is writing to it), try again: %w", err)
	}
	return fmt.Errorf("failed to read backup history: %w", err)
}

func parseDisplayFormat(name string) (display.Format, error) {
	switch f := display.Format(strings.ToLower(name)); f {
	case display.FormatTable, display.FormatSimple, display.FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s (want table, simple or json)", name)
	}
}

func parseDimensions(list string) ([]aggregator.Dimension, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	var dims []aggregator.Dimension
	for _, name := range strings.Split(list, ",") {
		d, ok := aggregator.ParseDimension(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown dimension: %s", name)
		}
		dims = append(dims, d)
	}
	return dims, nil
}
