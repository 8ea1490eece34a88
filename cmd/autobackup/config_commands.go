package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0xmhha/autobackup/pkg/config"
	"github.com/0xmhha/autobackup/pkg/template"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Settings management (show, path, validate, init)",
	}

	cmd.AddCommand(
		newConfigShowCmd(opts),
		newConfigPathCmd(opts),
		newConfigValidateCmd(opts),
		newConfigInitCmd(opts),
	)

	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return showJSON(out, settings)
			case "yaml", "":
				return showYAML(out, settings, config.NewLoader(opts.configPath).Path())
			default:
				return fmt.Errorf("unknown format: %s (want yaml or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, json)")

	return cmd
}

// showYAML displays settings in YAML format.
func showYAML(w io.Writer, s *config.Settings, source string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	fmt.Fprintln(w, "# Effective Settings")
	fmt.Fprintln(w, "# Source:", source)
	fmt.Fprintln(w, "# Format variables: $"+strings.Join(template.Variables(), " $"))
	fmt.Fprintln(w)
	_, err = w.Write(data)
	return err
}

// showJSON displays settings in JSON format.
func showJSON(w io.Writer, s *config.Settings) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newConfigPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where settings are looked up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Settings file search paths (in order of precedence):")
			fmt.Fprintln(out)

			for i, p := range config.SearchPaths(opts.configPath) {
				exists := "not found"
				if info, err := os.Stat(p); err == nil && !info.IsDir() {
					exists = "found"
				}
				fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, p, exists)
			}

			active := config.NewLoader(opts.configPath).Path()
			if active == "" {
				active = "none"
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Active settings file:", active)
			return nil
		},
	}
}

func newConfigValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the settings file for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Settings OK (%s mode, %s -> %s)\n",
				settings.Mode, settings.SourceDir, settings.BackupDir)
			return nil
		},
	}
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	s := config.Default()
	var (
		mode   string
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a new settings file",
		Long: `Write a new settings file from flags. The file is JSON unless the
output path ends in .yaml or .yml.

Example:
  autobackup config init --source ~/work --dest /mnt/backup --mode periodic --time 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = opts.configPath
			}
			if output == "" {
				output = config.FileName
			}

			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("settings file already exists at %s (use --force to overwrite)", output)
			}

			s.Mode = config.Mode(mode)
			if err := s.Normalize(); err != nil {
				return err
			}
			if err := config.Save(s, output); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&s.SourceDir, "source", "", "directory to watch (required)")
	cmd.Flags().StringVar(&s.BackupDir, "dest", "", "directory receiving backups (required)")
	cmd.Flags().StringVar(&s.Format, "format", config.DefaultFormat, "version folder name template")
	cmd.Flags().StringVar(&mode, "mode", string(config.DefaultMode), "change detection mode (event, periodic)")
	cmd.Flags().Float64Var(&s.WaitTime, "time", config.DefaultWaitTime, "debounce delay or scan interval in seconds")
	cmd.Flags().IntVar(&s.Workers, "workers", config.DefaultWorkers, "concurrent backups per periodic scan")
	cmd.Flags().BoolVar(&s.Ledger, "ledger", true, "record backups in the history ledger")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: --config or ./backup_config.json)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}
