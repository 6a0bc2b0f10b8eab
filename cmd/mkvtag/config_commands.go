package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mkvtag/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Watch directory", cfg.Watch.Directory},
				{"Extensions", strings.Join(cfg.Watch.Extensions, ", ")},
				{"Status log", cfg.Watch.StatusLogPath},
				{"Poll interval", cfg.PollDuration().String()},
				{"Quiet period", cfg.QuietDuration().String()},
				{"Loops", loopsCell(cfg.Watch.Loops)},
				{"Gone grace", cfg.GoneGrace().String()},
				{"Strict status log", yesNo(cfg.Watch.StrictStatusLog)},
				{"Tagger", strings.TrimSpace(cfg.Tagger.Command + " " + strings.Join(cfg.Tagger.Args, " "))},
				{"Precheck", yesNo(cfg.Tagger.Precheck)},
				{"Probe", cfg.Tagger.ProbeCommand},
				{"Rename pattern", cfg.Rename.Pattern},
				{"History", historyCell(cfg.History.Enabled, cfg.History.Path)},
				{"Notifications", yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != "")},
				{"Log dir", cfg.Logging.Dir},
				{"Log level", cfg.Logging.Level},
				{"Log format", cfg.Logging.Format},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				{header: "Setting"},
				{header: "Value"},
			}, rows))
			return nil
		},
	}
}

func loopsCell(loops int) string {
	if loops < 0 {
		return "forever"
	}
	return fmt.Sprintf("%d", loops)
}

func historyCell(enabled bool, path string) string {
	if !enabled {
		return "disabled"
	}
	return path
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the watched directory before running mkvtag.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
