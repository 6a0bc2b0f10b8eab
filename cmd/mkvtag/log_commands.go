package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Status log utilities",
	}

	logCmd.AddCommand(newLogShowCommand(ctx))
	logCmd.AddCommand(newLogClearCommand(ctx))
	logCmd.AddCommand(newLogResetCommand(ctx))

	return logCmd
}

func newLogShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the raw status log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(cfg.Watch.StatusLogPath)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					fmt.Fprintln(cmd.OutOrStdout(), "{}")
					return nil
				}
				return fmt.Errorf("read status log: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newLogClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every record and rewrite an empty status log",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.loadStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Status log cleared")
			return nil
		},
	}
}

func newLogResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <file>",
		Short: "Reset a record to new and clear its failure counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.loadStore()
			if err != nil {
				return err
			}
			if err := store.ResetRecord(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", args[0])
			return nil
		},
	}
}
