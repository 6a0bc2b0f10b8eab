package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mkvtag/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var file string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived tagging attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history archive is disabled in configuration")
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			var attempts []history.Attempt
			if file != "" {
				attempts, err = store.ForFile(cmd.Context(), file)
			} else {
				attempts, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No archived attempts")
				return nil
			}

			rows := make([][]string, 0, len(attempts))
			for _, attempt := range attempts {
				detail := strings.TrimSpace(attempt.Stderr)
				if len(detail) > 60 {
					detail = detail[:57] + "..."
				}
				rows = append(rows, []string{
					attempt.File,
					string(attempt.Outcome),
					attempt.Duration.Truncate(time.Millisecond).String(),
					humanize.Time(attempt.RecordedAt),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "File"},
				{header: "Outcome"},
				{header: "Duration", right: true},
				{header: "When"},
				{header: "Detail"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Only show attempts for this file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum attempts to show")
	return cmd
}
