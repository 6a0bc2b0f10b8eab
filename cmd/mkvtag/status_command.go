package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mkvtag/internal/record"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the tracked files and their current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.loadStore()
			if err != nil {
				return err
			}

			filter := record.Status(only)
			rows := make([][]string, 0, store.Len())
			for _, rec := range store.Records() {
				if only != "" && rec.Status != filter {
					continue
				}
				rows = append(rows, []string{
					rec.Name,
					string(rec.Status),
					sizeCell(rec.Size),
					modifiedCell(rec.Mtime),
					strconv.Itoa(rec.FailedCount),
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No tracked files")
				return nil
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "File"},
				{header: "Status"},
				{header: "Size", right: true},
				{header: "Modified"},
				{header: "Failures", right: true},
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "status", "", "Only show files with this status")
	return cmd
}

func sizeCell(size int64) string {
	if size <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(size))
}

func modifiedCell(mtime time.Time) string {
	if mtime.IsZero() {
		return "-"
	}
	return humanize.Time(mtime)
}
