package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mkvtag/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check availability of external binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			missing := false
			for _, status := range statuses {
				detail := status.Detail
				if status.Available {
					detail = "ok"
				} else if !status.Optional {
					missing = true
				}
				rows = append(rows, []string{
					status.Name,
					status.Command,
					yesNo(status.Optional),
					detail,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				{header: "Dependency"},
				{header: "Command"},
				{header: "Optional"},
				{header: "Status"},
			}, rows))
			if missing {
				return fmt.Errorf("required dependencies missing")
			}
			return nil
		},
	}
}
