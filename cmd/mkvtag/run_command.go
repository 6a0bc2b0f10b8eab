package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mkvtag/internal/daemon"
	"mkvtag/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var loops int
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the watch loop in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("loops") {
				cfg.Watch.Loops = loops
			}
			if once {
				cfg.Watch.Loops = 1
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Run(signalCtx); err != nil {
				if errors.Is(err, daemon.ErrAlreadyRunning) {
					return err
				}
				logger.Error("watch loop failed", logging.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&loops, "loops", -1, "Number of poll iterations before exiting (-1 runs forever)")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single poll iteration and exit")
	return cmd
}
