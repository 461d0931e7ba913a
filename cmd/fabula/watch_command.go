package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fabula/internal/device"
	"fabula/internal/hotplug"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch for device attach and detach events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			driver := device.NewDriver(logger)
			watcher := hotplug.NewWatcher(cfg, logger, driver)
			if watcher == nil {
				return fmt.Errorf("device vendor_id and product_id must be configured for hotplug watching")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := watcher.Start(runCtx); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Fprintln(cmd.OutOrStdout(), "watching for device events, press Ctrl-C to stop")
			<-runCtx.Done()
			if err := runCtx.Err(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}
