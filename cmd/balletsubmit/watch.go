package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/balletsubmit/authpoll"
	"pkt.systems/balletsubmit/internal/eventbus"
	"pkt.systems/pslog"
)

func newWatchCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch GitHub authentication status in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c, err := loadClient(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			bus := eventbus.New(pslog.Ctx(ctx))
			events, cancel := bus.Subscribe()
			defer cancel()

			watcher := authpoll.NewWatcher(c, bus, authpoll.WithWatchInterval(cfg.WatchInterval()))
			watcher.Start(ctx)
			defer func() { _ = watcher.Close() }()
			return printEvents(ctx, cmd.OutOrStdout(), events)
		},
	}
}

func printEvents(ctx context.Context, out io.Writer, events <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type != eventbus.EventAuth {
				continue
			}
			_, _ = fmt.Fprintf(out, "%s authenticated: %s\n", ev.At.Format("15:04:05"), yesNo(ev.Authenticated))
		}
	}
}
