package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/balletsubmit/authpoll"
	"pkt.systems/balletsubmit/schema"
	"pkt.systems/pslog"
)

func newAuthCmd(cfgPath *string) *cobra.Command {
	var browser bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate the notebook server with GitHub",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c, err := loadClient(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			authenticated, err := c.IsAuthenticated(ctx)
			if err != nil {
				return fmt.Errorf("check authentication: %w", err)
			}
			if authenticated {
				_, _ = fmt.Fprintln(out, "Already authenticated: you have successfully authenticated with GitHub.")
				return nil
			}

			var opener authpoll.Opener = authpoll.TerminalOpener{Out: out, QR: cfg.Auth.QR}
			if browser || (cfg.Auth.Browser && !cmd.Flags().Changed("browser")) {
				opener = authpoll.BrowserOpener{}
			}
			if timeout <= 0 {
				timeout = cfg.PollTimeout()
			}
			poller := authpoll.New(c,
				authpoll.WithOpener(opener),
				authpoll.WithIndicator(authpoll.IndicatorFunc(func(ok bool) {
					if ok {
						_, _ = fmt.Fprintln(out, "Authenticated with GitHub.")
					}
				})),
				authpoll.WithInterval(cfg.PollInterval()),
				authpoll.WithTimeout(timeout),
				authpoll.WithTokenTimeout(cfg.TokenTimeout()),
			)
			defer func() { _ = poller.Close() }()
			return runAuth(ctx, poller, timeout)
		},
	}
	cmd.Flags().BoolVar(&browser, "browser", false, "open the authorize page in a browser window")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting after this long (default from config)")
	return cmd
}

type authSession interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context) (schema.AuthState, error)
}

func runAuth(ctx context.Context, poller authSession, timeout time.Duration) error {
	if err := poller.Start(ctx); err != nil {
		return err
	}
	state, err := poller.Wait(ctx)
	if err != nil {
		return err
	}
	log := pslog.Ctx(ctx)
	switch state {
	case schema.AuthAuthenticated:
		log.Debug("auth complete")
		return nil
	case schema.AuthExpired:
		return fmt.Errorf("authorization not completed within %s", timeout)
	default:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.New("authorization canceled")
	}
}
