package main

import (
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/balletsubmit/internal/appconfig"
	"pkt.systems/balletsubmit/internal/mockserver"
)

func newMockServerCmd(cfgPath *string) *cobra.Command {
	var addr string
	var autoApprove bool
	var authenticated bool
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a local assemble server for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Mock.Addr = addr
			}
			if cmd.Flags().Changed("auto-approve") {
				cfg.Mock.AutoApprove = autoApprove
			}
			srv := mockserver.New(mockConfig(cfg.Mock, authenticated))
			return srv.ListenAndServe(cmd.Context(), cfg.Mock.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "grant authorization as soon as the authorize page is opened")
	cmd.Flags().BoolVar(&authenticated, "authenticated", false, "start already authenticated")
	return cmd
}

func mockConfig(cfg appconfig.MockConfig, authenticated bool) mockserver.Config {
	return mockserver.Config{
		RoutePrefix:        cfg.RoutePrefix,
		PullRequestBase:    cfg.PullRequestBase,
		AccessTokenTimeout: time.Duration(cfg.AccessTokenTimeoutSeconds) * time.Second,
		AutoApprove:        cfg.AutoApprove,
		Token:              cfg.Token,
		Project:            cfg.Project,
		Authenticated:      authenticated,
	}
}
