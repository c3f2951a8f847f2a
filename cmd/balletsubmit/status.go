package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/balletsubmit/client"
	"pkt.systems/balletsubmit/schema"
)

func newStatusCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, authentication and remote version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := loadClient(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "endpoint:      %s\n", c.URL(""))
			if !client.Startup(ctx, c) {
				_, _ = fmt.Fprintln(out, "status:        unreachable")
				return errors.New("assemble endpoints unreachable")
			}
			_, _ = fmt.Fprintln(out, "status:        ok")

			authenticated, err := c.IsAuthenticated(ctx)
			if err != nil {
				_, _ = fmt.Fprintf(out, "authenticated: unknown (%v)\n", err)
			} else {
				_, _ = fmt.Fprintf(out, "authenticated: %s\n", yesNo(authenticated))
			}

			info, err := c.Version(ctx)
			if err != nil {
				_, _ = fmt.Fprintf(out, "version:       unknown (%v)\n", err)
				return nil
			}
			printVersion(out, info)
			return nil
		},
	}
}

func printVersion(out io.Writer, info schema.VersionInfo) {
	show := func(v *string) string {
		if v == nil {
			return "-"
		}
		return *v
	}
	_, _ = fmt.Fprintf(out, "version:       assemble=%s ballet=%s project=%s\n", show(info.Assemble), show(info.Ballet), show(info.Project))
}
