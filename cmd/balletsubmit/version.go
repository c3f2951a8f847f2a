package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/balletsubmit/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Summary())
			return err
		},
	}
}
