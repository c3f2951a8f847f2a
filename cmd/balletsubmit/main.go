package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

// errRejected reports a failure whose message was already shown to the user.
var errRejected = errors.New("submission rejected")

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	// .env is optional; it may provide JUPYTER_TOKEN.
	envErr := godotenv.Load()

	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("dotenv load failed", "err", envErr)
	}

	args := applyArgv0Alias(os.Args)
	root := newRootCmd()
	root.SetArgs(args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRejected) {
			pslog.Ctx(ctx).With("err", err).Error("balletsubmit command failed")
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "balletsubmit",
		Short:         "Submit notebook features to a Ballet project",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	root.AddCommand(newSubmitCmd(&cfgPath))
	root.AddCommand(newAuthCmd(&cfgPath))
	root.AddCommand(newStatusCmd(&cfgPath))
	root.AddCommand(newWatchCmd(&cfgPath))
	root.AddCommand(newMockServerCmd(&cfgPath))
	root.AddCommand(newInitCmd(&cfgPath))
	root.AddCommand(newVersionCmd())

	return root
}

func argv0Alias(base string) string {
	switch base {
	case "ballet-mock", "balletsubmit-mock":
		return "mock-server"
	case "ballet-submit":
		return "submit"
	default:
		return ""
	}
}

func applyArgv0Alias(args []string) []string {
	if len(args) == 0 {
		return args
	}
	alias := argv0Alias(filepath.Base(args[0]))
	if alias == "" {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], alias)
	out = append(out, args[1:]...)
	return out
}
