package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/balletsubmit/client"
	"pkt.systems/balletsubmit/internal/eventbus"
	"pkt.systems/balletsubmit/internal/notebook"
	"pkt.systems/balletsubmit/schema"
	"pkt.systems/pslog"
)

func newSubmitCmd(cfgPath *string) *cobra.Command {
	var cell int
	var yes bool
	cmd := &cobra.Command{
		Use:   "submit [FILE|-]",
		Short: "Submit feature code to the upstream Ballet project",
		Long: "Submit feature code read from a file, from stdin, or from one code cell of an .ipynb notebook.\n" +
			"Cells are counted among code cells only; the default is the last non-empty code cell.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c, err := loadClient(*cfgPath)
			if err != nil {
				return err
			}
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			code, err := readCode(cmd.InOrStdin(), source, cell)
			if err != nil {
				return err
			}
			confirm := cfg.Submit.Confirm && !yes
			if confirm && source == "-" {
				return errors.New("reading code from stdin requires --yes to skip confirmation")
			}
			ctx := cmd.Context()
			authenticated, err := c.IsAuthenticated(ctx)
			if err != nil {
				return fmt.Errorf("check authentication: %w", err)
			}
			if !authenticated {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), notAuthenticatedMessage)
				return errRejected
			}
			if confirm {
				ok, err := confirmSubmit(cmd.InOrStdin(), cmd.OutOrStdout(), code)
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Submission canceled.")
					return nil
				}
			}
			bus := eventbus.New(pslog.Ctx(ctx))
			events, unsubscribe := bus.Subscribe()
			guard := client.NewGuard(c, cfg.SubmitMinInterval(), client.WithObserver(bus))
			result := guard.Submit(ctx, code)
			unsubscribe()
			logSubmissions(pslog.Ctx(ctx), events)
			return renderResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result)
		},
	}
	cmd.Flags().IntVar(&cell, "cell", notebook.LastCodeCell, "code cell index for .ipynb input (-1 selects the last non-empty code cell)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "submit without confirmation")
	return cmd
}

const notAuthenticatedMessage = "Not authenticated: you're not authenticated with GitHub. Run 'balletsubmit auth' to connect."

// logSubmissions drains submission events. events must already be closed.
func logSubmissions(log pslog.Logger, events <-chan eventbus.Event) {
	for ev := range events {
		if ev.Type != eventbus.EventSubmission {
			continue
		}
		switch r := ev.Submission.(type) {
		case schema.Accepted:
			log.Info("submission accepted", "url", r.PullRequestURL)
		case schema.Rejected:
			msg := ""
			if r.Message != nil {
				msg = *r.Message
			}
			log.Warn("submission rejected", "message", msg)
		}
	}
}

func readCode(stdin io.Reader, source string, cell int) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	f, err := os.Open(source)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	if strings.EqualFold(filepath.Ext(source), ".ipynb") {
		return notebook.ReadCodeCell(f, cell)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", source, err)
	}
	return string(data), nil
}

func confirmSubmit(in io.Reader, out io.Writer, code string) (bool, error) {
	_, _ = fmt.Fprintln(out, "Submit feature?")
	_, _ = fmt.Fprintln(out, "The following feature would be submitted to the upstream Ballet project:")
	_, _ = fmt.Fprintln(out)
	for _, line := range strings.Split(strings.TrimRight(code, "\n"), "\n") {
		_, _ = fmt.Fprintf(out, "    %s\n", line)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, "Proceed? [y/N]: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// renderResult prints the outcome. Rejections return errRejected so the
// process exits non-zero without logging the message twice.
func renderResult(out, errOut io.Writer, result schema.SubmissionResult) error {
	switch r := result.(type) {
	case schema.Accepted:
		_, _ = fmt.Fprintln(out, "Feature submitted successfully")
		_, _ = fmt.Fprintf(out, "  %s\n", r.PullRequestURL)
		return nil
	case schema.Rejected:
		_, _ = fmt.Fprintln(errOut, rejectedMessage(r))
		return errRejected
	default:
		return fmt.Errorf("unexpected submission result %T", result)
	}
}

func rejectedMessage(r schema.Rejected) string {
	suffix := "."
	if r.Message != nil {
		suffix = ": " + *r.Message + "."
	}
	return "Error submitting feature: Oops - there was a problem submitting your feature" + suffix
}
