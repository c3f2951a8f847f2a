package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/balletsubmit/internal/eventbus"
	"pkt.systems/balletsubmit/internal/mockserver"
	"pkt.systems/balletsubmit/schema"
)

type stubSession struct {
	startErr error
	state    schema.AuthState
}

func (s stubSession) Start(context.Context) error { return s.startErr }

func (s stubSession) Wait(context.Context) (schema.AuthState, error) { return s.state, nil }

func TestRunAuthOutcomes(t *testing.T) {
	ctx := context.Background()
	if err := runAuth(ctx, stubSession{state: schema.AuthAuthenticated}, time.Minute); err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if err := runAuth(ctx, stubSession{state: schema.AuthExpired}, time.Minute); err == nil || !strings.Contains(err.Error(), "1m0s") {
		t.Fatalf("expected expiry error, got %v", err)
	}
	if err := runAuth(ctx, stubSession{state: schema.AuthIdle}, time.Minute); err == nil {
		t.Fatalf("expected canceled error")
	}
	if err := runAuth(ctx, stubSession{startErr: schema.ErrPollInProgress}, time.Minute); !errors.Is(err, schema.ErrPollInProgress) {
		t.Fatalf("expected start error, got %v", err)
	}
}

func TestAuthCommandAlreadyAuthenticated(t *testing.T) {
	srv := mockserver.New(mockserver.Config{Authenticated: true})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("config_version: 1\nendpoint:\n  base_url: "+ts.URL+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"auth", "-c", cfgPath})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("auth: %v", err)
	}
	if !strings.Contains(out.String(), "Already authenticated") {
		t.Fatalf("expected already authenticated, got %q", out.String())
	}
}

func TestPrintEvents(t *testing.T) {
	bus := eventbus.New(nil)
	events, cancel := bus.Subscribe()
	bus.SetAuthenticated(true)
	bus.OnSubmission(schema.RejectedWith("x"))
	bus.SetAuthenticated(false)
	cancel()

	var out bytes.Buffer
	if err := printEvents(context.Background(), &out, events); err != nil {
		t.Fatalf("print: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "authenticated: yes") || !strings.HasSuffix(lines[1], "authenticated: no") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
