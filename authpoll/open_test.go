package authpoll

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestTerminalOpenerPrintsURL(t *testing.T) {
	var buf bytes.Buffer
	url := "http://localhost:8888/assemble/auth/authorize"
	window, err := TerminalOpener{Out: &buf}.Open(context.Background(), url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if window != nil {
		t.Fatalf("expected untracked window")
	}
	if !strings.Contains(buf.String(), url) {
		t.Fatalf("expected url in output, got %q", buf.String())
	}
}

func TestTerminalOpenerQR(t *testing.T) {
	var plain, withQR bytes.Buffer
	url := "http://localhost:8888/assemble/auth/authorize"
	if _, err := (TerminalOpener{Out: &plain}).Open(context.Background(), url); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := (TerminalOpener{Out: &withQR, QR: true}).Open(context.Background(), url); err != nil {
		t.Fatalf("open: %v", err)
	}
	if withQR.Len() <= plain.Len() {
		t.Fatalf("expected qr code output after url")
	}
}

func TestTerminalOpenerNilWriter(t *testing.T) {
	window, err := TerminalOpener{}.Open(context.Background(), "http://example.invalid")
	if err != nil || window != nil {
		t.Fatalf("expected silent no-op, got %v %v", window, err)
	}
}
