package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/balletsubmit/schema"
	"pkt.systems/pslog"
)

func TestWithRequestAddsFields(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	log := WithRequest(ctx, schema.EndpointSubmit, "req-1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["endpoint"] != "submit" {
		t.Fatalf("expected endpoint field, got %+v", entry)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("expected request_id field, got %+v", entry)
	}
}

func TestWithRequestSkipsDuplicateRequestID(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture).With("request_id", "req-1")
	ctx := ContextWithRequestLogger(context.Background(), logger, "req-1")
	log := WithRequest(ctx, "", "req-1")
	log.Info("hello")

	line := capture.buf.String()
	if bytes.Count([]byte(line), []byte(`"request_id"`)) != 1 {
		t.Fatalf("expected a single request_id field, got %s", line)
	}
	if RequestID(ctx) != "req-1" {
		t.Fatalf("expected request id on context")
	}
}

func TestWithSubmissionAddsLength(t *testing.T) {
	capture := &logCapture{}
	log := WithSubmission(newCaptureLogger(capture), "x=1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["code_len"] != float64(3) {
		t.Fatalf("expected code_len field, got %+v", entry)
	}
}

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
