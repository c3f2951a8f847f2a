package schema

import (
	"errors"
	"fmt"
	"testing"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{name: "plain", parts: []string{"http://host", "assemble", "submit"}, want: "http://host/assemble/submit"},
		{name: "trailing-base", parts: []string{"http://host/", "assemble", "status"}, want: "http://host/assemble/status"},
		{name: "double-slash", parts: []string{"http://host/", "/assemble/", "/auth/token"}, want: "http://host/assemble/auth/token"},
		{name: "empty-prefix", parts: []string{"http://host/base", "", "status"}, want: "http://host/base/status"},
		{name: "empty", parts: nil, want: ""},
	}
	for _, tc := range tests {
		if got := JoinURL(tc.parts...); got != tc.want {
			t.Fatalf("%s: JoinURL(%q) = %q, want %q", tc.name, tc.parts, got, tc.want)
		}
	}
}

func TestEndpointConfigURLFor(t *testing.T) {
	cfg := EndpointConfig{BaseURL: "http://localhost:8888/lab/", RoutePrefix: " /assemble/ "}
	if got := cfg.URLFor(EndpointAuthorize); got != "http://localhost:8888/lab/assemble/auth/authorize" {
		t.Fatalf("unexpected authorize url %q", got)
	}
	if got := cfg.URLFor(EndpointSubmit); got != "http://localhost:8888/lab/assemble/submit" {
		t.Fatalf("unexpected submit url %q", got)
	}
}

func TestSubmitResponseResult(t *testing.T) {
	url := "http://pr/1"
	accepted := SubmitResponse{Result: true, URL: &url}.Outcome()
	got, ok := accepted.(Accepted)
	if !ok || got.PullRequestURL != url || !accepted.OK() {
		t.Fatalf("expected accepted result, got %#v", accepted)
	}

	msg := "bad"
	rejected := SubmitResponse{Result: false, Message: &msg}.Outcome()
	rej, ok := rejected.(Rejected)
	if !ok || rej.Message == nil || *rej.Message != "bad" || rejected.OK() {
		t.Fatalf("expected rejected with message, got %#v", rejected)
	}

	bare := SubmitResponse{Result: false}.Outcome()
	if rej, ok := bare.(Rejected); !ok || rej.Message != nil {
		t.Fatalf("expected rejected without message, got %#v", bare)
	}
}

func TestMessageOf(t *testing.T) {
	msg := "token expired"
	err := fmt.Errorf("submit: %w", &ResponseError{Status: 400, Message: &msg})
	if got := MessageOf(err); got == nil || *got != msg {
		t.Fatalf("expected message %q, got %v", msg, got)
	}
	if got := MessageOf(&NetworkError{URL: "http://x", Err: errors.New("refused")}); got != nil {
		t.Fatalf("expected nil message for network error, got %q", *got)
	}
	if !IsNotFound(&ResponseError{Status: 404}) {
		t.Fatalf("expected 404 to be not found")
	}
}

func TestAuthStateString(t *testing.T) {
	if AuthPolling.String() != "polling" || AuthExpired.String() != "expired" {
		t.Fatalf("unexpected state names")
	}
	if AuthState(42).String() != "unknown" {
		t.Fatalf("expected unknown state name")
	}
}
