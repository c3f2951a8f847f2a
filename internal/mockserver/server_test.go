package mockserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pkt.systems/balletsubmit/authpoll"
	"pkt.systems/balletsubmit/client"
	"pkt.systems/balletsubmit/schema"
)

func newTestClient(t *testing.T, srv *Server, token string) (*client.Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	c, err := client.New(schema.EndpointConfig{BaseURL: ts.URL, RoutePrefix: "/assemble/", Token: token})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c, ts
}

type httpOpener struct{}

func (httpOpener) Open(ctx context.Context, url string) (authpoll.Window, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return nil, nil
}

func TestAuthFlowThenSubmit(t *testing.T) {
	srv := New(Config{AccessTokenTimeout: 2 * time.Second})
	c, _ := newTestClient(t, srv, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := c.Submit(ctx, "x = 1")
	rejected, ok := result.(schema.Rejected)
	if !ok || rejected.Message == nil || *rejected.Message != "not authenticated with GitHub" {
		t.Fatalf("expected unauthenticated rejection, got %#v", result)
	}

	p := authpoll.New(c, authpoll.WithOpener(httpOpener{}), authpoll.WithInterval(10*time.Millisecond))
	defer func() { _ = p.Close() }()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	state, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if state != schema.AuthAuthenticated {
		t.Fatalf("expected authenticated, got %s", state)
	}

	result = c.Submit(ctx, "from ballet import Feature\n")
	accepted, ok := result.(schema.Accepted)
	if !ok {
		t.Fatalf("expected accepted, got %#v", result)
	}
	if !strings.HasSuffix(accepted.PullRequestURL, "/pull/1") {
		t.Fatalf("unexpected url %q", accepted.PullRequestURL)
	}
	subs := srv.Submissions()
	if len(subs) != 1 || !strings.HasPrefix(subs[0].Branch, "submit-feature-") {
		t.Fatalf("unexpected submissions: %+v", subs)
	}
	if subs[0].URL != accepted.PullRequestURL {
		t.Fatalf("recorded url %q does not match %q", subs[0].URL, accepted.PullRequestURL)
	}
}

func TestSubmitEmptyCode(t *testing.T) {
	srv := New(Config{Authenticated: true})
	c, _ := newTestClient(t, srv, "")
	result := c.Submit(context.Background(), "   \n")
	rejected, ok := result.(schema.Rejected)
	if !ok || rejected.Message == nil || *rejected.Message != schema.ErrEmptyCode.Error() {
		t.Fatalf("expected empty code rejection, got %#v", result)
	}
	if len(srv.Submissions()) != 0 {
		t.Fatalf("expected no submissions recorded")
	}
}

func TestSubmitUnknownFieldIsBadRequest(t *testing.T) {
	srv := New(Config{Authenticated: true})
	_, ts := newTestClient(t, srv, "")
	resp, err := http.Post(ts.URL+"/assemble/submit", "application/json", strings.NewReader(`{"code":"x"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestTokenRequired(t *testing.T) {
	srv := New(Config{Token: "s3cret"})
	bad, ts := newTestClient(t, srv, "wrong")
	err := bad.CheckStatus(context.Background())
	var respErr *schema.ResponseError
	if !errors.As(err, &respErr) || respErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}

	good, err := client.New(schema.EndpointConfig{BaseURL: ts.URL, RoutePrefix: "assemble", Token: "s3cret"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := good.CheckStatus(context.Background()); err != nil {
		t.Fatalf("status with token: %v", err)
	}

	resp, err := http.Get(ts.URL + "/assemble/status?token=s3cret")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected query token to be accepted, got %d", resp.StatusCode)
	}
}

func TestTokenTimeout(t *testing.T) {
	srv := New(Config{AccessTokenTimeout: 20 * time.Millisecond})
	c, _ := newTestClient(t, srv, "")
	err := c.RequestToken(context.Background())
	msg := schema.MessageOf(err)
	if msg == nil || *msg != "timeout" {
		t.Fatalf("expected timeout message, got %v", err)
	}
	if srv.Authenticated() {
		t.Fatalf("expected unauthenticated after timeout")
	}
}

func TestApproveUnblocksToken(t *testing.T) {
	srv := New(Config{AccessTokenTimeout: 2 * time.Second})
	c, _ := newTestClient(t, srv, "")
	if srv.Approve() {
		t.Fatalf("expected nothing to approve before a request")
	}
	errCh := make(chan error, 1)
	go func() { errCh <- c.RequestToken(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for !srv.Approve() {
		if time.Now().After(deadline) {
			t.Fatal("token request never became pending")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("token: %v", err)
	}
	ok, err := c.IsAuthenticated(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected authenticated, got %v %v", ok, err)
	}
}

func TestAuthorizeRedirectsToCallback(t *testing.T) {
	srv := New(Config{AutoApprove: true, AccessTokenTimeout: time.Second})
	c, _ := newTestClient(t, srv, "")
	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := noFollow.Get(c.AuthorizeURL())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "/assemble/auth/callback?state=") {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if err := c.RequestToken(context.Background()); err != nil {
		t.Fatalf("expected auto-approved token, got %v", err)
	}
	if !srv.Authenticated() {
		t.Fatalf("expected authenticated")
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	srv := New(Config{})
	_, ts := newTestClient(t, srv, "")
	resp, err := http.Get(ts.URL + "/assemble/auth/callback?state=nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestVersionAndConfig(t *testing.T) {
	srv := New(Config{Project: "v0.9.0", Settings: map[string]any{"github_owner": "ballet"}})
	c, _ := newTestClient(t, srv, "")
	ctx := context.Background()

	info, err := c.Version(ctx)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if info.Assemble == nil || info.Project == nil || *info.Project != "v0.9.0" || info.Ballet != nil {
		t.Fatalf("unexpected version info: %+v", info)
	}

	cfg, err := c.Config(ctx)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg["github_owner"] != "ballet" || cfg["route_prefix"] != "assemble" {
		t.Fatalf("unexpected config: %v", cfg)
	}

	value, err := c.ConfigItem(ctx, "github_owner")
	if err != nil || value != "ballet" {
		t.Fatalf("expected config item, got %v %v", value, err)
	}
	if _, err := c.ConfigItem(ctx, "missing"); !schema.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
