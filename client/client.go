// Package client talks to the ballet assemble endpoints of a notebook server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"pkt.systems/balletsubmit/internal/logx"
	"pkt.systems/balletsubmit/internal/version"
	"pkt.systems/balletsubmit/schema"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 1 << 20
)

// Client is the submission and authentication client.
type Client struct {
	endpoint schema.EndpointConfig
	http     *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a client for the endpoint. The base URL must include scheme and host.
func New(endpoint schema.EndpointConfig, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(endpoint.BaseURL)
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("endpoint base url %q must include scheme and host", endpoint.BaseURL)
	}
	endpoint.BaseURL = base
	endpoint.RoutePrefix = schema.NormalizeRoutePrefix(endpoint.RoutePrefix)
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the resolved endpoint configuration.
func (c *Client) Endpoint() schema.EndpointConfig {
	return c.endpoint
}

// URL returns the request URL for an endpoint.
func (c *Client) URL(endpoint schema.EndpointName) string {
	return c.endpoint.URLFor(endpoint)
}

// AuthorizeURL returns the page that starts the GitHub OAuth flow. No request is made.
func (c *Client) AuthorizeURL() string {
	return c.URL(schema.EndpointAuthorize)
}

// Submit posts code to the submit endpoint. It never fails: transport, status
// and parse errors become a Rejected result carrying the server's message
// when one was available.
func (c *Client) Submit(ctx context.Context, code string) schema.SubmissionResult {
	req := schema.NewSubmissionRequest(code)
	log := logx.WithSubmission(logx.WithEndpoint(ctx, schema.EndpointSubmit), req.Code())
	var resp schema.SubmitResponse
	if err := c.do(ctx, http.MethodPost, schema.EndpointSubmit, req.Payload(), shapeSubmit, &resp); err != nil {
		log.Warn("submit failed", "err", err)
		return schema.Rejected{Message: schema.MessageOf(err)}
	}
	result := resp.Outcome()
	switch r := result.(type) {
	case schema.Accepted:
		log.Info("submit accepted", "url", r.PullRequestURL)
	case schema.Rejected:
		if r.Message != nil {
			log.Info("submit rejected", "message", *r.Message)
		} else {
			log.Info("submit rejected")
		}
	}
	return result
}

// CheckStatus probes the status endpoint.
func (c *Client) CheckStatus(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, schema.EndpointStatus, nil, "", nil)
}

// IsAuthenticated reports whether the server holds a usable GitHub token.
// Errors are returned to the caller.
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	var resp schema.AuthenticatedResponse
	if err := c.do(ctx, http.MethodGet, schema.EndpointAuthenticated, nil, shapeAuthenticated, &resp); err != nil {
		return false, err
	}
	return resp.Result, nil
}

// RequestToken asks the server to exchange the pending OAuth grant for a token.
func (c *Client) RequestToken(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, schema.EndpointToken, nil, "", nil)
}

// Version fetches component versions.
func (c *Client) Version(ctx context.Context) (schema.VersionInfo, error) {
	var resp schema.VersionInfo
	if err := c.do(ctx, http.MethodGet, schema.EndpointVersion, nil, shapeVersion, &resp); err != nil {
		return schema.VersionInfo{}, err
	}
	return resp, nil
}

// Config fetches the server-side configuration.
func (c *Client) Config(ctx context.Context) (schema.RemoteConfig, error) {
	var resp schema.RemoteConfig
	if err := c.do(ctx, http.MethodGet, schema.EndpointSettings, nil, shapeObject, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ConfigItem fetches a single configuration value. Unknown names yield a 404 ResponseError.
func (c *Client) ConfigItem(ctx context.Context, name string) (any, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("config item %q: %w", name, schema.ErrInvalidRequest)
	}
	endpoint := schema.EndpointName(string(schema.EndpointSettings) + "/" + url.PathEscape(name))
	var resp map[string]any
	if err := c.do(ctx, http.MethodGet, endpoint, nil, shapeObject, &resp); err != nil {
		return nil, err
	}
	value, ok := resp[name]
	if !ok {
		return nil, &schema.ParseError{URL: c.URL(endpoint), Err: fmt.Errorf("response lacks %q", name)}
	}
	return value, nil
}

// do performs one request. A nil out discards the body of a successful response.
func (c *Client) do(ctx context.Context, method string, endpoint schema.EndpointName, body any, shape responseShape, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	target := c.URL(endpoint)
	requestID := logx.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	log := logx.WithRequest(ctx, endpoint, requestID)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &schema.NetworkError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", version.UserAgent())
	if token := strings.TrimSpace(c.endpoint.Token); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("assemble request failed", "method", method, "err", err)
		return &schema.NetworkError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &schema.NetworkError{URL: target, Err: err}
	}
	log.Debug("assemble request", "method", method, "status", resp.StatusCode, "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &schema.ResponseError{URL: target, Status: resp.StatusCode, Message: extractMessage(data)}
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &schema.ParseError{URL: target, Err: errors.New("empty response body")}
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return &schema.ParseError{URL: target, Err: err}
	}
	if shape != "" {
		if err := validateShape(shape, raw); err != nil {
			return &schema.ParseError{URL: target, Err: err}
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &schema.ParseError{URL: target, Err: err}
	}
	return nil
}

// extractMessage pulls a "message" (or tornado "reason") out of an error body.
func extractMessage(data []byte) *string {
	var payload struct {
		Message *string `json:"message"`
		Reason  *string `json:"reason"`
		Error   *string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	for _, candidate := range []*string{payload.Message, payload.Reason, payload.Error} {
		if candidate != nil && strings.TrimSpace(*candidate) != "" {
			msg := strings.TrimSpace(*candidate)
			return &msg
		}
	}
	return nil
}
