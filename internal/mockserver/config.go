package mockserver

import (
	"time"

	"pkt.systems/balletsubmit/schema"
)

const (
	defaultRoutePrefix        = "assemble"
	defaultPullRequestBase    = "https://github.com/ballet/ballet-predict-house-prices/pull"
	defaultAccessTokenTimeout = 60 * time.Second
	shutdownTimeout           = 5 * time.Second
)

// Config configures the mock assemble server.
type Config struct {
	RoutePrefix        string
	PullRequestBase    string
	AccessTokenTimeout time.Duration
	// AutoApprove grants the OAuth request as soon as the authorize page is hit.
	AutoApprove bool
	// Token, when set, is required on API requests as "Authorization: token"
	// or ?token=.
	Token string
	// Project is reported as the project version.
	Project string
	// Settings are extra entries exposed through config and config/<name>.
	Settings map[string]any
	// Authenticated starts the server already authenticated.
	Authenticated bool
}

func (c Config) withDefaults() Config {
	if c.RoutePrefix == "" {
		c.RoutePrefix = defaultRoutePrefix
	}
	if c.PullRequestBase == "" {
		c.PullRequestBase = defaultPullRequestBase
	}
	if c.AccessTokenTimeout <= 0 {
		c.AccessTokenTimeout = defaultAccessTokenTimeout
	}
	return c
}

// Submission is a recorded successful submission.
type Submission struct {
	Branch string
	Code   string
	URL    string
	At     time.Time
}

func (c Config) settings() schema.RemoteConfig {
	out := schema.RemoteConfig{
		"route_prefix":         c.RoutePrefix,
		"pull_request_base":    c.PullRequestBase,
		"access_token_timeout": int(c.AccessTokenTimeout.Seconds()),
		"auto_approve":         c.AutoApprove,
	}
	for k, v := range c.Settings {
		out[k] = v
	}
	return out
}
