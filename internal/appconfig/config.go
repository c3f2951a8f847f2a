package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/balletsubmit/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	Endpoint      EndpointConfig `mapstructure:"endpoint" yaml:"endpoint"`
	Auth          AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Submit        SubmitConfig   `mapstructure:"submit" yaml:"submit"`
	Mock          MockConfig     `mapstructure:"mock" yaml:"mock"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EndpointConfig locates the notebook server's assemble extension.
type EndpointConfig struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	RoutePrefix string `mapstructure:"route_prefix" yaml:"route_prefix"`
	// Token is the notebook server token; "$JUPYTER_TOKEN" by default.
	Token          string `mapstructure:"token" yaml:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// AuthConfig controls the GitHub authorization flow.
type AuthConfig struct {
	PollIntervalMS       int  `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	PollTimeoutSeconds   int  `mapstructure:"poll_timeout_seconds" yaml:"poll_timeout_seconds"`
	TokenTimeoutSeconds  int  `mapstructure:"token_timeout_seconds" yaml:"token_timeout_seconds"`
	WatchIntervalSeconds int  `mapstructure:"watch_interval_seconds" yaml:"watch_interval_seconds"`
	Browser              bool `mapstructure:"browser" yaml:"browser"`
	QR                   bool `mapstructure:"qr" yaml:"qr"`
}

// SubmitConfig controls submission behavior.
type SubmitConfig struct {
	Confirm       bool `mapstructure:"confirm" yaml:"confirm"`
	MinIntervalMS int  `mapstructure:"min_interval_ms" yaml:"min_interval_ms"`
}

// MockConfig configures the local mock assemble server.
type MockConfig struct {
	Addr                      string `mapstructure:"addr" yaml:"addr"`
	RoutePrefix               string `mapstructure:"route_prefix" yaml:"route_prefix"`
	PullRequestBase           string `mapstructure:"pull_request_base" yaml:"pull_request_base"`
	AccessTokenTimeoutSeconds int    `mapstructure:"access_token_timeout_seconds" yaml:"access_token_timeout_seconds"`
	AutoApprove               bool   `mapstructure:"auto_approve" yaml:"auto_approve"`
	Token                     string `mapstructure:"token" yaml:"token"`
	Project                   string `mapstructure:"project" yaml:"project"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Endpoint: EndpointConfig{
			BaseURL:        "http://localhost:8888",
			RoutePrefix:    "assemble",
			Token:          "$JUPYTER_TOKEN",
			TimeoutSeconds: 30,
		},
		Auth: AuthConfig{
			PollIntervalMS:       1000,
			PollTimeoutSeconds:   300,
			TokenTimeoutSeconds:  90,
			WatchIntervalSeconds: 5,
			Browser:              false,
			QR:                   true,
		},
		Submit: SubmitConfig{
			Confirm:       true,
			MinIntervalMS: 1000,
		},
		Mock: MockConfig{
			Addr:                      "127.0.0.1:8888",
			RoutePrefix:               "assemble",
			PullRequestBase:           "https://github.com/ballet/ballet-predict-house-prices/pull",
			AccessTokenTimeoutSeconds: 60,
			AutoApprove:               false,
			Token:                     "",
			Project:                   "",
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ballet", "config.yaml"), nil
}

// EndpointConfig returns the client endpoint.
func (c Config) EndpointConfig() schema.EndpointConfig {
	return schema.EndpointConfig{
		BaseURL:     c.Endpoint.BaseURL,
		RoutePrefix: c.Endpoint.RoutePrefix,
		Token:       c.Endpoint.Token,
	}
}

// RequestTimeout is the per-request client timeout.
func (c Config) RequestTimeout() time.Duration {
	return seconds(c.Endpoint.TimeoutSeconds)
}

// PollInterval is the primary auth poll interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Auth.PollIntervalMS) * time.Millisecond
}

// PollTimeout bounds one auth poll session.
func (c Config) PollTimeout() time.Duration {
	return seconds(c.Auth.PollTimeoutSeconds)
}

// TokenTimeout bounds the token request.
func (c Config) TokenTimeout() time.Duration {
	return seconds(c.Auth.TokenTimeoutSeconds)
}

// WatchInterval is the background auth check interval.
func (c Config) WatchInterval() time.Duration {
	return seconds(c.Auth.WatchIntervalSeconds)
}

// SubmitMinInterval is the minimum spacing between submissions.
func (c Config) SubmitMinInterval() time.Duration {
	return time.Duration(c.Submit.MinIntervalMS) * time.Millisecond
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
