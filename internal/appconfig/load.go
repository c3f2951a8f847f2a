package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("endpoint.base_url", cfg.Endpoint.BaseURL)
	v.SetDefault("endpoint.route_prefix", cfg.Endpoint.RoutePrefix)
	v.SetDefault("endpoint.token", cfg.Endpoint.Token)
	v.SetDefault("endpoint.timeout_seconds", cfg.Endpoint.TimeoutSeconds)
	v.SetDefault("auth.poll_interval_ms", cfg.Auth.PollIntervalMS)
	v.SetDefault("auth.poll_timeout_seconds", cfg.Auth.PollTimeoutSeconds)
	v.SetDefault("auth.token_timeout_seconds", cfg.Auth.TokenTimeoutSeconds)
	v.SetDefault("auth.watch_interval_seconds", cfg.Auth.WatchIntervalSeconds)
	v.SetDefault("auth.browser", cfg.Auth.Browser)
	v.SetDefault("auth.qr", cfg.Auth.QR)
	v.SetDefault("submit.confirm", cfg.Submit.Confirm)
	v.SetDefault("submit.min_interval_ms", cfg.Submit.MinIntervalMS)
	v.SetDefault("mock.addr", cfg.Mock.Addr)
	v.SetDefault("mock.route_prefix", cfg.Mock.RoutePrefix)
	v.SetDefault("mock.pull_request_base", cfg.Mock.PullRequestBase)
	v.SetDefault("mock.access_token_timeout_seconds", cfg.Mock.AccessTokenTimeoutSeconds)
	v.SetDefault("mock.auto_approve", cfg.Mock.AutoApprove)
	v.SetDefault("mock.token", cfg.Mock.Token)
	v.SetDefault("mock.project", cfg.Mock.Project)

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return Config{}, err
		}
	} else {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// viper reports an explicit SetConfigFile path that does not exist as a
// plain fs error rather than ConfigFileNotFoundError.
func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return os.IsNotExist(err)
}

// Validate checks values that cannot be repaired by defaults.
func Validate(cfg Config) error {
	baseURL := strings.TrimSpace(cfg.Endpoint.BaseURL)
	parsed, err := url.Parse(baseURL)
	if baseURL == "" || err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("endpoint.base_url must include scheme and host (e.g. http://localhost:8888)")
	}
	if err := validatePrefix("endpoint.route_prefix", cfg.Endpoint.RoutePrefix); err != nil {
		return err
	}
	if err := validatePrefix("mock.route_prefix", cfg.Mock.RoutePrefix); err != nil {
		return err
	}
	if cfg.Auth.PollIntervalMS <= 0 {
		return fmt.Errorf("auth.poll_interval_ms must be positive")
	}
	if cfg.Auth.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("auth.poll_timeout_seconds must be positive")
	}
	if cfg.Auth.WatchIntervalSeconds <= 0 {
		return fmt.Errorf("auth.watch_interval_seconds must be positive")
	}
	if cfg.Submit.MinIntervalMS < 0 {
		return fmt.Errorf("submit.min_interval_ms must not be negative")
	}
	return nil
}

func validatePrefix(key, value string) error {
	prefix := strings.TrimSpace(value)
	if strings.Contains(prefix, "://") {
		return fmt.Errorf("%s must be a path prefix, not a URL", key)
	}
	if strings.ContainsAny(prefix, "?#") {
		return fmt.Errorf("%s must not include query or fragment", key)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Endpoint.BaseURL = expandEnv(cfg.Endpoint.BaseURL)
	cfg.Endpoint.Token = expandSecret(cfg.Endpoint.Token)
	cfg.Mock.Addr = expandEnv(cfg.Mock.Addr)
	cfg.Mock.Token = expandSecret(cfg.Mock.Token)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// expandSecret expands value and drops it entirely when a referenced
// variable is unset, so an unresolved "$VAR" is never sent as a token.
func expandSecret(value string) string {
	missing := false
	out := os.Expand(value, func(key string) string {
		val, ok := os.LookupEnv(key)
		if !ok {
			missing = true
		}
		return val
	})
	if missing {
		return ""
	}
	return strings.TrimSpace(out)
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
