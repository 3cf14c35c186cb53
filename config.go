package blogsync

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Duration wraps time.Duration so config values can be written as "15s" or
// "1m30s" in TOML files and environment variables.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds the client settings. Values load in layers: built-in defaults,
// then an optional TOML file, then environment variables.
type Config struct {
	// APIBaseURL is the HTTP base of the blog API, without a trailing slash.
	APIBaseURL string `toml:"api_base_url" env:"BLOGSYNC_API_URL"`
	// SocketURL is the realtime notification endpoint. When empty it is
	// derived from APIBaseURL.
	SocketURL string `toml:"socket_url" env:"BLOGSYNC_SOCKET_URL"`
	// DataDir is where the local store keeps its files.
	DataDir string `toml:"data_dir" env:"BLOGSYNC_DATA_DIR"`
	// RequestTimeout bounds each HTTP request.
	RequestTimeout Duration `toml:"request_timeout" env:"BLOGSYNC_REQUEST_TIMEOUT"`
	// StaleTime is how long a cached query result counts as fresh.
	StaleTime Duration `toml:"stale_time" env:"BLOGSYNC_STALE_TIME"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		APIBaseURL:     "http://localhost:4000",
		RequestTimeout: Duration{DefaultRequestTimeout},
		StaleTime:      Duration{DefaultStaleTime},
	}
}

// LoadConfig builds a Config from defaults, the TOML file at path when it
// exists, and BLOGSYNC_* environment variables, in that order. An empty path
// skips the file layer.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg.withDefaults(), nil
}

// WebsocketURL returns the realtime endpoint, deriving ws(s)://host/ws from
// APIBaseURL when SocketURL is unset.
func (c Config) WebsocketURL() string {
	if c.SocketURL != "" {
		return c.SocketURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return scheme + "://" + u.Host + "/ws"
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.APIBaseURL == "" {
		c.APIBaseURL = def.APIBaseURL
	}
	if c.RequestTimeout.Duration <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.StaleTime.Duration <= 0 {
		c.StaleTime = def.StaleTime
	}
	return c
}
