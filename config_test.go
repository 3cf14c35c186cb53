package blogsync_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/blogsync"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := blogsync.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cfg.APIBaseURL)
	assert.Equal(t, blogsync.DefaultRequestTimeout, cfg.RequestTimeout.Duration)
	assert.Equal(t, blogsync.DefaultStaleTime, cfg.StaleTime.Duration)
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blogsync.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url = "https://blog.example.com"
stale_time = "90s"
request_timeout = "5s"
data_dir = "/tmp/blogsync-test"
`), 0o644))

	cfg, err := blogsync.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com", cfg.APIBaseURL)
	assert.Equal(t, 90*time.Second, cfg.StaleTime.Duration)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout.Duration)
	assert.Equal(t, "/tmp/blogsync-test", cfg.DataDir)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := blogsync.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cfg.APIBaseURL)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blogsync.toml")
	require.NoError(t, os.WriteFile(path, []byte(`api_base_url = "https://file.example.com"`), 0o644))

	t.Setenv("BLOGSYNC_API_URL", "https://env.example.com")
	t.Setenv("BLOGSYNC_STALE_TIME", "2m")

	cfg, err := blogsync.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.StaleTime.Duration)
}

func TestConfig_WebsocketURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  blogsync.Config
		want string
	}{
		{"derived from http", blogsync.Config{APIBaseURL: "http://localhost:4000"}, "ws://localhost:4000/ws"},
		{"derived from https", blogsync.Config{APIBaseURL: "https://blog.example.com"}, "wss://blog.example.com/ws"},
		{"explicit socket url wins", blogsync.Config{APIBaseURL: "http://localhost:4000", SocketURL: "ws://other:9000/events"}, "ws://other:9000/events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.WebsocketURL())
		})
	}
}

func TestDuration_Text(t *testing.T) {
	var d blogsync.Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	require.Error(t, d.UnmarshalText([]byte("ninety")))
}
