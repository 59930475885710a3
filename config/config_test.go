package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
postgres:
  dsn: "postgres://localhost/chat"
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "chat-service", cfg.Logging.Service)
	assert.Equal(t, "dev", cfg.Logging.Env)
	assert.Equal(t, "std", cfg.Logging.Backend)
	assert.Equal(t, 15*time.Second, cfg.PingInterval())
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout())
}

func TestLoadConfig_WSDurations(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
ws:
  pingInterval: 30s
  writeTimeout: 2s
postgres:
  dsn: "postgres://localhost/chat"
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.PingInterval())
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout())
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no http addr", "postgres:\n  dsn: x\n"},
		{"no dsn", "http:\n  addr: \":8080\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.yaml)
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
