package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
backend:
  base_url: "https://gridee.onrender.com/api/"
store:
  backend: file
  path: "${GRIDEE_STORE_PATH}"
payment:
  razorpay_key_id: "rzp_test_key"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	t.Setenv("GRIDEE_STORE_PATH", "session.json")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Trailing slash is stripped so path joining stays predictable.
	assert.Equal(t, "https://gridee.onrender.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, "session.json", cfg.Store.Path)
	assert.Equal(t, 30, cfg.Backend.RequestTimeout)
	assert.Equal(t, 60, cfg.Backend.ResourceTimeout)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.False(t, cfg.Backend.InsecureSkipVerify)
	assert.False(t, cfg.Backend.BasicAuthFallback.Enabled)
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		c := Config{
			Backend: BackendConfig{BaseURL: "https://example.com/api"},
			Store:   StoreConfig{Backend: "file", Path: "s.json"},
		}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.Backend.BaseURL = "" }, wantErr: true},
		{name: "garbage base url", mutate: func(c *Config) { c.Backend.BaseURL = "not a url" }, wantErr: true},
		{name: "redis store without address", mutate: func(c *Config) {
			c.Store = StoreConfig{Backend: "redis"}
		}, wantErr: true},
		{name: "failover store needs both", mutate: func(c *Config) {
			c.Store = StoreConfig{Backend: "failover", Path: "s.json"}
		}, wantErr: true},
		{name: "unknown store backend", mutate: func(c *Config) { c.Store.Backend = "etcd" }, wantErr: true},
		{name: "fallback enabled without creds", mutate: func(c *Config) {
			c.Backend.BasicAuthFallback = BasicAuthConfig{Enabled: true}
		}, wantErr: true},
		{name: "fallback enabled with creds", mutate: func(c *Config) {
			c.Backend.BasicAuthFallback = BasicAuthConfig{Enabled: true, Username: "ops", Password: "secret"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotifyEnabled(t *testing.T) {
	assert.False(t, NotifyConfig{}.Enabled())
	assert.False(t, NotifyConfig{TelegramToken: "t"}.Enabled())
	assert.True(t, NotifyConfig{TelegramToken: "t", ChatID: 42}.Enabled())
}
