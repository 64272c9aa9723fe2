package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapgrid/snapgrid/internal/persist"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, "", cfg.Backend)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 24*time.Hour, cfg.TokenValidity)
	assert.Equal(t, "snapgrid", cfg.S3Bucket)
}

func TestPersistConfigBackendDerivation(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
		want persist.Backend
	}{
		{"defaults to local", func(c *Config) {}, persist.BackendLocal},
		{"explicit wins", func(c *Config) {
			c.Backend = "remote"
		}, persist.BackendRemote},
		{"dsn alone is not enough", func(c *Config) {
			c.DatabaseDSN = "postgres://localhost/snapgrid"
		}, persist.BackendLocal},
		{"dsn plus s3 credentials means remote", func(c *Config) {
			c.DatabaseDSN = "postgres://localhost/snapgrid"
			c.S3AccessKey = "ak"
			c.S3SecretKey = "sk"
		}, persist.BackendRemote},
		{"explicit local despite remote settings", func(c *Config) {
			c.Backend = "local"
			c.DatabaseDSN = "postgres://localhost/snapgrid"
			c.S3AccessKey = "ak"
			c.S3SecretKey = "sk"
		}, persist.BackendLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.LoadDefaults()
			tt.mut(cfg)
			assert.Equal(t, tt.want, cfg.PersistConfig().Backend)
		})
	}
}

func TestPersistConfigCarriesSettings(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.Backend = "remote"
	cfg.DatabaseDSN = "postgres://localhost/snapgrid"
	cfg.DataDir = "/var/lib/snapgrid"

	pc := cfg.PersistConfig()
	assert.Equal(t, "/var/lib/snapgrid", pc.Local.Dir)
	assert.Equal(t, "postgres://localhost/snapgrid", pc.Remote.DatabaseDSN)
	assert.Equal(t, cfg.JWTSecret, pc.Remote.JWTSecret)
	assert.Equal(t, cfg.TokenValidity, pc.Remote.TokenValidity)
}

func TestJsonConfigDuration(t *testing.T) {
	var c JsonConfig
	require.NoError(t, json.Unmarshal([]byte(`{"token_validity":"30m"}`), &c))
	assert.Equal(t, 30*time.Minute, c.TokenValidity.Duration)

	require.NoError(t, json.Unmarshal([]byte(`{"token_validity":60000000000}`), &c))
	assert.Equal(t, time.Minute, c.TokenValidity.Duration)
}
