// Package config handles configuration for the snapgrid server, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"time"

	"github.com/snapgrid/snapgrid/internal/persist"
)

// Config holds runtime settings for the snapgrid server.
//
// Fields:
//   - EndpointAddr: bind address for the public HTTP endpoint.
//   - Backend: persistence backend, "local" or "remote". Empty means derive:
//     remote when both a database DSN and S3 credentials are present,
//     local otherwise.
//   - DataDir: directory of the embedded store (local backend).
//   - DatabaseDSN: PostgreSQL DSN (pgx) for the remote backend.
//   - JWTSecret: HMAC secret for signing JWTs (HS256). Do not use test
//     defaults in prod.
//   - TokenValidity: session token lifetime.
//   - S3AccessKey / S3SecretKey: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3Endpoint: object storage settings.
type Config struct {
	EndpointAddr  string
	Backend       string
	DataDir       string
	DatabaseDSN   string
	JWTSecret     string
	TokenValidity time.Duration
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.Backend = ""
	c.DataDir = "./data"
	c.DatabaseDSN = ""
	c.JWTSecret = "secretKey"
	c.TokenValidity = 24 * time.Hour
	c.S3AccessKey = ""
	c.S3SecretKey = ""
	c.S3Bucket = "snapgrid"
	c.S3Region = "us-east-1"
	c.S3Endpoint = "http://127.0.0.1:9000"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// PersistConfig converts the flat runtime settings into a backend selection.
func (c *Config) PersistConfig() persist.Config {
	backend := persist.Backend(c.Backend)
	if backend == "" {
		if c.DatabaseDSN != "" && c.S3AccessKey != "" && c.S3SecretKey != "" {
			backend = persist.BackendRemote
		} else {
			backend = persist.BackendLocal
		}
	}
	return persist.Config{
		Backend: backend,
		Local: persist.LocalConfig{
			Dir: c.DataDir,
		},
		Remote: persist.RemoteConfig{
			DatabaseDSN:   c.DatabaseDSN,
			S3Endpoint:    c.S3Endpoint,
			S3Region:      c.S3Region,
			S3Bucket:      c.S3Bucket,
			S3AccessKey:   c.S3AccessKey,
			S3SecretKey:   c.S3SecretKey,
			JWTSecret:     c.JWTSecret,
			TokenValidity: c.TokenValidity,
		},
	}
}
