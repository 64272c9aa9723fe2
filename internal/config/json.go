package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/snapgrid/snapgrid/internal/flagx"
	"github.com/snapgrid/snapgrid/internal/timex"
)

// JsonConfig is the intermediate structure for JSON unmarshalling. It uses
// timex.Duration for interval fields, which allows parsing both string values
// such as "24h" and integer nanoseconds. After unmarshalling, its fields are
// copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr  string         `json:"endpoint_addr"`
	Backend       string         `json:"backend"`
	DataDir       string         `json:"data_dir"`
	DatabaseDSN   string         `json:"database_dsn"`
	JWTSecret     string         `json:"jwt_secret"`
	TokenValidity timex.Duration `json:"token_validity"`
	S3AccessKey   string         `json:"s3_access_key"`
	S3SecretKey   string         `json:"s3_secret_key"`
	S3Bucket      string         `json:"s3_bucket"`
	S3Region      string         `json:"s3_region"`
	S3Endpoint    string         `json:"s3_endpoint"`
}

// parseJson loads configuration from the JSON file named by the -c or
// -config flags. If neither flag is set, no file is loaded. An unreadable or
// invalid file panics: the process cannot run on a half-applied config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.Backend = c.Backend
	config.DataDir = c.DataDir
	config.DatabaseDSN = c.DatabaseDSN
	config.JWTSecret = c.JWTSecret
	config.TokenValidity = time.Duration(c.TokenValidity.Duration)
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3Endpoint = c.S3Endpoint
}
