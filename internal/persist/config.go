package persist

import "time"

// Backend is the explicit discriminator for adapter selection. It is carried
// in configuration and dispatched through interface polymorphism; no runtime
// capability sniffing.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

// LocalConfig configures the embedded backend.
type LocalConfig struct {
	// Dir is the directory of the embedded store. Ignored when InMemory.
	Dir string
	// InMemory keeps the whole store in memory. Used by tests.
	InMemory bool
}

// RemoteConfig configures the hosted backend: a relational record store, an
// S3-compatible blob store, and the credential service.
type RemoteConfig struct {
	DatabaseDSN string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	JWTSecret     string
	TokenValidity time.Duration
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend Backend
	Local   LocalConfig
	Remote  RemoteConfig
}
