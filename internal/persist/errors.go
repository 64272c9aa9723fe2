package persist

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by storage operations and by update/delete
	// operations aimed at a record that does not exist. Single-record Get
	// lookups return (nil, nil) instead; absence is the caller's call.
	ErrNotFound = errors.New("not found")

	// ErrUniqueConstraint is returned by creates that collide on a unique
	// key (device id, page code, admin username, account email). The
	// existing record is never overwritten.
	ErrUniqueConstraint = errors.New("unique constraint violation")

	// ErrUninitialized is returned by facade accessors called before
	// Initialize completes.
	ErrUninitialized = errors.New("persistence facade is not initialized")

	// ErrBlobOrphanRisk flags a record delete whose paired blob delete
	// failed. The record is left in place so the caller can retry instead
	// of silently leaking storage.
	ErrBlobOrphanRisk = errors.New("blob delete failed, record kept")

	// ErrMigrationInProgress is returned when a migration is requested
	// while another one is exporting or importing.
	ErrMigrationInProgress = errors.New("migration already in progress")

	// ErrInvalidToken is returned by auth operations given a malformed,
	// expired, or revoked session token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCredentials is returned by sign-in with a wrong email or
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoAuth is returned when an auth operation is requested from a
	// backend that has no credential service.
	ErrNoAuth = errors.New("backend has no auth service")
)

// MigrationHaltedError reports an import-step failure. The active backend is
// guaranteed unchanged when this error is returned.
type MigrationHaltedError struct {
	Entity string // entity type being imported ("admin", "user", "media_page", "media_item", "chat_message")
	ID     string // source-side id of the failing record, if known
	Err    error
}

func (e *MigrationHaltedError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("migration halted importing %s %s: %v", e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("migration halted importing %s: %v", e.Entity, e.Err)
}

func (e *MigrationHaltedError) Unwrap() error { return e.Err }
