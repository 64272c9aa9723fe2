// Package local implements the persistence contracts on an embedded BadgerDB
// store. Records live in named collections distinguished by key prefixes, with
// secondary index keys for the backend-owned lookups. Each logical operation
// is one transaction against the store; multi-collection consistency is the
// caller's job.
package local

import (
	"context"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/snapgrid/snapgrid/internal/logging"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// Store wraps the shared BadgerDB instance used by both the database and the
// blob storage adapter of the local backend.
type Store struct {
	db     *badger.DB
	logger logging.Logger
}

// badgerLogger adapts logging.Logger to badger's Logger interface.
type badgerLogger struct {
	logger logging.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (b *badgerLogger) Errorf(msg string, args ...any) {
	b.logger.Error(context.Background(), fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(context.Background(), fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Infof(msg string, args ...any) {
	b.logger.Debug(context.Background(), fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(context.Background(), fmt.Sprintf(msg, args...))
}

// Open opens (creating if needed) the embedded store described by cfg.
func Open(cfg persist.LocalConfig, logger logging.Logger) (*Store, error) {
	logger = logger.With("module", "local_store")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o770); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts.Logger = &badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}

// update runs fn in a single read-write transaction.
func (s *Store) update(fn func(tx *badger.Txn) error) error {
	return s.db.Update(fn)
}

// view runs fn in a single read-only transaction.
func (s *Store) view(fn func(tx *badger.Txn) error) error {
	return s.db.View(fn)
}
