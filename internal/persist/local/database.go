package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// Database implements persist.DatabaseAdapter over the embedded store.
// The blob storage adapter is injected so record deletes can order the
// paired blob delete first.
type Database struct {
	store   *Store
	storage persist.StorageAdapter
}

var _ persist.DatabaseAdapter = (*Database)(nil)

// NewDatabase returns a DatabaseAdapter over store, deleting blobs through
// storage.
func NewDatabase(store *Store, storage persist.StorageAdapter) *Database {
	return &Database{store: store, storage: storage}
}

// getJSON reads and decodes the record at key. Missing keys yield (nil, nil).
func getJSON[T any](tx *badger.Txn, key []byte) (*T, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var rec T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &rec, nil
}

// setJSON encodes rec and writes it at key.
func setJSON(tx *badger.Txn, key []byte, rec any) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := tx.Set(key, val); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// ensureAbsent guards a unique index key inside a write transaction.
func ensureAbsent(tx *badger.Txn, key []byte, what, value string) error {
	_, err := tx.Get(key)
	if err == nil {
		return fmt.Errorf("%s %q: %w", what, value, persist.ErrUniqueConstraint)
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return nil
}

// indexedIDs collects the record ids referenced by every index entry under
// prefix. The store has no ordered range queries over the matched set, so
// callers sort the loaded records client-side.
func indexedIDs(tx *badger.Txn, prefix []byte) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = true

	var ids []string
	it := tx.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// collect decodes every record of a collection.
func collect[T any](tx *badger.Txn, prefix []byte) ([]*T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = true

	var out []*T
	it := tx.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		var rec T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, nil
}

// window applies offset/limit after client-side sorting. limit <= 0 means
// everything from offset on.
func window[T any](items []*T, limit, offset int) []*T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortMediaItems(items []*models.MediaItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

func sortMessages(msgs []*models.ChatMessage) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}

func now() time.Time { return time.Now().UTC() }
