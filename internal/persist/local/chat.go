package local

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

func (d *Database) CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	rec := *msg
	rec.ID = uuid.NewString()
	rec.CreatedAt = now()
	rec.Deleted = false

	err := d.store.update(func(tx *badger.Txn) error {
		if err := setJSON(tx, recordKey(messagePrefix, rec.ID), rec); err != nil {
			return err
		}
		if err := tx.Set(scopedKey(messagePagePrefix, rec.PageID, rec.ID), []byte(rec.ID)); err != nil {
			return err
		}
		return tx.Set(scopedKey(messageUserPrefix, rec.UserID, rec.ID), []byte(rec.ID))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *Database) GetMessages(ctx context.Context, pageID string, limit, offset int) ([]*models.ChatMessage, error) {
	msgs, err := d.allMessages(ctx, pageID)
	if err != nil {
		return nil, err
	}
	live := msgs[:0]
	for _, m := range msgs {
		if !m.Deleted {
			live = append(live, m)
		}
	}
	sortMessages(live)
	return window(live, limit, offset), nil
}

// allMessages loads every message of a page, deleted ones included.
func (d *Database) allMessages(ctx context.Context, pageID string) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	err := d.store.view(func(tx *badger.Txn) error {
		ids, err := indexedIDs(tx, scopedPrefix(messagePagePrefix, pageID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			msg, err := getJSON[models.ChatMessage](tx, recordKey(messagePrefix, id))
			if err != nil {
				return err
			}
			if msg != nil {
				msgs = append(msgs, msg)
			}
		}
		return nil
	})
	return msgs, err
}

// DeleteMessage soft-deletes: the record stays with its Deleted flag set.
func (d *Database) DeleteMessage(ctx context.Context, id string) error {
	return d.store.update(func(tx *badger.Txn) error {
		key := recordKey(messagePrefix, id)
		msg, err := getJSON[models.ChatMessage](tx, key)
		if err != nil {
			return err
		}
		if msg == nil {
			return fmt.Errorf("message %s: %w", id, persist.ErrNotFound)
		}
		msg.Deleted = true
		return setJSON(tx, key, msg)
	})
}
