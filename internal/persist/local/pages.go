package local

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

func (d *Database) CreateMediaPage(ctx context.Context, page *models.MediaPage) (*models.MediaPage, error) {
	rec := *page
	rec.ID = uuid.NewString()
	ts := now()
	rec.CreatedAt = ts
	rec.UpdatedAt = ts

	err := d.store.update(func(tx *badger.Txn) error {
		codeKey := indexKey(pageCodePrefix, rec.Code)
		if err := ensureAbsent(tx, codeKey, "page code", rec.Code); err != nil {
			return err
		}
		if err := setJSON(tx, recordKey(pagePrefix, rec.ID), rec); err != nil {
			return err
		}
		return tx.Set(codeKey, []byte(rec.ID))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *Database) GetMediaPage(ctx context.Context, id string) (*models.MediaPage, error) {
	var page *models.MediaPage
	err := d.store.view(func(tx *badger.Txn) error {
		p, err := getJSON[models.MediaPage](tx, recordKey(pagePrefix, id))
		page = p
		return err
	})
	return page, err
}

func (d *Database) GetMediaPageByCode(ctx context.Context, code string) (*models.MediaPage, error) {
	var page *models.MediaPage
	err := d.store.view(func(tx *badger.Txn) error {
		item, err := tx.Get(indexKey(pageCodePrefix, code))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(id []byte) error {
			p, err := getJSON[models.MediaPage](tx, recordKey(pagePrefix, string(id)))
			page = p
			return err
		})
	})
	return page, err
}

func (d *Database) UpdateMediaPage(ctx context.Context, id string, patch models.MediaPagePatch) (*models.MediaPage, error) {
	var updated *models.MediaPage
	err := d.store.update(func(tx *badger.Txn) error {
		key := recordKey(pagePrefix, id)
		page, err := getJSON[models.MediaPage](tx, key)
		if err != nil {
			return err
		}
		if page == nil {
			return fmt.Errorf("page %s: %w", id, persist.ErrNotFound)
		}
		if patch.Title != nil {
			page.Title = *patch.Title
		}
		if patch.QuotaMB != nil {
			page.QuotaMB = *patch.QuotaMB
		}
		if patch.UsedBytes != nil {
			page.UsedBytes = *patch.UsedBytes
		}
		if patch.ExpiresAt != nil {
			page.ExpiresAt = *patch.ExpiresAt
		}
		if patch.Active != nil {
			page.Active = *patch.Active
		}
		page.UpdatedAt = now()
		updated = page
		return setJSON(tx, key, page)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *Database) GetMediaPages(ctx context.Context) ([]*models.MediaPage, error) {
	var pages []*models.MediaPage
	err := d.store.view(func(tx *badger.Txn) error {
		ps, err := collect[models.MediaPage](tx, collectionPrefix(pagePrefix))
		pages = ps
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pages, func(i, j int) bool {
		if !pages[i].CreatedAt.Equal(pages[j].CreatedAt) {
			return pages[i].CreatedAt.After(pages[j].CreatedAt)
		}
		return pages[i].ID > pages[j].ID
	})
	return pages, nil
}

// DeleteMediaPage removes the page together with its media items and chat
// messages. Item blobs are deleted before their records; a failing blob
// delete aborts with the record still in place.
func (d *Database) DeleteMediaPage(ctx context.Context, id string) error {
	page, err := d.GetMediaPage(ctx, id)
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("page %s: %w", id, persist.ErrNotFound)
	}

	items, err := d.GetMediaItems(ctx, id, 0, 0)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := d.DeleteMediaItem(ctx, item.ID); err != nil {
			return err
		}
	}

	msgs, err := d.allMessages(ctx, id)
	if err != nil {
		return err
	}

	return d.store.update(func(tx *badger.Txn) error {
		for _, m := range msgs {
			if err := tx.Delete(scopedKey(messagePagePrefix, m.PageID, m.ID)); err != nil {
				return err
			}
			if err := tx.Delete(scopedKey(messageUserPrefix, m.UserID, m.ID)); err != nil {
				return err
			}
			if err := tx.Delete(recordKey(messagePrefix, m.ID)); err != nil {
				return err
			}
		}
		if err := tx.Delete(indexKey(pageCodePrefix, page.Code)); err != nil {
			return err
		}
		return tx.Delete(recordKey(pagePrefix, id))
	})
}
