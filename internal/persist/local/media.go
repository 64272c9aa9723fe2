package local

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

func (d *Database) CreateMediaItem(ctx context.Context, item *models.MediaItem, blob *persist.Blob) (*models.MediaItem, error) {
	rec := *item
	rec.ID = uuid.NewString()
	ts := now()
	rec.CreatedAt = ts
	rec.UpdatedAt = ts

	if blob != nil {
		if rec.BlobPath == "" {
			return nil, fmt.Errorf("create media item: empty blob path")
		}
		if _, err := d.storage.UploadFile(ctx, *blob, rec.BlobPath); err != nil {
			return nil, fmt.Errorf("uploading blob: %w", err)
		}
		url, err := d.storage.GetFileURL(ctx, rec.BlobPath)
		if err != nil {
			return nil, fmt.Errorf("resolving blob url: %w", err)
		}
		rec.URL = url
		if rec.Size == 0 {
			rec.Size = int64(len(blob.Data))
		}
	}

	err := d.store.update(func(tx *badger.Txn) error {
		if err := setJSON(tx, recordKey(mediaPrefix, rec.ID), rec); err != nil {
			return err
		}
		if err := tx.Set(scopedKey(mediaPagePrefix, rec.PageID, rec.ID), []byte(rec.ID)); err != nil {
			return err
		}
		return tx.Set(scopedKey(mediaUserPrefix, rec.UserID, rec.ID), []byte(rec.ID))
	})
	if err != nil {
		// roll the blob back so no stored blob is left without a record
		if blob != nil {
			_ = d.storage.DeleteFile(ctx, rec.BlobPath)
		}
		return nil, err
	}
	return &rec, nil
}

func (d *Database) GetMediaItems(ctx context.Context, pageID string, limit, offset int) ([]*models.MediaItem, error) {
	var items []*models.MediaItem
	err := d.store.view(func(tx *badger.Txn) error {
		ids, err := indexedIDs(tx, scopedPrefix(mediaPagePrefix, pageID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			item, err := getJSON[models.MediaItem](tx, recordKey(mediaPrefix, id))
			if err != nil {
				return err
			}
			if item != nil {
				items = append(items, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortMediaItems(items)
	return window(items, limit, offset), nil
}

func (d *Database) GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error) {
	var item *models.MediaItem
	err := d.store.view(func(tx *badger.Txn) error {
		i, err := getJSON[models.MediaItem](tx, recordKey(mediaPrefix, id))
		item = i
		return err
	})
	return item, err
}

func (d *Database) UpdateMediaItem(ctx context.Context, id string, patch models.MediaItemPatch) (*models.MediaItem, error) {
	var updated *models.MediaItem
	err := d.store.update(func(tx *badger.Txn) error {
		key := recordKey(mediaPrefix, id)
		item, err := getJSON[models.MediaItem](tx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("media item %s: %w", id, persist.ErrNotFound)
		}
		if patch.Caption != nil {
			item.Caption = *patch.Caption
		}
		if patch.Active != nil {
			item.Active = *patch.Active
		}
		if patch.URL != nil {
			item.URL = *patch.URL
		}
		if patch.BlobPath != nil {
			item.BlobPath = *patch.BlobPath
		}
		item.UpdatedAt = now()
		updated = item
		return setJSON(tx, key, item)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMediaItem deletes the item's blob by path before removing the record.
// If the blob delete fails the record survives and the error wraps
// persist.ErrBlobOrphanRisk; an already-missing blob does not block.
func (d *Database) DeleteMediaItem(ctx context.Context, id string) error {
	item, err := d.GetMediaItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("media item %s: %w", id, persist.ErrNotFound)
	}

	if item.BlobPath != "" {
		if err := d.storage.DeleteFile(ctx, item.BlobPath); err != nil && !errors.Is(err, persist.ErrNotFound) {
			return fmt.Errorf("%w: blob %s: %v", persist.ErrBlobOrphanRisk, item.BlobPath, err)
		}
	}

	return d.store.update(func(tx *badger.Txn) error {
		if err := tx.Delete(scopedKey(mediaPagePrefix, item.PageID, item.ID)); err != nil {
			return err
		}
		if err := tx.Delete(scopedKey(mediaUserPrefix, item.UserID, item.ID)); err != nil {
			return err
		}
		return tx.Delete(recordKey(mediaPrefix, id))
	})
}
