package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

const mediaColumns = "id, page_id, user_id, type, url, blob_path, caption, size, active, created_at, updated_at"

func scanMediaItem(row interface{ Scan(...any) error }) (*models.MediaItem, error) {
	m := &models.MediaItem{}
	err := row.Scan(&m.ID, &m.PageID, &m.UserID, &m.Type, &m.URL, &m.BlobPath,
		&m.Caption, &m.Size, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// CreateMediaItem writes the blob first and only then the record, so a record
// never points at a blob that was not confirmed written. On a failed insert
// the fresh blob is removed again.
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

	query := `INSERT INTO media_items (` + mediaColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := d.db.ExecContext(ctx, query,
		rec.ID, rec.PageID, rec.UserID, rec.Type, rec.URL, rec.BlobPath,
		rec.Caption, rec.Size, rec.Active, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if blob != nil {
			_ = d.storage.DeleteFile(ctx, rec.BlobPath)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rec, nil
}

func (d *Database) GetMediaItems(ctx context.Context, pageID string, limit, offset int) ([]*models.MediaItem, error) {
	args := []any{pageID}
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE page_id = $1` +
		pagedSuffix("created_at DESC, id DESC", &args, limit, offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		m := &models.MediaItem{}
		if err := rows.Scan(&m.ID, &m.PageID, &m.UserID, &m.Type, &m.URL, &m.BlobPath,
			&m.Caption, &m.Size, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (d *Database) GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE id = $1`
	return scanMediaItem(d.db.QueryRowContext(ctx, query, id))
}

func (d *Database) UpdateMediaItem(ctx context.Context, id string, patch models.MediaItemPatch) (*models.MediaItem, error) {
	query := `UPDATE media_items SET
	            caption    = COALESCE($2, caption),
	            active     = COALESCE($3, active),
	            url        = COALESCE($4, url),
	            blob_path  = COALESCE($5, blob_path),
	            updated_at = $6
	          WHERE id = $1
	          RETURNING ` + mediaColumns
	item, err := scanMediaItem(d.db.QueryRowContext(ctx, query,
		id, patch.Caption, patch.Active, patch.URL, patch.BlobPath, now()))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("media item %s: %w", id, persist.ErrNotFound)
	}
	return item, nil
}

// DeleteMediaItem resolves the record's stored blob path, deletes the blob,
// then the record. An already-missing blob does not block the record delete;
// any other blob failure surfaces persist.ErrBlobOrphanRisk with the record
// kept.
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

	res, err := d.db.ExecContext(ctx, `DELETE FROM media_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("media item %s: %w", id, persist.ErrNotFound)
	}
	return nil
}
