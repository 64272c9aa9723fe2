package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/dbx"
	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

const pageColumns = "id, code, title, quota_mb, used_bytes, expires_at, active, created_at, updated_at"

func scanPage(row interface{ Scan(...any) error }) (*models.MediaPage, error) {
	p := &models.MediaPage{}
	err := row.Scan(&p.ID, &p.Code, &p.Title, &p.QuotaMB, &p.UsedBytes,
		&p.ExpiresAt, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (d *Database) CreateMediaPage(ctx context.Context, page *models.MediaPage) (*models.MediaPage, error) {
	rec := *page
	rec.ID = uuid.NewString()
	ts := now()
	rec.CreatedAt = ts
	rec.UpdatedAt = ts

	query := `INSERT INTO media_pages (` + pageColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := d.db.ExecContext(ctx, query,
		rec.ID, rec.Code, rec.Title, rec.QuotaMB, rec.UsedBytes,
		rec.ExpiresAt, rec.Active, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("page code %q: %w", rec.Code, persist.ErrUniqueConstraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rec, nil
}

func (d *Database) GetMediaPage(ctx context.Context, id string) (*models.MediaPage, error) {
	query := `SELECT ` + pageColumns + ` FROM media_pages WHERE id = $1`
	return scanPage(d.db.QueryRowContext(ctx, query, id))
}

func (d *Database) GetMediaPageByCode(ctx context.Context, code string) (*models.MediaPage, error) {
	query := `SELECT ` + pageColumns + ` FROM media_pages WHERE code = $1`
	return scanPage(d.db.QueryRowContext(ctx, query, code))
}

func (d *Database) UpdateMediaPage(ctx context.Context, id string, patch models.MediaPagePatch) (*models.MediaPage, error) {
	query := `UPDATE media_pages SET
	            title      = COALESCE($2, title),
	            quota_mb   = COALESCE($3, quota_mb),
	            used_bytes = COALESCE($4, used_bytes),
	            expires_at = COALESCE($5, expires_at),
	            active     = COALESCE($6, active),
	            updated_at = $7
	          WHERE id = $1
	          RETURNING ` + pageColumns
	page, err := scanPage(d.db.QueryRowContext(ctx, query,
		id, patch.Title, patch.QuotaMB, patch.UsedBytes, patch.ExpiresAt, patch.Active, now()))
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("page %s: %w", id, persist.ErrNotFound)
	}
	return page, nil
}

func (d *Database) GetMediaPages(ctx context.Context) ([]*models.MediaPage, error) {
	query := `SELECT ` + pageColumns + ` FROM media_pages ORDER BY created_at DESC, id DESC`
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var pages []*models.MediaPage
	for rows.Next() {
		p := &models.MediaPage{}
		if err := rows.Scan(&p.ID, &p.Code, &p.Title, &p.QuotaMB, &p.UsedBytes,
			&p.ExpiresAt, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return pages, nil
}

// DeleteMediaPage removes the page with its media items and chat messages.
// Item blobs are deleted first, outside the row transaction; a failing blob
// delete aborts before any row is touched.
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
		if item.BlobPath == "" {
			continue
		}
		if err := d.storage.DeleteFile(ctx, item.BlobPath); err != nil && !errors.Is(err, persist.ErrNotFound) {
			return fmt.Errorf("%w: blob %s: %v", persist.ErrBlobOrphanRisk, item.BlobPath, err)
		}
	}

	return dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE page_id = $1`, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM media_items WHERE page_id = $1`, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM media_pages WHERE id = $1`, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}
