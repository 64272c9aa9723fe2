package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// Aggregate statistics are computed server-side rather than by re-reading
// all rows.

func (d *Database) GetPageStats(ctx context.Context, pageID string) (*models.PageStats, error) {
	stats := &models.PageStats{PageID: pageID}

	err := d.db.QueryRowContext(ctx,
		`SELECT quota_mb FROM media_pages WHERE id = $1`, pageID).Scan(&stats.QuotaMB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page %s: %w", pageID, persist.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT
	            (SELECT COUNT(*) FROM media_items WHERE page_id = $1),
	            (SELECT COALESCE(SUM(size), 0) FROM media_items WHERE page_id = $1),
	            (SELECT COUNT(*) FROM chat_messages WHERE page_id = $1 AND deleted = FALSE),
	            (SELECT COUNT(DISTINCT user_id) FROM (
	               SELECT user_id FROM media_items WHERE page_id = $1
	               UNION
	               SELECT user_id FROM chat_messages WHERE page_id = $1 AND deleted = FALSE
	             ) AS page_users)`
	err = d.db.QueryRowContext(ctx, query, pageID).Scan(
		&stats.MediaCount, &stats.UsedBytes, &stats.MessageCount, &stats.UserCount)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stats, nil
}

func (d *Database) GetGlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	stats := &models.GlobalStats{}
	query := `SELECT
	            (SELECT COUNT(*) FROM media_pages),
	            (SELECT COUNT(*) FROM media_items),
	            (SELECT COALESCE(SUM(size), 0) FROM media_items),
	            (SELECT COUNT(*) FROM chat_messages WHERE deleted = FALSE),
	            (SELECT COUNT(*) FROM users)`
	err := d.db.QueryRowContext(ctx, query).Scan(
		&stats.PageCount, &stats.MediaCount, &stats.TotalBytes, &stats.MessageCount, &stats.UserCount)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stats, nil
}

func (d *Database) GetUserActivity(ctx context.Context, userID string) ([]*models.UserActivity, error) {
	query := `SELECT page_id, 'media' AS kind, id, created_at
	          FROM media_items WHERE user_id = $1
	          UNION ALL
	          SELECT page_id, 'message' AS kind, id, created_at
	          FROM chat_messages WHERE user_id = $1 AND deleted = FALSE
	          ORDER BY created_at DESC, id DESC`
	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var acts []*models.UserActivity
	for rows.Next() {
		a := &models.UserActivity{UserID: userID}
		if err := rows.Scan(&a.PageID, &a.Kind, &a.RefID, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		acts = append(acts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acts, nil
}
