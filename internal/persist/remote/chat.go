package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

func (d *Database) CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	rec := *msg
	rec.ID = uuid.NewString()
	rec.CreatedAt = now()
	rec.Deleted = false

	query := `INSERT INTO chat_messages (id, page_id, user_id, body, deleted, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := d.db.ExecContext(ctx, query,
		rec.ID, rec.PageID, rec.UserID, rec.Text, rec.Deleted, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rec, nil
}

func (d *Database) GetMessages(ctx context.Context, pageID string, limit, offset int) ([]*models.ChatMessage, error) {
	args := []any{pageID}
	query := `SELECT id, page_id, user_id, body, deleted, created_at
	          FROM chat_messages WHERE page_id = $1 AND deleted = FALSE` +
		pagedSuffix("created_at ASC, id ASC", &args, limit, offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var msgs []*models.ChatMessage
	for rows.Next() {
		m := &models.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.PageID, &m.UserID, &m.Text, &m.Deleted, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msgs, nil
}

// DeleteMessage soft-deletes: the row stays with its deleted flag set.
func (d *Database) DeleteMessage(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE chat_messages SET deleted = TRUE WHERE id = $1 AND deleted = FALSE`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("message %s: %w", id, persist.ErrNotFound)
	}
	return nil
}
