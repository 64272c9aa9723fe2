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

const userColumns = "id, device_id, display_name, email, active, last_login_at, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.DeviceID, &u.DisplayName, &u.Email, &u.Active,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (d *Database) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	rec := *user
	rec.ID = uuid.NewString()
	ts := now()
	rec.CreatedAt = ts
	rec.UpdatedAt = ts
	if rec.LastLoginAt.IsZero() {
		rec.LastLoginAt = ts
	}

	query := `INSERT INTO users (` + userColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := d.db.ExecContext(ctx, query,
		rec.ID, rec.DeviceID, rec.DisplayName, rec.Email, rec.Active,
		rec.LastLoginAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user device %q: %w", rec.DeviceID, persist.ErrUniqueConstraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rec, nil
}

func (d *Database) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(d.db.QueryRowContext(ctx, query, id))
}

func (d *Database) GetUserByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE device_id = $1`
	return scanUser(d.db.QueryRowContext(ctx, query, deviceID))
}

func (d *Database) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	query := `UPDATE users SET
	            display_name  = COALESCE($2, display_name),
	            email         = COALESCE($3, email),
	            active        = COALESCE($4, active),
	            last_login_at = COALESCE($5, last_login_at),
	            updated_at    = $6
	          WHERE id = $1
	          RETURNING ` + userColumns
	user, err := scanUser(d.db.QueryRowContext(ctx, query,
		id, patch.DisplayName, patch.Email, patch.Active, patch.LastLoginAt, now()))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, persist.ErrNotFound)
	}
	return user, nil
}

func (d *Database) DeleteUser(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, persist.ErrNotFound)
	}
	return nil
}
