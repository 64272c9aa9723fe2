package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

const adminColumns = "id, username, password_hash, level, permissions, created_at, updated_at"

// Permissions are stored as a JSON array in a text column.
func encodePermissions(perms []string) (string, error) {
	if perms == nil {
		perms = []string{}
	}
	b, err := json.Marshal(perms)
	if err != nil {
		return "", fmt.Errorf("encode permissions: %w", err)
	}
	return string(b), nil
}

func scanAdmin(row interface{ Scan(...any) error }) (*models.Admin, error) {
	a := &models.Admin{}
	var perms string
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Level, &perms,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal([]byte(perms), &a.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	return a, nil
}

func (d *Database) CreateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	rec := *admin
	rec.ID = uuid.NewString()
	ts := now()
	rec.CreatedAt = ts
	rec.UpdatedAt = ts

	perms, err := encodePermissions(rec.Permissions)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO admins (` + adminColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = d.db.ExecContext(ctx, query,
		rec.ID, rec.Username, rec.PasswordHash, rec.Level, perms, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("admin username %q: %w", rec.Username, persist.ErrUniqueConstraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rec, nil
}

// AuthenticateAdmin verifies the password against the stored bcrypt hash.
// Unknown username and wrong password are both reported as (nil, nil).
func (d *Database) AuthenticateAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE username = $1`
	admin, err := scanAdmin(d.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return admin, nil
}

func (d *Database) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return scanAdmin(d.db.QueryRowContext(ctx, query, id))
}

func (d *Database) GetAdmins(ctx context.Context) ([]*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins ORDER BY created_at ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var admins []*models.Admin
	for rows.Next() {
		a := &models.Admin{}
		var perms string
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Level, &perms,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal([]byte(perms), &a.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return admins, nil
}

func (d *Database) UpdateAdmin(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error) {
	var perms *string
	if patch.Permissions != nil {
		encoded, err := encodePermissions(*patch.Permissions)
		if err != nil {
			return nil, err
		}
		perms = &encoded
	}

	query := `UPDATE admins SET
	            password_hash = COALESCE($2, password_hash),
	            level         = COALESCE($3, level),
	            permissions   = COALESCE($4, permissions),
	            updated_at    = $5
	          WHERE id = $1
	          RETURNING ` + adminColumns
	admin, err := scanAdmin(d.db.QueryRowContext(ctx, query,
		id, patch.PasswordHash, patch.Level, perms, now()))
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, fmt.Errorf("admin %s: %w", id, persist.ErrNotFound)
	}
	return admin, nil
}

func (d *Database) DeleteAdmin(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("admin %s: %w", id, persist.ErrNotFound)
	}
	return nil
}
