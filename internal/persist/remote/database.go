// Package remote implements the persistence contracts against a hosted
// backend: a PostgreSQL record store, an S3-compatible blob store with public
// URL issuance, and a credential service. Each entity operation is a single
// query; ordering, filtering, and pagination are pushed down to the server.
package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	"github.com/snapgrid/snapgrid/internal/persist"
	"github.com/snapgrid/snapgrid/internal/persist/remote/migrations"
)

// Database implements persist.DatabaseAdapter over PostgreSQL. The blob
// storage adapter is injected so record deletes can order the paired blob
// delete first.
type Database struct {
	db      *sql.DB
	storage persist.StorageAdapter
}

var _ persist.DatabaseAdapter = (*Database)(nil)

// NewDatabase returns a DatabaseAdapter over db, deleting blobs through
// storage.
func NewDatabase(db *sql.DB, storage persist.StorageAdapter) *Database {
	return &Database{db: db, storage: storage}
}

// OpenDB connects to PostgreSQL and verifies the connection.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// isUniqueViolation recognizes PostgreSQL unique-constraint errors.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// pagedSuffix appends ORDER BY/LIMIT/OFFSET to a list query, pushing the
// window down to the server. limit <= 0 means no limit.
func pagedSuffix(order string, args *[]any, limit, offset int) string {
	suffix := " ORDER BY " + order
	if limit > 0 {
		*args = append(*args, limit)
		suffix += fmt.Sprintf(" LIMIT $%d", len(*args))
	}
	if offset > 0 {
		*args = append(*args, offset)
		suffix += fmt.Sprintf(" OFFSET $%d", len(*args))
	}
	return suffix
}

func now() time.Time { return time.Now().UTC() }
