// Package backend constructs adapter triads from backend configuration. It is
// the only package that imports both concrete backends, keeping the facade
// and the migration coordinator free of those dependencies.
package backend

import (
	"context"
	"fmt"

	"github.com/snapgrid/snapgrid/internal/logging"
	"github.com/snapgrid/snapgrid/internal/persist"
	"github.com/snapgrid/snapgrid/internal/persist/local"
	"github.com/snapgrid/snapgrid/internal/persist/remote"
)

// Opener returns a persist.Opener closed over the logger.
func Opener(logger logging.Logger) persist.Opener {
	return func(ctx context.Context, cfg persist.Config) (*persist.Triad, error) {
		return Open(ctx, cfg, logger)
	}
}

// Open builds the adapter triad for cfg.Backend and registers its cleanup
// hooks.
func Open(ctx context.Context, cfg persist.Config, logger logging.Logger) (*persist.Triad, error) {
	switch cfg.Backend {
	case persist.BackendLocal:
		return openLocal(cfg.Local, logger)
	case persist.BackendRemote:
		return openRemote(ctx, cfg.Remote, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func openLocal(cfg persist.LocalConfig, logger logging.Logger) (*persist.Triad, error) {
	store, err := local.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	storage := local.NewStorage(store)
	triad := &persist.Triad{
		Backend:  persist.BackendLocal,
		Database: local.NewDatabase(store, storage),
		Storage:  storage,
	}
	triad.OnClose(store.Close)
	return triad, nil
}

func openRemote(ctx context.Context, cfg persist.RemoteConfig, logger logging.Logger) (*persist.Triad, error) {
	db, err := remote.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := remote.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	storage, err := remote.NewStorage(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	triad := &persist.Triad{
		Backend:  persist.BackendRemote,
		Database: remote.NewDatabase(db, storage),
		Storage:  storage,
		Auth:     remote.NewAuth(db, cfg, logger),
	}
	triad.OnClose(db.Close)
	return triad, nil
}
