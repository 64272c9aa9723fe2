package persist

import (
	"context"
	"fmt"
	"sync"

	"github.com/snapgrid/snapgrid/internal/logging"
)

// Triad bundles the adapter set for one backend. Auth is nil for backends
// without a credential service.
type Triad struct {
	Backend  Backend
	Database DatabaseAdapter
	Storage  StorageAdapter
	Auth     AuthAdapter

	closers []func() error
}

// OnClose registers a cleanup hook released by Close, in reverse order.
func (t *Triad) OnClose(fn func() error) {
	t.closers = append(t.closers, fn)
}

// Close releases every resource the triad holds. The first error wins but
// all hooks run.
func (t *Triad) Close() error {
	var first error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Opener constructs the adapter triad for a backend configuration. It is
// injected into the facade and the migration coordinator so neither package
// depends on concrete backends.
type Opener func(ctx context.Context, cfg Config) (*Triad, error)

// Facade holds the currently active adapter triad. It is an explicitly
// constructed service passed to callers, with lifecycle
// uninitialized -> initialized. The facade holds no data of its own: swapping
// the triad has no effect beyond redirecting subsequent accessor calls.
type Facade struct {
	open   Opener
	logger logging.Logger

	mu          sync.RWMutex
	triad       *Triad
	initialized bool
}

// NewFacade returns an uninitialized facade that will build adapters with
// open.
func NewFacade(open Opener, logger logging.Logger) *Facade {
	return &Facade{open: open, logger: logger.With("module", "persist")}
}

// Initialize selects and constructs the backend named by cfg.Backend. It is
// idempotent: calling it again while already initialized is a no-op and never
// re-initializes or clears existing data.
func (f *Facade) Initialize(ctx context.Context, cfg Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.initialized {
		f.logger.Debug(ctx, "initialize called twice, ignoring", "backend", cfg.Backend)
		return nil
	}

	triad, err := f.open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing %s backend: %w", cfg.Backend, err)
	}

	f.triad = triad
	f.initialized = true
	f.logger.Info(ctx, "persistence initialized", "backend", cfg.Backend)
	return nil
}

// Database returns the active DatabaseAdapter.
func (f *Facade) Database() (DatabaseAdapter, error) {
	t, err := f.active()
	if err != nil {
		return nil, err
	}
	return t.Database, nil
}

// Storage returns the active StorageAdapter.
func (f *Facade) Storage() (StorageAdapter, error) {
	t, err := f.active()
	if err != nil {
		return nil, err
	}
	return t.Storage, nil
}

// Auth returns the active AuthAdapter. ErrNoAuth if the active backend has no
// credential service.
func (f *Facade) Auth() (AuthAdapter, error) {
	t, err := f.active()
	if err != nil {
		return nil, err
	}
	if t.Auth == nil {
		return nil, ErrNoAuth
	}
	return t.Auth, nil
}

// Active returns the whole active triad. Callers needing paired database and
// storage handles use this so they never observe handles from two different
// backends.
func (f *Facade) Active() (*Triad, error) {
	return f.active()
}

// Backend reports which backend is active, or empty before Initialize.
func (f *Facade) Backend() Backend {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.triad == nil {
		return ""
	}
	return f.triad.Backend
}

// Swap atomically replaces the active triad and returns the previous one.
// Only the migration coordinator's commit step may call this; readers never
// observe a half-updated triad.
func (f *Facade) Swap(t *Triad) *Triad {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.triad
	f.triad = t
	f.initialized = true
	return prev
}

// Close releases the active triad's resources and returns the facade to the
// uninitialized state.
func (f *Facade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.triad == nil {
		return nil
	}
	err := f.triad.Close()
	f.triad = nil
	f.initialized = false
	return err
}

func (f *Facade) active() (*Triad, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.initialized || f.triad == nil {
		return nil, ErrUninitialized
	}
	return f.triad, nil
}
