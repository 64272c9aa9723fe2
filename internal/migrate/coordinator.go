// Package migrate moves the full data set from the active backend to another
// one and commits the switch by swapping the facade's adapter triad.
package migrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/snapgrid/snapgrid/internal/logging"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// State is the coordinator's lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateExporting State = "exporting"
	StateImporting State = "importing"
	StateFailed    State = "failed"
)

// Coordinator runs one migration at a time. The source backend stays active
// and untouched until the destination import finishes; only then is the
// facade's triad swapped. A failed run keeps its snapshot and target so Retry
// can re-run the import without re-reading the source.
type Coordinator struct {
	facade *persist.Facade
	open   persist.Opener
	logger logging.Logger

	mu     sync.Mutex
	state  State
	snap   *snapshot
	target persist.Config
}

func NewCoordinator(facade *persist.Facade, open persist.Opener, logger logging.Logger) *Coordinator {
	return &Coordinator{
		facade: facade,
		open:   open,
		logger: logger.With("module", "migrate"),
		state:  StateIdle,
	}
}

// State reports the current phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MigrateTo exports the active backend and imports everything into the
// backend described by cfg. On success the facade is swapped to the new triad
// and the old one is closed. On failure the source stays active and the
// coordinator enters StateFailed.
func (c *Coordinator) MigrateTo(ctx context.Context, cfg persist.Config) error {
	if err := c.begin(cfg, nil); err != nil {
		return err
	}
	return c.run(ctx)
}

// Retry re-runs a failed migration against the same target, reusing the
// retained snapshot when the export had already completed.
func (c *Coordinator) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateFailed {
		c.mu.Unlock()
		return fmt.Errorf("nothing to retry in state %s", c.state)
	}
	c.state = StateExporting
	c.mu.Unlock()
	return c.run(ctx)
}

func (c *Coordinator) begin(cfg persist.Config, snap *snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateExporting || c.state == StateImporting {
		return persist.ErrMigrationInProgress
	}
	c.state = StateExporting
	c.target = cfg
	c.snap = snap
	return nil
}

func (c *Coordinator) run(ctx context.Context) error {
	source, err := c.facade.Active()
	if err != nil {
		c.fail()
		return err
	}
	cfg := c.targetConfig()
	if source.Backend == cfg.Backend {
		c.fail()
		return fmt.Errorf("source and destination are both %s", cfg.Backend)
	}

	if c.currentSnapshot() == nil {
		c.logger.Info(ctx, "exporting source backend", "backend", source.Backend)
		snap, err := export(ctx, source)
		if err != nil {
			c.fail()
			return err
		}
		c.setSnapshot(snap)
	}

	c.setState(StateImporting)
	c.logger.Info(ctx, "opening destination backend", "backend", cfg.Backend)
	dest, err := c.open(ctx, cfg)
	if err != nil {
		c.fail()
		return fmt.Errorf("opening destination: %w", err)
	}

	if err := c.importInto(ctx, dest); err != nil {
		if cerr := dest.Close(); cerr != nil {
			c.logger.Error(ctx, "closing failed destination", "error", cerr)
		}
		c.fail()
		return err
	}

	prev := c.facade.Swap(dest)
	if prev != nil {
		if err := prev.Close(); err != nil {
			c.logger.Error(ctx, "closing previous backend", "error", err)
		}
	}

	c.mu.Lock()
	c.state = StateIdle
	c.snap = nil
	c.mu.Unlock()
	c.logger.Info(ctx, "migration committed", "backend", cfg.Backend)
	return nil
}

// importInto replays the snapshot into dest. Destination creates assign new
// IDs, so references are remapped as records land. The first failed record
// halts the whole import.
func (c *Coordinator) importInto(ctx context.Context, dest *persist.Triad) error {
	snap := c.currentSnapshot()

	for _, admin := range snap.admins {
		if _, err := dest.Database.CreateAdmin(ctx, admin); err != nil {
			return &persist.MigrationHaltedError{Entity: "admin", ID: admin.ID, Err: err}
		}
	}

	userIDs := make(map[string]string, len(snap.users))
	for _, user := range snap.users {
		created, err := dest.Database.CreateUser(ctx, user)
		if err != nil {
			return &persist.MigrationHaltedError{Entity: "user", ID: user.ID, Err: err}
		}
		userIDs[user.ID] = created.ID
	}
	remapUser := func(id string) string {
		if mapped, ok := userIDs[id]; ok {
			return mapped
		}
		return id
	}

	for _, pe := range snap.pages {
		page, err := dest.Database.CreateMediaPage(ctx, pe.page)
		if err != nil {
			return &persist.MigrationHaltedError{Entity: "media_page", ID: pe.page.ID, Err: err}
		}

		// Items were exported newest-first; create oldest-first so the
		// destination's assigned timestamps keep the display order.
		for i := len(pe.items) - 1; i >= 0; i-- {
			ie := pe.items[i]
			item := *ie.item
			item.PageID = page.ID
			item.UserID = remapUser(item.UserID)
			if _, err := dest.Database.CreateMediaItem(ctx, &item, ie.blob); err != nil {
				return &persist.MigrationHaltedError{Entity: "media_item", ID: ie.item.ID, Err: err}
			}
		}

		for _, src := range pe.messages {
			msg := *src
			msg.PageID = page.ID
			msg.UserID = remapUser(msg.UserID)
			if _, err := dest.Database.CreateMessage(ctx, &msg); err != nil {
				return &persist.MigrationHaltedError{Entity: "chat_message", ID: src.ID, Err: err}
			}
		}
	}

	return nil
}

func (c *Coordinator) fail() {
	c.mu.Lock()
	c.state = StateFailed
	c.mu.Unlock()
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) setSnapshot(s *snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

func (c *Coordinator) currentSnapshot() *snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Coordinator) targetConfig() persist.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}
