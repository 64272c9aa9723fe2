package local

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// storedAdmin is the on-disk shape of an Admin. models.Admin hides the
// password hash from API marshalling with json:"-", so admin records get
// their own tags for the record store.
type storedAdmin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Level        int       `json:"level"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toStoredAdmin(a *models.Admin) *storedAdmin {
	return &storedAdmin{
		ID:           a.ID,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Level:        a.Level,
		Permissions:  a.Permissions,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (s *storedAdmin) admin() *models.Admin {
	return &models.Admin{
		ID:           s.ID,
		Username:     s.Username,
		PasswordHash: s.PasswordHash,
		Level:        s.Level,
		Permissions:  s.Permissions,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (d *Database) CreateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	rec := *admin
	rec.ID = uuid.NewString()
	ts := now()
	rec.CreatedAt = ts
	rec.UpdatedAt = ts

	err := d.store.update(func(tx *badger.Txn) error {
		nameKey := indexKey(adminUsernamePrefix, rec.Username)
		if err := ensureAbsent(tx, nameKey, "admin username", rec.Username); err != nil {
			return err
		}
		if err := setJSON(tx, recordKey(adminPrefix, rec.ID), toStoredAdmin(&rec)); err != nil {
			return err
		}
		return tx.Set(nameKey, []byte(rec.ID))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// AuthenticateAdmin verifies the password against the stored bcrypt hash.
// Unknown username and wrong password are both reported as (nil, nil).
func (d *Database) AuthenticateAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	var stored *storedAdmin
	err := d.store.view(func(tx *badger.Txn) error {
		item, err := tx.Get(indexKey(adminUsernamePrefix, username))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(id []byte) error {
			a, err := getJSON[storedAdmin](tx, recordKey(adminPrefix, string(id)))
			stored = a
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return stored.admin(), nil
}

func (d *Database) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	var admin *models.Admin
	err := d.store.view(func(tx *badger.Txn) error {
		a, err := getJSON[storedAdmin](tx, recordKey(adminPrefix, id))
		if a != nil {
			admin = a.admin()
		}
		return err
	})
	return admin, err
}

func (d *Database) GetAdmins(ctx context.Context) ([]*models.Admin, error) {
	var admins []*models.Admin
	err := d.store.view(func(tx *badger.Txn) error {
		stored, err := collect[storedAdmin](tx, collectionPrefix(adminPrefix))
		if err != nil {
			return err
		}
		for _, s := range stored {
			admins = append(admins, s.admin())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(admins, func(i, j int) bool {
		if !admins[i].CreatedAt.Equal(admins[j].CreatedAt) {
			return admins[i].CreatedAt.Before(admins[j].CreatedAt)
		}
		return admins[i].ID < admins[j].ID
	})
	return admins, nil
}

func (d *Database) UpdateAdmin(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error) {
	var updated *models.Admin
	err := d.store.update(func(tx *badger.Txn) error {
		key := recordKey(adminPrefix, id)
		stored, err := getJSON[storedAdmin](tx, key)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("admin %s: %w", id, persist.ErrNotFound)
		}
		if patch.PasswordHash != nil {
			stored.PasswordHash = *patch.PasswordHash
		}
		if patch.Level != nil {
			stored.Level = *patch.Level
		}
		if patch.Permissions != nil {
			stored.Permissions = *patch.Permissions
		}
		stored.UpdatedAt = now()
		updated = stored.admin()
		return setJSON(tx, key, stored)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *Database) DeleteAdmin(ctx context.Context, id string) error {
	return d.store.update(func(tx *badger.Txn) error {
		key := recordKey(adminPrefix, id)
		admin, err := getJSON[storedAdmin](tx, key)
		if err != nil {
			return err
		}
		if admin == nil {
			return fmt.Errorf("admin %s: %w", id, persist.ErrNotFound)
		}
		if err := tx.Delete(indexKey(adminUsernamePrefix, admin.Username)); err != nil {
			return err
		}
		return tx.Delete(key)
	})
}
