package local

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

func (d *Database) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	rec := *user
	rec.ID = uuid.NewString()
	ts := now()
	rec.CreatedAt = ts
	rec.UpdatedAt = ts
	if rec.LastLoginAt.IsZero() {
		rec.LastLoginAt = ts
	}

	err := d.store.update(func(tx *badger.Txn) error {
		devKey := indexKey(userDevicePrefix, rec.DeviceID)
		if err := ensureAbsent(tx, devKey, "user device", rec.DeviceID); err != nil {
			return err
		}
		if err := setJSON(tx, recordKey(userPrefix, rec.ID), rec); err != nil {
			return err
		}
		return tx.Set(devKey, []byte(rec.ID))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *Database) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := d.store.view(func(tx *badger.Txn) error {
		u, err := getJSON[models.User](tx, recordKey(userPrefix, id))
		user = u
		return err
	})
	return user, err
}

func (d *Database) GetUserByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	var user *models.User
	err := d.store.view(func(tx *badger.Txn) error {
		item, err := tx.Get(indexKey(userDevicePrefix, deviceID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(id []byte) error {
			u, err := getJSON[models.User](tx, recordKey(userPrefix, string(id)))
			user = u
			return err
		})
	})
	return user, err
}

func (d *Database) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	var updated *models.User
	err := d.store.update(func(tx *badger.Txn) error {
		key := recordKey(userPrefix, id)
		user, err := getJSON[models.User](tx, key)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %s: %w", id, persist.ErrNotFound)
		}
		if patch.DisplayName != nil {
			user.DisplayName = *patch.DisplayName
		}
		if patch.Email != nil {
			user.Email = *patch.Email
		}
		if patch.Active != nil {
			user.Active = *patch.Active
		}
		if patch.LastLoginAt != nil {
			user.LastLoginAt = *patch.LastLoginAt
		}
		user.UpdatedAt = now()
		updated = user
		return setJSON(tx, key, user)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *Database) DeleteUser(ctx context.Context, id string) error {
	return d.store.update(func(tx *badger.Txn) error {
		key := recordKey(userPrefix, id)
		user, err := getJSON[models.User](tx, key)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %s: %w", id, persist.ErrNotFound)
		}
		if err := tx.Delete(indexKey(userDevicePrefix, user.DeviceID)); err != nil {
			return err
		}
		return tx.Delete(key)
	})
}
