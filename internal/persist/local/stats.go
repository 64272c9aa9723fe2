package local

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// The embedded store has no server-side aggregates, so statistics are
// recomputed by reading the matched records.

func (d *Database) GetPageStats(ctx context.Context, pageID string) (*models.PageStats, error) {
	page, err := d.GetMediaPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("page %s: %w", pageID, persist.ErrNotFound)
	}

	items, err := d.GetMediaItems(ctx, pageID, 0, 0)
	if err != nil {
		return nil, err
	}
	msgs, err := d.GetMessages(ctx, pageID, 0, 0)
	if err != nil {
		return nil, err
	}

	users := make(map[string]struct{})
	var usedBytes int64
	for _, it := range items {
		users[it.UserID] = struct{}{}
		usedBytes += it.Size
	}
	for _, m := range msgs {
		users[m.UserID] = struct{}{}
	}

	return &models.PageStats{
		PageID:       pageID,
		MediaCount:   int64(len(items)),
		MessageCount: int64(len(msgs)),
		UserCount:    int64(len(users)),
		UsedBytes:    usedBytes,
		QuotaMB:      page.QuotaMB,
	}, nil
}

func (d *Database) GetGlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	stats := &models.GlobalStats{}
	err := d.store.view(func(tx *badger.Txn) error {
		pages, err := collect[models.MediaPage](tx, collectionPrefix(pagePrefix))
		if err != nil {
			return err
		}
		items, err := collect[models.MediaItem](tx, collectionPrefix(mediaPrefix))
		if err != nil {
			return err
		}
		msgs, err := collect[models.ChatMessage](tx, collectionPrefix(messagePrefix))
		if err != nil {
			return err
		}
		users, err := collect[models.User](tx, collectionPrefix(userPrefix))
		if err != nil {
			return err
		}

		stats.PageCount = int64(len(pages))
		stats.MediaCount = int64(len(items))
		stats.UserCount = int64(len(users))
		for _, it := range items {
			stats.TotalBytes += it.Size
		}
		for _, m := range msgs {
			if !m.Deleted {
				stats.MessageCount++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (d *Database) GetUserActivity(ctx context.Context, userID string) ([]*models.UserActivity, error) {
	var acts []*models.UserActivity
	err := d.store.view(func(tx *badger.Txn) error {
		mediaIDs, err := indexedIDs(tx, scopedPrefix(mediaUserPrefix, userID))
		if err != nil {
			return err
		}
		for _, id := range mediaIDs {
			item, err := getJSON[models.MediaItem](tx, recordKey(mediaPrefix, id))
			if err != nil {
				return err
			}
			if item != nil {
				acts = append(acts, &models.UserActivity{
					UserID:     userID,
					PageID:     item.PageID,
					Kind:       models.ActivityMedia,
					RefID:      item.ID,
					OccurredAt: item.CreatedAt,
				})
			}
		}

		msgIDs, err := indexedIDs(tx, scopedPrefix(messageUserPrefix, userID))
		if err != nil {
			return err
		}
		for _, id := range msgIDs {
			msg, err := getJSON[models.ChatMessage](tx, recordKey(messagePrefix, id))
			if err != nil {
				return err
			}
			if msg != nil && !msg.Deleted {
				acts = append(acts, &models.UserActivity{
					UserID:     userID,
					PageID:     msg.PageID,
					Kind:       models.ActivityMessage,
					RefID:      msg.ID,
					OccurredAt: msg.CreatedAt,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(acts, func(i, j int) bool {
		if !acts[i].OccurredAt.Equal(acts[j].OccurredAt) {
			return acts[i].OccurredAt.After(acts[j].OccurredAt)
		}
		return acts[i].RefID > acts[j].RefID
	})
	return acts, nil
}
