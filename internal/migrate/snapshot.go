package migrate

import (
	"context"
	"fmt"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// snapshot is a full export of one backend, held in memory between the export
// and import phases. A failed import keeps the snapshot so Retry does not
// re-read the source.
type snapshot struct {
	admins []*models.Admin
	users  []*models.User
	pages  []*pageExport
}

type pageExport struct {
	page     *models.MediaPage
	items    []*itemExport
	messages []*models.ChatMessage
}

type itemExport struct {
	item *models.MediaItem
	blob *persist.Blob
}

// export reads every record and blob out of the source triad. Authors are
// gathered transitively from media items and chat messages, so users with no
// content are not carried over.
func export(ctx context.Context, src *persist.Triad) (*snapshot, error) {
	snap := &snapshot{}

	admins, err := src.Database.GetAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting admins: %w", err)
	}
	snap.admins = admins

	pages, err := src.Database.GetMediaPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting pages: %w", err)
	}

	authorIDs := map[string]bool{}
	for _, page := range pages {
		pe := &pageExport{page: page}

		items, err := src.Database.GetMediaItems(ctx, page.ID, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("exporting items of page %s: %w", page.ID, err)
		}
		for _, item := range items {
			ie := &itemExport{item: item}
			if item.BlobPath != "" {
				blob, err := src.Storage.DownloadFile(ctx, item.BlobPath)
				if err != nil {
					return nil, fmt.Errorf("exporting blob of item %s: %w", item.ID, err)
				}
				ie.blob = &blob
			}
			pe.items = append(pe.items, ie)
			authorIDs[item.UserID] = true
		}

		messages, err := src.Database.GetMessages(ctx, page.ID, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("exporting messages of page %s: %w", page.ID, err)
		}
		pe.messages = messages
		for _, msg := range messages {
			authorIDs[msg.UserID] = true
		}

		snap.pages = append(snap.pages, pe)
	}

	for id := range authorIDs {
		user, err := src.Database.GetUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("exporting user %s: %w", id, err)
		}
		if user != nil {
			snap.users = append(snap.users, user)
		}
	}

	return snap, nil
}
