package local

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapgrid/snapgrid/internal/logging"
	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

func newTestBackend(t *testing.T) (*Database, *Storage) {
	t.Helper()
	store, err := Open(persist.LocalConfig{InMemory: true}, logging.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	storage := NewStorage(store)
	return NewDatabase(store, storage), storage
}

func createTestPage(t *testing.T, db *Database, code string) *models.MediaPage {
	t.Helper()
	page, err := db.CreateMediaPage(context.Background(), &models.MediaPage{
		Code:      code,
		Title:     "party",
		QuotaMB:   100,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		Active:    true,
	})
	require.NoError(t, err)
	return page
}

func TestUserLifecycle(t *testing.T) {
	db, _ := newTestBackend(t)
	ctx := context.Background()

	user, err := db.CreateUser(ctx, &models.User{DeviceID: "dev-1", DisplayName: "alice", Active: true})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.False(t, user.CreatedAt.IsZero())
	require.False(t, user.LastLoginAt.IsZero())

	got, err := db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.DisplayName)

	byDevice, err := db.GetUserByDeviceID(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, byDevice)
	assert.Equal(t, user.ID, byDevice.ID)

	_, err = db.CreateUser(ctx, &models.User{DeviceID: "dev-1"})
	require.ErrorIs(t, err, persist.ErrUniqueConstraint)

	name := "bob"
	updated, err := db.UpdateUser(ctx, user.ID, models.UserPatch{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "bob", updated.DisplayName)
	assert.True(t, updated.UpdatedAt.After(user.UpdatedAt) || updated.UpdatedAt.Equal(user.UpdatedAt))

	missing, err := db.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = db.UpdateUser(ctx, "nope", models.UserPatch{DisplayName: &name})
	require.ErrorIs(t, err, persist.ErrNotFound)

	require.NoError(t, db.DeleteUser(ctx, user.ID))
	require.ErrorIs(t, db.DeleteUser(ctx, user.ID), persist.ErrNotFound)

	gone, err := db.GetUserByDeviceID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPageCodeUnique(t *testing.T) {
	db, _ := newTestBackend(t)
	ctx := context.Background()

	createTestPage(t, db, "WEDDING")
	_, err := db.CreateMediaPage(ctx, &models.MediaPage{Code: "WEDDING", ExpiresAt: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, persist.ErrUniqueConstraint)

	page, err := db.GetMediaPageByCode(ctx, "WEDDING")
	require.NoError(t, err)
	require.NotNil(t, page)

	absent, err := db.GetMediaPageByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestMediaItemsOrderingAndWindow(t *testing.T) {
	db, _ := newTestBackend(t)
	ctx := context.Background()
	page := createTestPage(t, db, "ORD")

	var ids []string
	for i := 0; i < 5; i++ {
		item, err := db.CreateMediaItem(ctx, &models.MediaItem{
			PageID: page.ID,
			UserID: "u1",
			Type:   models.MediaTypeImage,
			Size:   10,
			Active: true,
		}, nil)
		require.NoError(t, err)
		ids = append(ids, item.ID)
		time.Sleep(time.Millisecond)
	}

	all, err := db.GetMediaItems(ctx, page.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	// newest first
	for i, item := range all {
		assert.Equal(t, ids[len(ids)-1-i], item.ID)
	}

	windowed, err := db.GetMediaItems(ctx, page.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, windowed, 2)
	assert.Equal(t, ids[3], windowed[0].ID)
	assert.Equal(t, ids[2], windowed[1].ID)

	past, err := db.GetMediaItems(ctx, page.ID, 10, 99)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestMediaItemBlobFlow(t *testing.T) {
	db, storage := newTestBackend(t)
	ctx := context.Background()
	page := createTestPage(t, db, "BLOB")

	item, err := db.CreateMediaItem(ctx, &models.MediaItem{
		PageID:   page.ID,
		UserID:   "u1",
		Type:     models.MediaTypeImage,
		BlobPath: "media/2026/9/1/photo.jpg",
		Active:   true,
	}, &persist.Blob{Data: []byte("jpegbytes"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(item.URL, "data:image/jpeg;base64,"))
	assert.Equal(t, int64(len("jpegbytes")), item.Size)

	blob, err := storage.DownloadFile(ctx, item.BlobPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegbytes"), blob.Data)

	require.NoError(t, db.DeleteMediaItem(ctx, item.ID))

	gone, err := db.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = storage.DownloadFile(ctx, item.BlobPath)
	require.ErrorIs(t, err, persist.ErrNotFound)

	require.ErrorIs(t, db.DeleteMediaItem(ctx, item.ID), persist.ErrNotFound)
}

// brokenDeleteStorage fails every blob delete, leaving uploads intact.
type brokenDeleteStorage struct {
	persist.StorageAdapter
}

func (b *brokenDeleteStorage) DeleteFile(ctx context.Context, path string) error {
	return errors.New("storage offline")
}

func TestDeleteMediaItemKeepsRecordWhenBlobDeleteFails(t *testing.T) {
	store, err := Open(persist.LocalConfig{InMemory: true}, logging.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	storage := &brokenDeleteStorage{StorageAdapter: NewStorage(store)}
	db := NewDatabase(store, storage)
	ctx := context.Background()
	page := createTestPage(t, db, "FAIL")

	item, err := db.CreateMediaItem(ctx, &models.MediaItem{
		PageID:   page.ID,
		UserID:   "u1",
		Type:     models.MediaTypeImage,
		BlobPath: "media/x",
		Active:   true,
	}, &persist.Blob{Data: []byte("x")})
	require.NoError(t, err)

	err = db.DeleteMediaItem(ctx, item.ID)
	require.ErrorIs(t, err, persist.ErrBlobOrphanRisk)

	// the record must survive an unconfirmed blob delete
	kept, err := db.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func TestMessagesSoftDelete(t *testing.T) {
	db, _ := newTestBackend(t)
	ctx := context.Background()
	page := createTestPage(t, db, "CHAT")

	var msgs []*models.ChatMessage
	for _, text := range []string{"hi", "hello", "bye"} {
		msg, err := db.CreateMessage(ctx, &models.ChatMessage{PageID: page.ID, UserID: "u1", Text: text})
		require.NoError(t, err)
		msgs = append(msgs, msg)
		time.Sleep(time.Millisecond)
	}

	require.NoError(t, db.DeleteMessage(ctx, msgs[1].ID))
	require.ErrorIs(t, db.DeleteMessage(ctx, "nope"), persist.ErrNotFound)

	live, err := db.GetMessages(ctx, page.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, live, 2)
	// oldest first
	assert.Equal(t, "hi", live[0].Text)
	assert.Equal(t, "bye", live[1].Text)
}

func TestDeleteMediaPageCascades(t *testing.T) {
	db, storage := newTestBackend(t)
	ctx := context.Background()
	page := createTestPage(t, db, "CASCADE")

	item, err := db.CreateMediaItem(ctx, &models.MediaItem{
		PageID:   page.ID,
		UserID:   "u1",
		Type:     models.MediaTypeVideo,
		BlobPath: "media/v1",
		Active:   true,
	}, &persist.Blob{Data: []byte("mp4")})
	require.NoError(t, err)

	msg, err := db.CreateMessage(ctx, &models.ChatMessage{PageID: page.ID, UserID: "u1", Text: "hello"})
	require.NoError(t, err)

	require.NoError(t, db.DeleteMediaPage(ctx, page.ID))

	gonePage, err := db.GetMediaPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Nil(t, gonePage)

	goneByCode, err := db.GetMediaPageByCode(ctx, "CASCADE")
	require.NoError(t, err)
	assert.Nil(t, goneByCode)

	goneItem, err := db.GetMediaItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, goneItem)

	_, err = storage.DownloadFile(ctx, "media/v1")
	require.ErrorIs(t, err, persist.ErrNotFound)

	msgs, err := db.GetMessages(ctx, page.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.ErrorIs(t, db.DeleteMediaPage(ctx, page.ID), persist.ErrNotFound)
	_ = msg
}

func TestAuthenticateAdmin(t *testing.T) {
	db, _ := newTestBackend(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	created, err := db.CreateAdmin(ctx, &models.Admin{
		Username:     "root",
		PasswordHash: string(hash),
		Level:        1,
		Permissions:  []string{"pages", "admins"},
	})
	require.NoError(t, err)

	_, err = db.CreateAdmin(ctx, &models.Admin{Username: "root", PasswordHash: string(hash)})
	require.ErrorIs(t, err, persist.ErrUniqueConstraint)

	admin, err := db.AuthenticateAdmin(ctx, "root", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, created.ID, admin.ID)

	wrong, err := db.AuthenticateAdmin(ctx, "root", "letmein")
	require.NoError(t, err)
	assert.Nil(t, wrong)

	unknown, err := db.AuthenticateAdmin(ctx, "ghost", "hunter2")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestAdminPasswordHashSurvivesStorage(t *testing.T) {
	db, _ := newTestBackend(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	created, err := db.CreateAdmin(ctx, &models.Admin{Username: "root", PasswordHash: string(hash)})
	require.NoError(t, err)

	// models.Admin hides the hash from API marshalling; the store must keep it.
	got, err := db.GetAdmin(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, string(hash), got.PasswordHash)

	admins, err := db.GetAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, string(hash), admins[0].PasswordHash)
}

func TestStatsAndActivity(t *testing.T) {
	db, _ := newTestBackend(t)
	ctx := context.Background()
	page := createTestPage(t, db, "STATS")

	_, err := db.CreateUser(ctx, &models.User{DeviceID: "d1"})
	require.NoError(t, err)

	item, err := db.CreateMediaItem(ctx, &models.MediaItem{
		PageID: page.ID, UserID: "u1", Type: models.MediaTypeImage, Size: 50, Active: true,
	}, nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	msg, err := db.CreateMessage(ctx, &models.ChatMessage{PageID: page.ID, UserID: "u2", Text: "hi"})
	require.NoError(t, err)

	stats, err := db.GetPageStats(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MediaCount)
	assert.Equal(t, int64(1), stats.MessageCount)
	assert.Equal(t, int64(2), stats.UserCount)
	assert.Equal(t, int64(50), stats.UsedBytes)
	assert.Equal(t, int64(100), stats.QuotaMB)

	_, err = db.GetPageStats(ctx, "nope")
	require.ErrorIs(t, err, persist.ErrNotFound)

	global, err := db.GetGlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), global.PageCount)
	assert.Equal(t, int64(1), global.MediaCount)
	assert.Equal(t, int64(1), global.MessageCount)
	assert.Equal(t, int64(1), global.UserCount)
	assert.Equal(t, int64(50), global.TotalBytes)

	acts, err := db.GetUserActivity(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityMedia, acts[0].Kind)
	assert.Equal(t, item.ID, acts[0].RefID)

	acts2, err := db.GetUserActivity(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, acts2, 1)
	assert.Equal(t, models.ActivityMessage, acts2[0].Kind)
	assert.Equal(t, msg.ID, acts2[0].RefID)

	// soft-deleted messages drop out of activity
	require.NoError(t, db.DeleteMessage(ctx, msg.ID))
	acts2, err = db.GetUserActivity(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, acts2)
}
