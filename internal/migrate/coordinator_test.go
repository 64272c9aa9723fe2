package migrate

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
	"github.com/snapgrid/snapgrid/internal/persist/local"
)

// memOpener builds an in-memory triad for any backend label, so migrations
// between two live backends can run entirely in the test process.
func memOpener(t *testing.T) persist.Opener {
	t.Helper()
	return func(ctx context.Context, cfg persist.Config) (*persist.Triad, error) {
		store, err := local.Open(persist.LocalConfig{InMemory: true}, logging.Nop{})
		if err != nil {
			return nil, err
		}
		storage := local.NewStorage(store)
		triad := &persist.Triad{
			Backend:  cfg.Backend,
			Database: local.NewDatabase(store, storage),
			Storage:  storage,
		}
		triad.OnClose(store.Close)
		return triad, nil
	}
}

func seedSource(t *testing.T, db persist.DatabaseAdapter) (page *models.MediaPage, user *models.User) {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = db.CreateAdmin(ctx, &models.Admin{Username: "root", PasswordHash: string(hash), Level: 1})
	require.NoError(t, err)

	user, err = db.CreateUser(ctx, &models.User{DeviceID: "dev-1", DisplayName: "alice", Active: true})
	require.NoError(t, err)

	page, err = db.CreateMediaPage(ctx, &models.MediaPage{
		Code: "PARTY", Title: "party", QuotaMB: 10,
		ExpiresAt: time.Now().Add(time.Hour), Active: true,
	})
	require.NoError(t, err)

	_, err = db.CreateMediaItem(ctx, &models.MediaItem{
		PageID: page.ID, UserID: user.ID, Type: models.MediaTypeImage,
		BlobPath: "media/a.jpg", Active: true,
	}, &persist.Blob{Data: []byte("jpeg"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	_, err = db.CreateMediaItem(ctx, &models.MediaItem{
		PageID: page.ID, UserID: user.ID, Type: models.MediaTypeImage,
		BlobPath: "media/b.jpg", Active: true,
	}, &persist.Blob{Data: []byte("jpeg2"), ContentType: "image/jpeg"})
	require.NoError(t, err)

	for _, text := range []string{"hi", "bye"} {
		_, err = db.CreateMessage(ctx, &models.ChatMessage{PageID: page.ID, UserID: user.ID, Text: text})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	return page, user
}

func TestMigrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	open := memOpener(t)

	facade := persist.NewFacade(open, logging.Nop{})
	require.NoError(t, facade.Initialize(ctx, persist.Config{Backend: persist.BackendLocal}))
	t.Cleanup(func() { _ = facade.Close() })

	srcDB, err := facade.Database()
	require.NoError(t, err)
	srcPage, _ := seedSource(t, srcDB)

	c := NewCoordinator(facade, open, logging.Nop{})
	require.NoError(t, c.MigrateTo(ctx, persist.Config{Backend: persist.BackendRemote}))

	assert.Equal(t, persist.BackendRemote, facade.Backend())
	assert.Equal(t, StateIdle, c.State())

	db, err := facade.Database()
	require.NoError(t, err)

	page, err := db.GetMediaPageByCode(ctx, "PARTY")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.NotEqual(t, srcPage.ID, page.ID, "destination assigns fresh ids")
	assert.Equal(t, int64(10), page.QuotaMB)

	user, err := db.GetUserByDeviceID(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, user)

	items, err := db.GetMediaItems(ctx, page.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// newest first, authorship remapped, blobs copied
	assert.Equal(t, "media/b.jpg", items[0].BlobPath)
	assert.Equal(t, "media/a.jpg", items[1].BlobPath)
	for _, item := range items {
		assert.Equal(t, user.ID, item.UserID)
		assert.True(t, strings.HasPrefix(item.URL, "data:image/jpeg;base64,"))
	}

	storage, err := facade.Storage()
	require.NoError(t, err)
	blob, err := storage.DownloadFile(ctx, "media/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), blob.Data)

	msgs, err := db.GetMessages(ctx, page.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "bye", msgs[1].Text)
	assert.Equal(t, user.ID, msgs[0].UserID)

	admin, err := db.AuthenticateAdmin(ctx, "root", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, admin)
}

// failingCreateUserDB wraps a database and rejects every user create.
type failingCreateUserDB struct {
	persist.DatabaseAdapter
}

func (f *failingCreateUserDB) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	return nil, errors.New("dest rejected")
}

func TestMigrateHaltKeepsSourceActiveAndRetryRecovers(t *testing.T) {
	ctx := context.Background()
	open := memOpener(t)

	facade := persist.NewFacade(open, logging.Nop{})
	require.NoError(t, facade.Initialize(ctx, persist.Config{Backend: persist.BackendLocal}))
	t.Cleanup(func() { _ = facade.Close() })

	srcDB, err := facade.Database()
	require.NoError(t, err)
	seedSource(t, srcDB)

	broken := true
	brokenOpen := func(ctx context.Context, cfg persist.Config) (*persist.Triad, error) {
		triad, err := open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if broken {
			triad.Database = &failingCreateUserDB{DatabaseAdapter: triad.Database}
		}
		return triad, nil
	}

	c := NewCoordinator(facade, brokenOpen, logging.Nop{})
	err = c.MigrateTo(ctx, persist.Config{Backend: persist.BackendRemote})
	require.Error(t, err)

	var halted *persist.MigrationHaltedError
	require.ErrorAs(t, err, &halted)
	assert.Equal(t, "user", halted.Entity)

	// source stays in place, data untouched
	assert.Equal(t, persist.BackendLocal, facade.Backend())
	assert.Equal(t, StateFailed, c.State())
	pages, err := srcDB.GetMediaPages(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	broken = false
	require.NoError(t, c.Retry(ctx))
	assert.Equal(t, persist.BackendRemote, facade.Backend())
	assert.Equal(t, StateIdle, c.State())

	db, err := facade.Database()
	require.NoError(t, err)
	page, err := db.GetMediaPageByCode(ctx, "PARTY")
	require.NoError(t, err)
	require.NotNil(t, page)
}

func TestMigrateRejectsConcurrentRun(t *testing.T) {
	facade := persist.NewFacade(memOpener(t), logging.Nop{})
	c := NewCoordinator(facade, memOpener(t), logging.Nop{})

	c.mu.Lock()
	c.state = StateImporting
	c.mu.Unlock()

	err := c.MigrateTo(context.Background(), persist.Config{Backend: persist.BackendRemote})
	require.ErrorIs(t, err, persist.ErrMigrationInProgress)
}

func TestMigrateRejectsSameBackend(t *testing.T) {
	ctx := context.Background()
	open := memOpener(t)
	facade := persist.NewFacade(open, logging.Nop{})
	require.NoError(t, facade.Initialize(ctx, persist.Config{Backend: persist.BackendLocal}))
	t.Cleanup(func() { _ = facade.Close() })

	c := NewCoordinator(facade, open, logging.Nop{})
	err := c.MigrateTo(ctx, persist.Config{Backend: persist.BackendLocal})
	require.Error(t, err)
	assert.Equal(t, StateFailed, c.State())
}

func TestRetryWithoutFailure(t *testing.T) {
	c := NewCoordinator(persist.NewFacade(memOpener(t), logging.Nop{}), memOpener(t), logging.Nop{})
	require.Error(t, c.Retry(context.Background()))
}
