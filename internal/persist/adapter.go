// Package persist defines the backend-agnostic persistence contracts, the
// error taxonomy shared by their implementations, and the facade that holds
// the currently active adapter triad. Application code consumes storage
// strictly through these interfaces; it never names a concrete backend.
package persist

import (
	"context"
	"time"

	"github.com/snapgrid/snapgrid/internal/models"
)

// Blob is an in-memory binary asset handed to a StorageAdapter.
type Blob struct {
	Data        []byte
	ContentType string
}

// FileUpload pairs a blob with the file name it should be stored under when
// uploading a batch below a common base path.
type FileUpload struct {
	Name string
	Blob Blob
}

// FileMetadata describes a stored blob.
type FileMetadata struct {
	Path        string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}

// DatabaseAdapter is the record-store contract. Single-record lookups return
// (nil, nil) when the record is absent. Creates assign the record's ID and
// timestamps and return the stored copy. List operations order media items by
// CreatedAt descending and chat messages by CreatedAt ascending, ties broken
// by id; limit <= 0 means no limit.
type DatabaseAdapter interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByDeviceID(ctx context.Context, deviceID string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error

	// CreateMediaItem uploads blob (when non-nil) under item.BlobPath before
	// creating the record, and resolves item.URL from the stored blob. A
	// record is never created pointing at a blob that was not confirmed
	// written.
	CreateMediaItem(ctx context.Context, item *models.MediaItem, blob *Blob) (*models.MediaItem, error)
	GetMediaItems(ctx context.Context, pageID string, limit, offset int) ([]*models.MediaItem, error)
	GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error)
	UpdateMediaItem(ctx context.Context, id string, patch models.MediaItemPatch) (*models.MediaItem, error)
	// DeleteMediaItem deletes the backing blob before the record. If the
	// blob delete fails the record delete is not reported as successful;
	// the error wraps ErrBlobOrphanRisk.
	DeleteMediaItem(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	GetMessages(ctx context.Context, pageID string, limit, offset int) ([]*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, id string) error

	CreateMediaPage(ctx context.Context, page *models.MediaPage) (*models.MediaPage, error)
	GetMediaPage(ctx context.Context, id string) (*models.MediaPage, error)
	GetMediaPageByCode(ctx context.Context, code string) (*models.MediaPage, error)
	UpdateMediaPage(ctx context.Context, id string, patch models.MediaPagePatch) (*models.MediaPage, error)
	GetMediaPages(ctx context.Context) ([]*models.MediaPage, error)
	DeleteMediaPage(ctx context.Context, id string) error

	AuthenticateAdmin(ctx context.Context, username, password string) (*models.Admin, error)
	CreateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	GetAdmin(ctx context.Context, id string) (*models.Admin, error)
	GetAdmins(ctx context.Context) ([]*models.Admin, error)
	UpdateAdmin(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error

	GetPageStats(ctx context.Context, pageID string) (*models.PageStats, error)
	GetGlobalStats(ctx context.Context) (*models.GlobalStats, error)
	GetUserActivity(ctx context.Context, userID string) ([]*models.UserActivity, error)
}

// StorageAdapter is the blob-store contract. Paths are caller-chosen; an
// adapter must not rewrite a caller-supplied path.
type StorageAdapter interface {
	// UploadFile stores data under path and returns the path it was stored
	// at, which is always the caller's path.
	UploadFile(ctx context.Context, blob Blob, path string) (string, error)
	UploadFiles(ctx context.Context, files []FileUpload, basePath string) ([]string, error)
	// DownloadFile returns the stored bytes, or ErrNotFound.
	DownloadFile(ctx context.Context, path string) (Blob, error)
	DeleteFile(ctx context.Context, path string) error
	DeleteFiles(ctx context.Context, paths []string) error
	// GetFileURL resolves a stored path to a URL clients can render. The
	// local backend returns a self-contained data URL; the remote backend
	// returns a public object URL. Missing paths yield ErrNotFound.
	GetFileURL(ctx context.Context, path string) (string, error)
	GetFileMetadata(ctx context.Context, path string) (*FileMetadata, error)
}

// Account is a credential identity held by an AuthAdapter.
type Account struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Session is an authenticated credential session.
type Session struct {
	Token     string
	Account   Account
	ExpiresAt time.Time
}

// AuthAdapter is the optional credential-service contract. The local backend
// has no auth concept; its triad carries a nil AuthAdapter.
type AuthAdapter interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	GetCurrentUser(ctx context.Context, token string) (*Account, error)
	ResetPassword(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, token, newPassword string) error
}
