// Package models defines the domain records shared by every storage backend.
// Records are plain data; identifiers and timestamps are assigned by whichever
// adapter creates the record.
package models

import "time"

// MediaType classifies an uploaded asset.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// User is the identity of an anonymous end-user, keyed by a unique device
// fingerprint. Users are created on first visit and soft-disabled rather than
// hard-deleted by normal flow.
type User struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Active      bool      `json:"active"`
	LastLoginAt time.Time `json:"last_login_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MediaItem is one uploaded asset. It belongs to exactly one MediaPage and one
// uploading User. BlobPath is the storage key of the backing blob; URL is the
// resolved representation served to clients.
type MediaItem struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	UserID    string    `json:"user_id"`
	Type      MediaType `json:"type"`
	URL       string    `json:"url"`
	BlobPath  string    `json:"blob_path"`
	Caption   string    `json:"caption,omitempty"`
	Size      int64     `json:"size"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is a text entry scoped to one MediaPage and one User.
// Messages are soft-deleted via the Deleted flag.
type ChatMessage struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}

// MediaPage is the sharing context and tenant boundary. Every MediaItem and
// ChatMessage is scoped to exactly one page. Code is a unique human-facing
// join code.
type MediaPage struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	QuotaMB   int64     `json:"quota_mb"`
	UsedBytes int64     `json:"used_bytes"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Admin is an operator identity. Level 1 is the highest privilege. Keeping
// Level and Permissions consistent is the calling layer's job.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Level        int       `json:"level"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PageStats aggregates usage for a single page.
type PageStats struct {
	PageID       string `json:"page_id"`
	MediaCount   int64  `json:"media_count"`
	MessageCount int64  `json:"message_count"`
	UserCount    int64  `json:"user_count"`
	UsedBytes    int64  `json:"used_bytes"`
	QuotaMB      int64  `json:"quota_mb"`
}

// GlobalStats aggregates usage across all pages.
type GlobalStats struct {
	PageCount    int64 `json:"page_count"`
	MediaCount   int64 `json:"media_count"`
	MessageCount int64 `json:"message_count"`
	UserCount    int64 `json:"user_count"`
	TotalBytes   int64 `json:"total_bytes"`
}

// ActivityKind tells which entity an activity entry refers to.
type ActivityKind string

const (
	ActivityMedia   ActivityKind = "media"
	ActivityMessage ActivityKind = "message"
)

// UserActivity is one upload or chat action by a user, used for per-user
// activity listings.
type UserActivity struct {
	UserID     string       `json:"user_id"`
	PageID     string       `json:"page_id"`
	Kind       ActivityKind `json:"kind"`
	RefID      string       `json:"ref_id"`
	OccurredAt time.Time    `json:"occurred_at"`
}
