package models

import "time"

// Patch types carry partial updates. A nil field means "leave unchanged".

type UserPatch struct {
	DisplayName *string
	Email       *string
	Active      *bool
	LastLoginAt *time.Time
}

type MediaItemPatch struct {
	Caption  *string
	Active   *bool
	URL      *string
	BlobPath *string
}

type MediaPagePatch struct {
	Title     *string
	QuotaMB   *int64
	UsedBytes *int64
	ExpiresAt *time.Time
	Active    *bool
}

type AdminPatch struct {
	PasswordHash *string
	Level        *int
	Permissions  *[]string
}
