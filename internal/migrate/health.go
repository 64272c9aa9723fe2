package migrate

import (
	"context"

	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/persist"
)

// Health reports per-contract probe results for one triad. Probes never
// return errors; an unhealthy contract is just false.
type Health struct {
	Database bool `json:"database"`
	Storage  bool `json:"storage"`
	Auth     bool `json:"auth"`
}

// Healthy is true when every contract probe passed.
func (h Health) Healthy() bool {
	return h.Database && h.Storage && h.Auth
}

// CheckHealth probes each adapter of the triad with a cheap round trip. The
// storage probe writes and removes a throwaway object. A backend without an
// auth service reports Auth true, since there is nothing to be unhealthy.
func CheckHealth(ctx context.Context, t *persist.Triad) Health {
	h := Health{Auth: true}

	if _, err := t.Database.GetMediaPages(ctx); err == nil {
		h.Database = true
	}

	probe := "healthz/" + uuid.NewString()
	blob := persist.Blob{Data: []byte("ok"), ContentType: "text/plain"}
	if _, err := t.Storage.UploadFile(ctx, blob, probe); err == nil {
		if err := t.Storage.DeleteFile(ctx, probe); err == nil {
			h.Storage = true
		}
	}

	if t.Auth != nil {
		// ResetPassword is silent for unknown emails, so a throwaway address
		// forces an account lookup without touching any real credential.
		err := t.Auth.ResetPassword(ctx, "healthz-"+uuid.NewString()+"@invalid")
		h.Auth = err == nil
	}

	return h
}
