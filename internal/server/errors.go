package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapgrid/snapgrid/internal/persist"
	"github.com/snapgrid/snapgrid/internal/response"
)

// fail maps persistence errors onto envelope replies.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, persist.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, persist.ErrUniqueConstraint):
		response.Error(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, persist.ErrUninitialized):
		response.Error(c, http.StatusServiceUnavailable, "UNINITIALIZED", err.Error())
	case errors.Is(err, persist.ErrMigrationInProgress):
		response.Error(c, http.StatusConflict, "MIGRATION_IN_PROGRESS", err.Error())
	case errors.Is(err, persist.ErrBlobOrphanRisk):
		response.Error(c, http.StatusBadGateway, "BLOB_DELETE_FAILED", err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}
