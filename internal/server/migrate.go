package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapgrid/snapgrid/internal/migrate"
	"github.com/snapgrid/snapgrid/internal/persist"
	"github.com/snapgrid/snapgrid/internal/response"
)

type migrateRequest struct {
	Backend string `json:"backend" binding:"required"`
}

// handleMigrate starts a migration from the active backend to the other one,
// using the server's configured settings for the destination.
func (app *App) handleMigrate(c *gin.Context) {
	var req migrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	cfg := app.config.PersistConfig()
	cfg.Backend = persist.Backend(req.Backend)
	if cfg.Backend != persist.BackendLocal && cfg.Backend != persist.BackendRemote {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "backend must be local or remote")
		return
	}

	if err := app.coordinator.MigrateTo(c.Request.Context(), cfg); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"backend": app.facade.Backend()})
}

func (app *App) handleMigrateRetry(c *gin.Context) {
	if err := app.coordinator.Retry(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"backend": app.facade.Backend()})
}

func (app *App) handleMigrateState(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"state":   app.coordinator.State(),
		"backend": app.facade.Backend(),
	})
}

// handleHealth probes the active triad. It never reports an error status
// for an unhealthy contract; the body carries per-contract results.
func (app *App) handleHealth(c *gin.Context) {
	triad, err := app.facade.Active()
	if err != nil {
		fail(c, err)
		return
	}

	h := migrate.CheckHealth(c.Request.Context(), triad)
	response.Success(c, http.StatusOK, gin.H{
		"backend": triad.Backend,
		"healthy": h.Healthy(),
		"checks":  h,
	})
}
