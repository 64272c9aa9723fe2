package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/response"
)

type createPageRequest struct {
	Code      string    `json:"code" binding:"required"`
	Title     string    `json:"title"`
	QuotaMB   int64     `json:"quota_mb"`
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
}

func (app *App) handleCreatePage(c *gin.Context) {
	var req createPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	page, err := db.CreateMediaPage(c.Request.Context(), &models.MediaPage{
		Code:      req.Code,
		Title:     req.Title,
		QuotaMB:   req.QuotaMB,
		ExpiresAt: req.ExpiresAt,
		Active:    true,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, page)
}

// handleGetPage resolves a page by its join code. Expired or deactivated
// pages are reported as missing to visitors.
func (app *App) handleGetPage(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	page, err := db.GetMediaPageByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	if page == nil || !page.Active || page.ExpiresAt.Before(time.Now()) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "page not found")
		return
	}

	response.Success(c, http.StatusOK, page)
}

func (app *App) handleListPages(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	pages, err := db.GetMediaPages(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, pages)
}

type updatePageRequest struct {
	Title     *string    `json:"title"`
	QuotaMB   *int64     `json:"quota_mb"`
	ExpiresAt *time.Time `json:"expires_at"`
	Active    *bool      `json:"active"`
}

func (app *App) handleUpdatePage(c *gin.Context) {
	var req updatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	page, err := db.UpdateMediaPage(c.Request.Context(), c.Param("id"), models.MediaPagePatch{
		Title:     req.Title,
		QuotaMB:   req.QuotaMB,
		ExpiresAt: req.ExpiresAt,
		Active:    req.Active,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, page)
}

func (app *App) handleDeletePage(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	if err := db.DeleteMediaPage(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
