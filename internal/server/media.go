package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
	"github.com/snapgrid/snapgrid/internal/response"
)

// pageWindow reads limit/offset query parameters. Absent limit means all.
func pageWindow(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// visitorPage resolves the :code parameter to a live page, replying 404 when
// the page is missing, expired, or deactivated.
func (app *App) visitorPage(c *gin.Context) *models.MediaPage {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return nil
	}
	page, err := db.GetMediaPageByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return nil
	}
	if page == nil || !page.Active || page.ExpiresAt.Before(time.Now()) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "page not found")
		return nil
	}
	return page
}

func (app *App) handleListMedia(c *gin.Context) {
	page := app.visitorPage(c)
	if page == nil {
		return
	}

	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	limit, offset := pageWindow(c)
	items, err := db.GetMediaItems(c.Request.Context(), page.ID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// handleUploadMedia accepts a multipart upload. The blob is stored under a
// date-partitioned key, the record is created against it, and the page's
// used-bytes counter is advanced.
func (app *App) handleUploadMedia(c *gin.Context) {
	page := app.visitorPage(c)
	if page == nil {
		return
	}

	userID := c.PostForm("user_id")
	if userID == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "user_id is required")
		return
	}
	mediaType := models.MediaType(c.DefaultPostForm("type", string(models.MediaTypeImage)))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required")
		return
	}

	if page.QuotaMB > 0 && page.UsedBytes+fileHeader.Size > page.QuotaMB*1024*1024 {
		response.Error(c, http.StatusRequestEntityTooLarge, "QUOTA_EXCEEDED", "page quota exceeded")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	triad, err := app.facade.Active()
	if err != nil {
		fail(c, err)
		return
	}

	now := time.Now().UTC()
	blobPath := fmt.Sprintf("media/%d/%d/%d/%s_%s",
		now.Year(), int(now.Month()), now.Day(), uuid.NewString(), fileHeader.Filename)

	item, err := triad.Database.CreateMediaItem(c.Request.Context(), &models.MediaItem{
		PageID:   page.ID,
		UserID:   userID,
		Type:     mediaType,
		BlobPath: blobPath,
		Caption:  c.PostForm("caption"),
		Size:     fileHeader.Size,
		Active:   true,
	}, &persist.Blob{
		Data:        data,
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	// The counter is written as the recomputed total, not an increment, so a
	// failed update here is reconciled by the next successful one.
	if stats, serr := triad.Database.GetPageStats(c.Request.Context(), page.ID); serr != nil {
		app.logger.Error(c.Request.Context(), "recomputing page usage", "page_id", page.ID, "error", serr)
	} else if _, uerr := triad.Database.UpdateMediaPage(c.Request.Context(), page.ID, models.MediaPagePatch{
		UsedBytes: &stats.UsedBytes,
	}); uerr != nil {
		app.logger.Error(c.Request.Context(), "updating page usage", "page_id", page.ID, "error", uerr)
	}

	response.Success(c, http.StatusCreated, item)
}

func (app *App) handleDeleteMedia(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	if err := db.DeleteMediaItem(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
