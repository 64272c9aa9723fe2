package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/response"
)

func (app *App) handleListMessages(c *gin.Context) {
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
	messages, err := db.GetMessages(c.Request.Context(), page.ID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, messages)
}

type postMessageRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

func (app *App) handlePostMessage(c *gin.Context) {
	page := app.visitorPage(c)
	if page == nil {
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	msg, err := db.CreateMessage(c.Request.Context(), &models.ChatMessage{
		PageID: page.ID,
		UserID: req.UserID,
		Text:   req.Text,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, msg)
}

func (app *App) handleDeleteMessage(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	if err := db.DeleteMessage(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
