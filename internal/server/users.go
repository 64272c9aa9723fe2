package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/response"
)

type registerUserRequest struct {
	DeviceID    string `json:"device_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

// handleRegisterUser resolves a device fingerprint to a user, creating one on
// first visit and stamping the last-login time on return visits.
func (app *App) handleRegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := db.GetUserByDeviceID(ctx, req.DeviceID)
	if err != nil {
		fail(c, err)
		return
	}

	if user == nil {
		user, err = db.CreateUser(ctx, &models.User{
			DeviceID:    req.DeviceID,
			DisplayName: req.DisplayName,
			Active:      true,
		})
		if err != nil {
			fail(c, err)
			return
		}
		response.Success(c, http.StatusCreated, user)
		return
	}

	now := time.Now().UTC()
	patch := models.UserPatch{LastLoginAt: &now}
	if req.DisplayName != "" && req.DisplayName != user.DisplayName {
		patch.DisplayName = &req.DisplayName
	}
	user, err = db.UpdateUser(ctx, user.ID, patch)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
