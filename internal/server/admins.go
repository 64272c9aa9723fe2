package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/response"
)

type createAdminRequest struct {
	Username    string   `json:"username" binding:"required"`
	Password    string   `json:"password" binding:"required"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`
}

func (app *App) handleCreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	level := req.Level
	if level == 0 {
		level = 2
	}
	admin, err := db.CreateAdmin(c.Request.Context(), &models.Admin{
		Username:     req.Username,
		PasswordHash: string(hash),
		Level:        level,
		Permissions:  req.Permissions,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, admin)
}

func (app *App) handleListAdmins(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	admins, err := db.GetAdmins(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, admins)
}

type updateAdminRequest struct {
	Password    *string   `json:"password"`
	Level       *int      `json:"level"`
	Permissions *[]string `json:"permissions"`
}

func (app *App) handleUpdateAdmin(c *gin.Context) {
	var req updateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	patch := models.AdminPatch{Level: req.Level, Permissions: req.Permissions}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "INTERNAL", err.Error())
			return
		}
		hashed := string(hash)
		patch.PasswordHash = &hashed
	}

	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	admin, err := db.UpdateAdmin(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, admin)
}

func (app *App) handleDeleteAdmin(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	if err := db.DeleteAdmin(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
