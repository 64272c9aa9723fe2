package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapgrid/snapgrid/internal/response"
)

func (app *App) handleGlobalStats(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	stats, err := db.GetGlobalStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

func (app *App) handlePageStats(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	stats, err := db.GetPageStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

func (app *App) handleUserActivity(c *gin.Context) {
	db, err := app.facade.Database()
	if err != nil {
		fail(c, err)
		return
	}

	activity, err := db.GetUserActivity(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, activity)
}
