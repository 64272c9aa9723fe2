package server

import (
	"github.com/gin-gonic/gin"
)

// router assembles the public and admin API groups. All handlers reply with
// the shared response envelope.
func (app *App) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	{
		api.GET("/healthz", app.handleHealth)

		api.POST("/users/register", app.handleRegisterUser)

		api.GET("/pages/:code", app.handleGetPage)
		api.GET("/pages/:code/media", app.handleListMedia)
		api.POST("/pages/:code/media", app.handleUploadMedia)
		api.GET("/pages/:code/messages", app.handleListMessages)
		api.POST("/pages/:code/messages", app.handlePostMessage)

		api.POST("/admin/login", app.handleAdminLogin)
	}

	admin := api.Group("/admin", app.adminAuth())
	{
		admin.POST("/pages", app.handleCreatePage)
		admin.GET("/pages", app.handleListPages)
		admin.PATCH("/pages/:id", app.handleUpdatePage)
		admin.DELETE("/pages/:id", app.handleDeletePage)

		admin.DELETE("/media/:id", app.handleDeleteMedia)
		admin.DELETE("/messages/:id", app.handleDeleteMessage)

		admin.POST("/admins", app.handleCreateAdmin)
		admin.GET("/admins", app.handleListAdmins)
		admin.PATCH("/admins/:id", app.handleUpdateAdmin)
		admin.DELETE("/admins/:id", app.handleDeleteAdmin)

		admin.GET("/stats", app.handleGlobalStats)
		admin.GET("/pages/:id/stats", app.handlePageStats)
		admin.GET("/users/:id/activity", app.handleUserActivity)

		admin.POST("/migrate", app.handleMigrate)
		admin.POST("/migrate/retry", app.handleMigrateRetry)
		admin.GET("/migrate/state", app.handleMigrateState)
	}

	return r
}
