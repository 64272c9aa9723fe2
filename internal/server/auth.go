package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/snapgrid/snapgrid/internal/response"
)

// adminClaims are the operator token claims, carrying the admin identity and
// privilege level.
type adminClaims struct {
	jwt.RegisteredClaims
	AdminID string
	Level   int
}

func (app *App) generateAdminToken(adminID string, level int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(app.config.TokenValidity)),
		},
		AdminID: adminID,
		Level:   level,
	})
	return token.SignedString([]byte(app.config.JWTSecret))
}

func (app *App) parseAdminToken(tokenString string) (*adminClaims, error) {
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(app.config.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// adminAuth guards the admin group. It expects "Authorization: Bearer <jwt>"
// and stores the admin identity on the request context.
func (app *App) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			c.Abort()
			return
		}

		claims, err := app.parseAdminToken(tokenString)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			c.Abort()
			return
		}

		c.Set("admin_id", claims.AdminID)
		c.Set("admin_level", claims.Level)
		c.Next()
	}
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (app *App) handleAdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	db, err := app.facade.Database()
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "UNINITIALIZED", err.Error())
		return
	}

	admin, err := db.AuthenticateAdmin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	if admin == nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		return
	}

	token, err := app.generateAdminToken(admin.ID, admin.Level)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token, "admin": admin})
}
