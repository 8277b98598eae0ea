package auth

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"booktracker/pkg/models"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUsernameKey = "username"
	CtxRoleKey     = "role"
)

func RequireJWT(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		scheme, tokenStr, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenStr) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail[any]("missing bearer token"))
			return
		}
		claims, err := issuer.Parse(strings.TrimSpace(tokenStr))
		if err != nil {
			log.Debug("rejected token", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail[any]("invalid token"))
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxUsernameKey, claims.Subject)
		c.Set(CtxRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole must run after RequireJWT.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRoleKey) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, models.Fail[any]("requires "+role+" role"))
			return
		}
		c.Next()
	}
}
