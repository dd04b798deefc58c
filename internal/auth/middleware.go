package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storywall/internal/model"
)

const userContextKey = "currentUser"

type UserStore interface {
	UpsertByExternalID(externalID, email string) (*model.User, error)
}

// Middleware resolves the request's bearer token, if any, to a local
// user. Missing or invalid credentials leave the request anonymous;
// RequireUser decides whether that is acceptable per route.
func Middleware(provider Provider, users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		info, err := provider.UserInfo(c.Request.Context(), token)
		if err != nil {
			slog.Warn("token validation failed, treating as anonymous", "error", err)
			c.Next()
			return
		}

		user, err := users.UpsertByExternalID(info.Subject, info.Email)
		if err != nil {
			slog.Error("error upserting authenticated user", "error", err, "subject", info.Subject)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireUser rejects anonymous requests on write paths.
func RequireUser(c *gin.Context) {
	if CurrentUser(c) == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		c.Abort()
		return
	}
	c.Next()
}

func CurrentUser(c *gin.Context) *model.User {
	val, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, ok := val.(*model.User)
	if !ok {
		return nil
	}
	return user
}

// SetCurrentUser injects a user into the request context. Test helper.
func SetCurrentUser(c *gin.Context, user *model.User) {
	c.Set(userContextKey, user)
}
