package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

const (
	userHeader = "X-User-ID"
	userKey    = "currentUser"
)

// identityMiddleware resolves the acting user from X-User-ID. Session
// handling belongs to whatever fronts this service.
func identityMiddleware(directory service.DirectoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(userHeader))
		if id == "" {
			abort(c, http.StatusUnauthorized, "missing "+userHeader+" header")
			return
		}

		user, err := directory.GetUser(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				abort(c, http.StatusUnauthorized, "unknown user")
				return
			}
			abort(c, http.StatusInternalServerError, "failed to resolve user")
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *entity.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*entity.User); ok {
			return u
		}
	}
	return nil
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: msg})
}

// corsMiddleware lets a browser front end call the API directly
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+userHeader)
		h.Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
