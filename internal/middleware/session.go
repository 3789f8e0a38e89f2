package middleware

import (
	"errors"
	"net/http"
	"strings"

	"todo-api/backend/internal/services"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const identityKey = "todo.identity"

// Identity is the authenticated caller attached by SessionGate.
type Identity struct {
	UserID    string
	SessionID string
}

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// ScopedDB binds db to the request context so a client disconnect cancels
// in-flight queries.
func ScopedDB(c *gin.Context, db *gorm.DB) *gorm.DB {
	if db == nil {
		return nil
	}
	return db.WithContext(c.Request.Context())
}

func abortLoginRequired(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Login required"})
}

// Authenticated adapts a handler that needs the caller's identity. Requests
// that reach it without one are rejected with 401.
func Authenticated(fn func(c *gin.Context, user Identity)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			abortLoginRequired(c)
			return
		}
		fn(c, id)
	}
}

// publicPaths are relative to the base path. An entry ending in "/*" also
// matches everything below it.
var publicPaths = []string{"/auth", "/auth/*", "/openapi", "/docs", "/docs/*"}

// IsPublicPath reports whether path, relative to basePath, bypasses the gate.
func IsPublicPath(basePath, path string) bool {
	if basePath != "" {
		if path != basePath && !strings.HasPrefix(path, basePath+"/") {
			return false
		}
		path = strings.TrimPrefix(path, basePath)
	}
	if path == "" {
		path = "/"
	}

	for _, p := range publicPaths {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// SessionGate resolves the caller's session for every request under
// basePath except the public paths and CORS preflights.
func SessionGate(db *gorm.DB, auth services.AuthService, basePath string, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || IsPublicPath(basePath, c.Request.URL.Path) {
			c.Next()
			return
		}

		session, err := auth.GetSession(ScopedDB(c, db), c.Request.Header)
		if err != nil {
			if !errors.Is(err, services.ErrNoSession) {
				logger.Error("session lookup failed", "err", err, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			abortLoginRequired(c)
			return
		}

		SetIdentity(c, Identity{UserID: session.User.ID, SessionID: session.Session.ID})
		c.Next()
	}
}
