package middleware

import (
	"errors"
	"net/http"

	"todo-api/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequireRole lets the request through only when the identified user holds
// role. It must run after SessionGate.
func RequireRole(db *gorm.DB, users services.UserService, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			abortLoginRequired(c)
			return
		}

		user, err := users.GetUser(ScopedDB(c, db), id.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortLoginRequired(c)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		if !user.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
			return
		}
		c.Next()
	}
}
