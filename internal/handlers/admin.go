package handlers

import (
	"net/http"

	"todo-api/backend/internal/middleware"
	"todo-api/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db          *gorm.DB
	userService services.UserService
}

func NewAdminHandler(db *gorm.DB, userService services.UserService) *AdminHandler {
	return &AdminHandler{db: db, userService: userService}
}

func (h *AdminHandler) UserCount(c *gin.Context, user middleware.Identity) {
	count, err := h.userService.CountUsers(middleware.ScopedDB(c, h.db))
	if err != nil {
		respondInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalUsers": count})
}
