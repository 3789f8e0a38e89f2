package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"todo-api/backend/internal/middleware"
	"todo-api/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CookieOptions struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

func ParseSameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

type AuthHandler struct {
	db          *gorm.DB
	authService services.AuthService
	cookie      CookieOptions
}

func NewAuthHandler(db *gorm.DB, authService services.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{db: db, authService: authService, cookie: cookie}
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func (h *AuthHandler) SignUpEmail(c *gin.Context) {
	var req services.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, bindingIssues(err))
		return
	}

	result, err := h.authService.SignUp(middleware.ScopedDB(c, h.db), req, clientInfo(c))
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "User already exists"})
			return
		}
		respondInternalError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token, result.Session.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"token": result.Token, "user": result.User})
}

func (h *AuthHandler) SignInEmail(c *gin.Context) {
	var req services.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, bindingIssues(err))
		return
	}

	result, err := h.authService.SignIn(middleware.ScopedDB(c, h.db), req, clientInfo(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
			return
		}
		respondInternalError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token, result.Session.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"token": result.Token, "user": result.User})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.authService.SignOut(middleware.ScopedDB(c, h.db), c.Request.Header); err != nil {
		respondInternalError(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSession answers null when the request carries no active session.
func (h *AuthHandler) GetSession(c *gin.Context) {
	result, err := h.authService.GetSession(middleware.ScopedDB(c, h.db), c.Request.Header)
	if err != nil {
		if errors.Is(err, services.ErrNoSession) {
			c.JSON(http.StatusOK, nil)
			return
		}
		respondInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": result.Session, "user": result.User})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, expires time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}
