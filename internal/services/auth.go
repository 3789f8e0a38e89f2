package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"todo-api/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type SignUpRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ClientInfo is recorded on every session row.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// AuthSession is an active session together with its owner and the signed
// credential handed to the client.
type AuthSession struct {
	Token   string         `json:"token"`
	Session models.Session `json:"session"`
	User    models.User    `json:"user"`
}

type AuthService interface {
	SignUp(db *gorm.DB, req SignUpRequest, client ClientInfo) (*AuthSession, error)
	SignIn(db *gorm.DB, req SignInRequest, client ClientInfo) (*AuthSession, error)
	SignOut(db *gorm.DB, header http.Header) error
	GetSession(db *gorm.DB, header http.Header) (*AuthSession, error)
}

type AuthOptions struct {
	Secret     string
	Issuer     string
	SessionTTL time.Duration
	CookieName string
	BCryptCost int
}

type AuthServiceImpl struct {
	opts AuthOptions
	now  func() time.Time
}

type sessionClaims struct {
	SessionToken string `json:"sid"`
	jwt.RegisteredClaims
}

func NewAuthService(opts AuthOptions) *AuthServiceImpl {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.BCryptCost == 0 {
		opts.BCryptCost = bcrypt.DefaultCost
	}
	return &AuthServiceImpl{opts: opts, now: time.Now}
}

func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SignUp creates the user with a credential account and opens a session, all
// in one transaction.
func (s *AuthServiceImpl) SignUp(db *gorm.DB, req SignUpRequest, client ClientInfo) (*AuthSession, error) {
	email := normalizeEmail(req.Email)

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := HashPassword(req.Password, s.opts.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := newID()
	if err != nil {
		return nil, err
	}
	accountID, err := newID()
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:    userID,
		Name:  strings.TrimSpace(req.Name),
		Email: email,
		Role:  models.RoleUser,
	}
	account := models.Account{
		ID:         accountID,
		AccountID:  userID,
		ProviderID: models.CredentialProvider,
		UserID:     userID,
		Password:   &hashed,
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if err := tx.Create(&account).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	session, token, err := s.openSession(tx, user.ID, client)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &AuthSession{Token: token, Session: *session, User: user}, nil
}

func (s *AuthServiceImpl) SignIn(db *gorm.DB, req SignInRequest, client ClientInfo) (*AuthSession, error) {
	var user models.User
	if err := db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	var account models.Account
	err := db.Where("user_id = ? AND provider_id = ?", user.ID, models.CredentialProvider).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if account.Password == nil || !VerifyPassword(*account.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}

	session, token, err := s.openSession(db, user.ID, client)
	if err != nil {
		return nil, err
	}
	return &AuthSession{Token: token, Session: *session, User: user}, nil
}

// SignOut removes the session named by the request credential. A missing or
// already expired session is not an error.
func (s *AuthServiceImpl) SignOut(db *gorm.DB, header http.Header) error {
	claims, err := s.parseCredential(header)
	if err != nil {
		return nil
	}
	return db.Where("token = ?", claims.SessionToken).Delete(&models.Session{}).Error
}

// GetSession resolves the active session for the request credential, or
// ErrNoSession.
func (s *AuthServiceImpl) GetSession(db *gorm.DB, header http.Header) (*AuthSession, error) {
	claims, err := s.parseCredential(header)
	if err != nil {
		return nil, ErrNoSession
	}

	var session models.Session
	err = db.Preload("User").
		Where("token = ? AND expires_at > ?", claims.SessionToken, s.now().UTC()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	if session.User == nil || session.UserID != claims.Subject {
		return nil, ErrNoSession
	}

	user := *session.User
	session.User = nil
	return &AuthSession{Token: credential(header, s.opts.CookieName), Session: session, User: user}, nil
}

func (s *AuthServiceImpl) openSession(db *gorm.DB, userID string, client ClientInfo) (*models.Session, string, error) {
	sessionID, err := newID()
	if err != nil {
		return nil, "", err
	}
	sessionToken, err := newID()
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	session := models.Session{
		ID:        sessionID,
		Token:     sessionToken,
		ExpiresAt: now.Add(s.opts.SessionTTL),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		UserID:    userID,
	}
	if err := db.Create(&session).Error; err != nil {
		return nil, "", err
	}

	signed, err := s.IssueToken(session)
	if err != nil {
		return nil, "", err
	}
	return &session, signed, nil
}

// IssueToken signs the client credential for session.
func (s *AuthServiceImpl) IssueToken(session models.Session) (string, error) {
	claims := sessionClaims{
		SessionToken: session.Token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			Issuer:    s.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.opts.Secret))
}

func (s *AuthServiceImpl) parseCredential(header http.Header) (*sessionClaims, error) {
	raw := credential(header, s.opts.CookieName)
	if raw == "" {
		return nil, ErrNoSession
	}

	claims := &sessionClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.opts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.opts.Issuer))
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.SessionToken == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

// credential returns the session cookie value, falling back to a bearer
// Authorization header.
func credential(header http.Header, cookieName string) string {
	req := http.Request{Header: header}
	if cookie, err := req.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
