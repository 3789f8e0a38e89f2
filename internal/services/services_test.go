package services

import (
	"testing"
	"time"

	"todo-api/backend/internal/database"
	"todo-api/backend/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	pool, err := database.NewDatabasePool(&database.PoolConfig{DSN: "sqlite::memory:", LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, pool.Migrate())
	t.Cleanup(func() { pool.Close() })
	return pool.DB
}

func seedUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	user := models.User{ID: id, Name: id, Email: id + "@example.com", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func newTodo(title string) *models.Todo {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return &models.Todo{
		Title:       title,
		Description: "d",
		Status:      "open",
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
	}
}

func newTestAuthService() *AuthServiceImpl {
	return NewAuthService(AuthOptions{
		Secret:     "test-secret-test-secret-test-secret",
		Issuer:     "http://localhost:3000",
		SessionTTL: time.Hour,
		CookieName: "todo.session_token",
		BCryptCost: bcrypt.MinCost,
	})
}
