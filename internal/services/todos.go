package services

import (
	"todo-api/backend/internal/models"

	"gorm.io/gorm"
)

// TodoService runs the owner-scoped todo statements. Every method expects a
// request-scoped handle and filters on the owner, so a foreign id behaves
// exactly like a missing one and yields gorm.ErrRecordNotFound.
type TodoService interface {
	ListTodos(db *gorm.DB, userID string) ([]models.Todo, error)
	CreateTodo(db *gorm.DB, todo *models.Todo) error
	ReplaceTodo(db *gorm.DB, id int64, userID string, todo models.Todo) (*models.Todo, error)
	PatchTodo(db *gorm.DB, id int64, userID string, patch models.TodoPatch) (*models.Todo, error)
	DeleteTodo(db *gorm.DB, id int64, userID string) error
}

type TodoServiceImpl struct{}

func NewTodoService() *TodoServiceImpl {
	return &TodoServiceImpl{}
}

func (s *TodoServiceImpl) ListTodos(db *gorm.DB, userID string) ([]models.Todo, error) {
	todos := []models.Todo{}
	if err := db.Where("user_id = ?", userID).Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

func (s *TodoServiceImpl) CreateTodo(db *gorm.DB, todo *models.Todo) error {
	return db.Create(todo).Error
}

func (s *TodoServiceImpl) ReplaceTodo(db *gorm.DB, id int64, userID string, todo models.Todo) (*models.Todo, error) {
	return s.update(db, id, userID, map[string]interface{}{
		"text":        todo.Title,
		"description": todo.Description,
		"status":      todo.Status,
		"start_at":    todo.StartAt,
		"end_at":      todo.EndAt,
	})
}

func (s *TodoServiceImpl) PatchTodo(db *gorm.DB, id int64, userID string, patch models.TodoPatch) (*models.Todo, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, ErrEmptyPatch
	}
	return s.update(db, id, userID, cols)
}

// update writes cols to the row matching (id, owner) and re-reads it. The
// re-read uses the same owner filter, so a concurrent delete surfaces as
// gorm.ErrRecordNotFound.
func (s *TodoServiceImpl) update(db *gorm.DB, id int64, userID string, cols map[string]interface{}) (*models.Todo, error) {
	result := db.Model(&models.Todo{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(cols)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var updated models.Todo
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *TodoServiceImpl) DeleteTodo(db *gorm.DB, id int64, userID string) error {
	result := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Todo{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
