package handlers

import (
	"net/http"

	"todo-api/backend/internal/middleware"
	"todo-api/backend/internal/services"
	"todo-api/backend/internal/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TodoHandler struct {
	db          *gorm.DB
	todoService services.TodoService
	validator   *validation.Validator
}

func NewTodoHandler(db *gorm.DB, todoService services.TodoService, validator *validation.Validator) *TodoHandler {
	return &TodoHandler{db: db, todoService: todoService, validator: validator}
}

func (h *TodoHandler) ListTodos(c *gin.Context, user middleware.Identity) {
	todos, err := h.todoService.ListTodos(middleware.ScopedDB(c, h.db), user.UserID)
	if err != nil {
		respondInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (h *TodoHandler) CreateTodo(c *gin.Context, user middleware.Identity) {
	body, err := readBody(c)
	if err != nil {
		respondValidation(c, []validation.Issue{{Message: "unable to read request body"}})
		return
	}

	result := h.validator.FullTodo(body)
	if !result.OK {
		respondValidation(c, result.Issues)
		return
	}

	todo := result.Value
	todo.UserID = user.UserID
	if err := h.todoService.CreateTodo(middleware.ScopedDB(c, h.db), &todo); err != nil {
		respondInternalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": todo})
}

func (h *TodoHandler) ReplaceTodo(c *gin.Context, user middleware.Identity) {
	id := validation.TodoID(c.Param("id"))
	if !id.OK {
		respondValidation(c, id.Issues)
		return
	}

	body, err := readBody(c)
	if err != nil {
		respondValidation(c, []validation.Issue{{Message: "unable to read request body"}})
		return
	}

	result := h.validator.FullTodo(body)
	if !result.OK {
		respondValidation(c, result.Issues)
		return
	}

	updated, err := h.todoService.ReplaceTodo(middleware.ScopedDB(c, h.db), id.Value, user.UserID, result.Value)
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}

func (h *TodoHandler) PatchTodo(c *gin.Context, user middleware.Identity) {
	id := validation.TodoID(c.Param("id"))
	if !id.OK {
		respondValidation(c, id.Issues)
		return
	}

	body, err := readBody(c)
	if err != nil {
		respondValidation(c, []validation.Issue{{Message: "unable to read request body"}})
		return
	}

	result := h.validator.PatchTodo(body)
	if !result.OK {
		respondValidation(c, result.Issues)
		return
	}

	updated, err := h.todoService.PatchTodo(middleware.ScopedDB(c, h.db), id.Value, user.UserID, result.Value)
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}

func (h *TodoHandler) DeleteTodo(c *gin.Context, user middleware.Identity) {
	id := validation.TodoID(c.Param("id"))
	if !id.OK {
		respondValidation(c, id.Issues)
		return
	}

	if err := h.todoService.DeleteTodo(middleware.ScopedDB(c, h.db), id.Value, user.UserID); err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}
