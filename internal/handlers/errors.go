package handlers

import (
	"errors"
	"net/http"
	"strings"

	"todo-api/backend/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const maxBodyBytes = 1 << 20

func handleTodoError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	respondInternalError(c, err)
}

// respondInternalError records err on the context for the request logger and
// hides it from the client.
func respondInternalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func respondValidation(c *gin.Context, issues []validation.Issue) {
	if issues == nil {
		issues = []validation.Issue{}
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "validation_failed",
		"issues":  issues,
	})
}

// bindingIssues converts gin binding errors into validation issues keyed by
// the JSON field name.
func bindingIssues(err error) []validation.Issue {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []validation.Issue{{Path: "", Message: "malformed JSON body: " + err.Error()}}
	}

	issues := make([]validation.Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, validation.Issue{
			Path:    jsonFieldName(fe.Field()),
			Message: bindingMessage(fe),
		})
	}
	return issues
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	return c.GetRawData()
}
