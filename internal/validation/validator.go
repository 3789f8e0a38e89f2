// Package validation checks todo payloads against their JSON Schemas and
// turns accepted payloads into model values.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"todo-api/backend/internal/models"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBaseURL = "https://todo-api.local/schemas/"

// Issue is a single field-level problem with a payload.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is either an accepted value (OK) or the issues that rejected it.
type Result[T any] struct {
	OK     bool
	Value  T
	Issues []Issue
}

func Valid[T any](value T) Result[T] {
	return Result[T]{OK: true, Value: value}
}

func Invalid[T any](issues ...Issue) Result[T] {
	return Result[T]{Issues: issues}
}

// FullTodoInput is the create and replace payload.
type FullTodoInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartDate   string `json:"startDate"`
	StartTime   string `json:"startTime"`
	EndDate     string `json:"endDate"`
	EndTime     string `json:"endTime"`
}

// ToTodo derives the start and end instants in loc. The owner is left unset.
func (in FullTodoInput) ToTodo(loc *time.Location) (models.Todo, []Issue) {
	var issues []Issue

	startAt, err := DeriveInstant(in.StartDate, in.StartTime, loc)
	if err != nil {
		issues = append(issues, Issue{Path: "startTime", Message: err.Error()})
	}
	endAt, err := DeriveInstant(in.EndDate, in.EndTime, loc)
	if err != nil {
		issues = append(issues, Issue{Path: "endTime", Message: err.Error()})
	}
	if len(issues) > 0 {
		return models.Todo{}, issues
	}

	return models.Todo{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		StartAt:     startAt,
		EndAt:       endAt,
	}, nil
}

// PatchTodoInput is the partial update payload. Absent keys stay nil.
type PatchTodoInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	StartAt     *string `json:"startAt"`
	EndAt       *string `json:"endAt"`
}

func (in PatchTodoInput) ToPatch() (models.TodoPatch, []Issue) {
	patch := models.TodoPatch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
	}

	var issues []Issue
	if in.StartAt != nil {
		t, err := parseInstant(*in.StartAt)
		if err != nil {
			issues = append(issues, Issue{Path: "startAt", Message: err.Error()})
		} else {
			patch.StartAt = &t
		}
	}
	if in.EndAt != nil {
		t, err := parseInstant(*in.EndAt)
		if err != nil {
			issues = append(issues, Issue{Path: "endAt", Message: err.Error()})
		} else {
			patch.EndAt = &t
		}
	}
	return patch, issues
}

// DeriveInstant joins a YYYY-MM-DD date and an HH:MM[:SS] time into one
// instant in loc, returned in UTC.
func DeriveInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	layout := "2006-01-02T15:04"
	if strings.Count(clock, ":") == 2 {
		layout = "2006-01-02T15:04:05"
	}
	t, err := time.ParseInLocation(layout, date+"T"+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q", date+"T"+clock)
	}
	return t.UTC(), nil
}

func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid RFC 3339 timestamp %q", s)
	}
	return t.UTC(), nil
}

// Validator holds the compiled payload schemas.
type Validator struct {
	full     *jsonschema.Schema
	patch    *jsonschema.Schema
	location *time.Location
}

// NewValidator compiles the payload schemas. Date and time strings in full
// payloads are interpreted in loc.
func NewValidator(loc *time.Location) (*Validator, error) {
	if loc == nil {
		loc = time.UTC
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true

	full, err := compileSchema(compiler, FullTodoSchemaID, fullTodoSchema)
	if err != nil {
		return nil, err
	}
	patch, err := compileSchema(compiler, PatchTodoSchemaID, patchTodoSchema)
	if err != nil {
		return nil, err
	}

	return &Validator{full: full, patch: patch, location: loc}, nil
}

func MustNewValidator(loc *time.Location) *Validator {
	v, err := NewValidator(loc)
	if err != nil {
		panic(err)
	}
	return v
}

func compileSchema(compiler *jsonschema.Compiler, id, src string) (*jsonschema.Schema, error) {
	url := schemaBaseURL + id
	if err := compiler.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", id, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", id, err)
	}
	return schema, nil
}

// FullTodo validates a create/replace body and derives its instants.
func (v *Validator) FullTodo(body []byte) Result[models.Todo] {
	if issues := v.check(v.full, body); len(issues) > 0 {
		return Invalid[models.Todo](issues...)
	}

	var input FullTodoInput
	if err := json.Unmarshal(body, &input); err != nil {
		return Invalid[models.Todo](malformed(err))
	}

	todo, issues := input.ToTodo(v.location)
	if len(issues) > 0 {
		return Invalid[models.Todo](issues...)
	}
	return Valid(todo)
}

// PatchTodo validates a partial body. At least one known field is required.
func (v *Validator) PatchTodo(body []byte) Result[models.TodoPatch] {
	if issues := v.check(v.patch, body); len(issues) > 0 {
		return Invalid[models.TodoPatch](issues...)
	}

	var input PatchTodoInput
	if err := json.Unmarshal(body, &input); err != nil {
		return Invalid[models.TodoPatch](malformed(err))
	}

	patch, issues := input.ToPatch()
	if len(issues) > 0 {
		return Invalid[models.TodoPatch](issues...)
	}
	return Valid(patch)
}

// TodoID parses a path id. Only base-10 integers are accepted.
func TodoID(raw string) Result[int64] {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Invalid[int64](Issue{Path: "id", Message: "must be an integer"})
	}
	return Valid(id)
}

func (v *Validator) check(schema *jsonschema.Schema, body []byte) []Issue {
	doc, err := decode(body)
	if err != nil {
		return []Issue{malformed(err)}
	}
	if err := schema.Validate(doc); err != nil {
		return schemaIssues(err)
	}
	return nil
}

func decode(body []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return doc, nil
}

func malformed(err error) Issue {
	return Issue{Path: "", Message: "malformed JSON body: " + err.Error()}
}

func schemaIssues(err error) []Issue {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Issue{{Message: err.Error()}}
	}

	var issues []Issue
	collectIssues(ve, &issues)
	if len(issues) == 0 {
		issues = append(issues, Issue{Path: jsonPointerToPath(ve.InstanceLocation), Message: ve.Message})
	}
	return issues
}

func collectIssues(err *jsonschema.ValidationError, issues *[]Issue) {
	if len(err.Causes) == 0 {
		*issues = append(*issues, Issue{
			Path:    jsonPointerToPath(err.InstanceLocation),
			Message: err.Message,
		})
		return
	}
	for _, cause := range err.Causes {
		collectIssues(cause, issues)
	}
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	var path string
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}
