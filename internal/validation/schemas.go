package validation

import (
	"encoding/json"
)

const (
	FullTodoSchemaID  = "todo-full.json"
	PatchTodoSchemaID = "todo-patch.json"
)

const timeOfDayPattern = `^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`

// fullTodoSchema describes the create and replace payload. Instants are sent
// as separate calendar date and wall-clock time strings.
const fullTodoSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "FullTodo",
  "type": "object",
  "required": ["title", "description", "status", "startDate", "startTime", "endDate", "endTime"],
  "properties": {
    "title":       {"type": "string", "minLength": 1, "description": "Short title of the todo"},
    "description": {"type": "string", "description": "Free-form description"},
    "status":      {"type": "string", "minLength": 1, "description": "Caller-defined status label"},
    "startDate":   {"type": "string", "format": "date", "description": "Start date, YYYY-MM-DD"},
    "startTime":   {"type": "string", "pattern": "` + timeOfDayPattern + `", "description": "Start time, HH:MM or HH:MM:SS"},
    "endDate":     {"type": "string", "format": "date", "description": "End date, YYYY-MM-DD"},
    "endTime":     {"type": "string", "pattern": "` + timeOfDayPattern + `", "description": "End time, HH:MM or HH:MM:SS"}
  }
}`

// patchTodoSchema describes a partial update. Instants are written verbatim.
const patchTodoSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "PatchTodo",
  "type": "object",
  "minProperties": 1,
  "additionalProperties": false,
  "properties": {
    "title":       {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "status":      {"type": "string", "minLength": 1},
    "startAt":     {"type": "string", "format": "date-time", "description": "RFC 3339 instant"},
    "endAt":       {"type": "string", "format": "date-time", "description": "RFC 3339 instant"}
  }
}`

// FullTodoSchema returns the create/replace payload schema as a JSON object,
// suitable for embedding in generated documentation.
func FullTodoSchema() map[string]interface{} {
	return schemaObject(fullTodoSchema)
}

func PatchTodoSchema() map[string]interface{} {
	return schemaObject(patchTodoSchema)
}

func schemaObject(src string) map[string]interface{} {
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(src), &out); err != nil {
		panic("validation: invalid embedded schema: " + err.Error())
	}
	delete(out, "$schema")
	return out
}
