// Package docs builds the OpenAPI 3 document from the routes registered on
// the router and serves it with a Swagger UI.
package docs

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"todo-api/backend/internal/validation"

	"github.com/gin-gonic/gin"
)

const openAPIVersion = "3.0.3"

type Info struct {
	Title       string
	Version     string
	Description string
	Servers     []string
	// CookieName is advertised as the cookie security scheme.
	CookieName string
}

type Response struct {
	Description string
	// Schema names a component schema. Prefix with "[]" for an array of it.
	Schema string
}

type Operation struct {
	Method        string
	Path          string
	Summary       string
	Description   string
	Tags          []string
	RequestSchema string
	Responses     map[int]Response
	Public        bool
}

// Registry collects documented operations. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops []Operation
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Add(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *Registry) Operations() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Operation(nil), r.ops...)
}

var ginParam = regexp.MustCompile(`[:*]([A-Za-z_][A-Za-z0-9_]*)`)

// OpenAPIPath converts gin path parameters to OpenAPI templates.
func OpenAPIPath(path string) (string, []string) {
	var params []string
	out := ginParam.ReplaceAllStringFunc(path, func(m string) string {
		name := m[1:]
		params = append(params, name)
		return "{" + name + "}"
	})
	if out == "" {
		out = "/"
	}
	return out, params
}

// Generate renders the document for every registered operation.
func (r *Registry) Generate(info Info) map[string]interface{} {
	paths := map[string]map[string]interface{}{}

	for _, op := range r.Operations() {
		path, params := OpenAPIPath(op.Path)
		item, ok := paths[path]
		if !ok {
			item = map[string]interface{}{}
			paths[path] = item
		}
		item[strings.ToLower(op.Method)] = operationObject(op, params)
	}

	servers := make([]map[string]string, 0, len(info.Servers))
	for _, s := range info.Servers {
		servers = append(servers, map[string]string{"url": s})
	}

	return map[string]interface{}{
		"openapi": openAPIVersion,
		"info": map[string]interface{}{
			"title":       info.Title,
			"version":     info.Version,
			"description": info.Description,
		},
		"servers": servers,
		"paths":   paths,
		"tags":    r.tags(),
		"components": map[string]interface{}{
			"schemas": componentSchemas(),
			"securitySchemes": map[string]interface{}{
				"cookieAuth": map[string]interface{}{"type": "apiKey", "in": "cookie", "name": info.CookieName},
				"bearerAuth": map[string]interface{}{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
	}
}

func (r *Registry) tags() []map[string]string {
	seen := map[string]bool{}
	var names []string
	for _, op := range r.Operations() {
		for _, t := range op.Tags {
			if !seen[t] {
				seen[t] = true
				names = append(names, t)
			}
		}
	}
	sort.Strings(names)

	tags := make([]map[string]string, 0, len(names))
	for _, n := range names {
		tags = append(tags, map[string]string{"name": n})
	}
	return tags
}

func operationObject(op Operation, params []string) map[string]interface{} {
	obj := map[string]interface{}{
		"summary":   op.Summary,
		"responses": responsesObject(op.Responses),
	}
	if op.Description != "" {
		obj["description"] = op.Description
	}
	if len(op.Tags) > 0 {
		obj["tags"] = op.Tags
	}
	if len(params) > 0 {
		list := make([]map[string]interface{}, 0, len(params))
		for _, p := range params {
			list = append(list, map[string]interface{}{
				"name":     p,
				"in":       "path",
				"required": true,
				"schema":   map[string]string{"type": "string"},
			})
		}
		obj["parameters"] = list
	}
	if op.RequestSchema != "" {
		obj["requestBody"] = map[string]interface{}{
			"required": true,
			"content":  jsonContent(op.RequestSchema),
		}
	}
	if op.Public {
		obj["security"] = []map[string][]string{}
	} else {
		obj["security"] = []map[string][]string{{"cookieAuth": {}}, {"bearerAuth": {}}}
	}
	return obj
}

func responsesObject(responses map[int]Response) map[string]interface{} {
	out := make(map[string]interface{}, len(responses))
	for code, resp := range responses {
		obj := map[string]interface{}{"description": resp.Description}
		if resp.Schema != "" {
			obj["content"] = jsonContent(resp.Schema)
		}
		out[strconv.Itoa(code)] = obj
	}
	return out
}

func jsonContent(schema string) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schemaRef(schema)},
	}
}

func schemaRef(name string) map[string]interface{} {
	if item, ok := strings.CutPrefix(name, "[]"); ok {
		return map[string]interface{}{"type": "array", "items": schemaRef(item)}
	}
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func componentSchemas() map[string]interface{} {
	str := map[string]string{"type": "string"}
	instant := map[string]string{"type": "string", "format": "date-time"}

	return map[string]interface{}{
		"Todo": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":          map[string]string{"type": "integer", "format": "int64"},
				"title":       str,
				"description": str,
				"status":      str,
				"startAt":     instant,
				"endAt":       instant,
				"userId":      str,
			},
		},
		"TodoEnvelope": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"success": map[string]string{"type": "boolean"},
				"data":    schemaRef("Todo"),
			},
		},
		"FullTodo":  validation.FullTodoSchema(),
		"PatchTodo": validation.PatchTodoSchema(),
		"ValidationError": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"success": map[string]string{"type": "boolean"},
				"error":   str,
				"issues": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":       "object",
						"properties": map[string]interface{}{"path": str, "message": str},
					},
				},
			},
		},
		"Message": map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"message": str},
		},
		"UserCount": map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"totalUsers": map[string]string{"type": "integer"}},
		},
		"SignUp": map[string]interface{}{
			"type":     "object",
			"required": []string{"name", "email", "password"},
			"properties": map[string]interface{}{
				"name":     str,
				"email":    map[string]string{"type": "string", "format": "email"},
				"password": map[string]interface{}{"type": "string", "minLength": 8, "maxLength": 128},
			},
		},
		"SignIn": map[string]interface{}{
			"type":     "object",
			"required": []string{"email", "password"},
			"properties": map[string]interface{}{
				"email":    map[string]string{"type": "string", "format": "email"},
				"password": str,
			},
		},
	}
}

// Handler serves the generated document as JSON.
func (r *Registry) Handler(info Info) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, r.Generate(info))
	}
}
