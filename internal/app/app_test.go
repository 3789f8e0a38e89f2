package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo-api/backend/internal/config"
	"todo-api/backend/internal/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleTodo = `{"title":"t","description":"d","status":"open","startDate":"2024-01-01","startTime":"09:00","endDate":"2024-01-01","endTime":"10:00"}`

func newTestApp(t *testing.T, overrides map[string]string) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := map[string]string{
		"CONFIG_FILE":        "",
		"ENVIRONMENT":        "test",
		"DATABASE_URL":       "sqlite::memory:",
		"AUTH_SECRET":        "integration-secret-integration-secret",
		"APP_URL":            "http://localhost:3000",
		"BASE_PATH":          "/api",
		"RATE_LIMIT_ENABLED": "false",
		"BCRYPT_COST":        "4",
		"LOG_LEVEL":          "error",
	}
	for k, v := range overrides {
		env[k] = v
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	a, err := New(cfg, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
	userID string
}

func (c *client) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func signUp(t *testing.T, a *App, name string) *client {
	t.Helper()
	anon := &client{t: t, router: a.Router()}
	body := `{"name":"` + name + `","email":"` + name + `@example.com","password":"password123"}`

	w := anon.do(http.MethodPost, "/api/auth/sign-up/email", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return &client{t: t, router: a.Router(), token: resp.Token, userID: resp.User.ID}
}

type todoEnvelope struct {
	Success bool        `json:"success"`
	Data    models.Todo `json:"data"`
}

func decodeTodo(t *testing.T, w *httptest.ResponseRecorder) models.Todo {
	t.Helper()
	var env todoEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	return env.Data
}

func TestUnauthenticatedRequests(t *testing.T) {
	a := newTestApp(t, nil)
	anon := &client{t: t, router: a.Router()}

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api", ""},
		{http.MethodPost, "/api", exampleTodo},
		{http.MethodPut, "/api/1", exampleTodo},
		{http.MethodPatch, "/api/1", `{"status":"done"}`},
		{http.MethodDelete, "/api/1", ""},
		{http.MethodGet, "/api/admin/user-count", ""},
		{http.MethodGet, "/api/no-such-route", ""},
		{http.MethodGet, "/api/1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := anon.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"message":"Login required"}`, w.Body.String())
		})
	}

	forged := &client{t: t, router: a.Router(), token: "not-a-jwt"}
	w := forged.do(http.MethodGet, "/api", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicRoutes(t *testing.T) {
	a := newTestApp(t, nil)
	anon := &client{t: t, router: a.Router()}

	w := anon.do(http.MethodGet, "/api/auth/get-session", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	w = anon.do(http.MethodGet, "/api/openapi", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = anon.do(http.MethodGet, "/api/docs", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/api/docs/index.html", w.Header().Get("Location"))

	w = anon.do(http.MethodGet, "/outside", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTodoLifecycle(t *testing.T) {
	a := newTestApp(t, nil)
	u1 := signUp(t, a, "u1")

	w := u1.do(http.MethodGet, "/api", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = u1.do(http.MethodPost, "/api", exampleTodo)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeTodo(t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, u1.userID, created.UserID)
	assert.True(t, created.StartAt.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, created.EndAt.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))

	w = u1.do(http.MethodGet, "/api", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Todo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "t", list[0].Title)
	assert.Equal(t, "d", list[0].Description)
	assert.Equal(t, "open", list[0].Status)
	assert.True(t, list[0].StartAt.Equal(created.StartAt))
	assert.True(t, list[0].EndAt.Equal(created.EndAt))

	idPath := "/api/" + jsonNumber(created.ID)

	w = u1.do(http.MethodPatch, idPath, `{"status":"done"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decodeTodo(t, w)
	assert.Equal(t, "done", patched.Status)
	assert.Equal(t, "t", patched.Title)
	assert.Equal(t, "d", patched.Description)
	assert.True(t, patched.StartAt.Equal(created.StartAt))

	replacement := `{"title":"t2","description":"d2","status":"open","startDate":"2024-02-01","startTime":"08:30","endDate":"2024-02-01","endTime":"09:30"}`
	w = u1.do(http.MethodPut, idPath, replacement)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replaced := decodeTodo(t, w)
	assert.Equal(t, "t2", replaced.Title)
	assert.Equal(t, created.ID, replaced.ID)
	assert.True(t, replaced.StartAt.Equal(time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC)))

	w = u1.do(http.MethodDelete, idPath, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Deleted successfully"}`, w.Body.String())

	w = u1.do(http.MethodDelete, idPath, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Not found"}`, w.Body.String())

	w = u1.do(http.MethodGet, "/api/no-such-route", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func jsonNumber(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func TestOwnerIsolation(t *testing.T) {
	a := newTestApp(t, nil)
	u1 := signUp(t, a, "u1")
	u2 := signUp(t, a, "u2")

	body := strings.Replace(exampleTodo, `{`, `{"userId":"`+u2.userID+`",`, 1)
	w := u1.do(http.MethodPost, "/api", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeTodo(t, w)
	assert.Equal(t, u1.userID, created.UserID)

	idPath := "/api/" + jsonNumber(created.ID)
	assert.Equal(t, http.StatusNotFound, u2.do(http.MethodPut, idPath, exampleTodo).Code)
	assert.Equal(t, http.StatusNotFound, u2.do(http.MethodPatch, idPath, `{"status":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, u2.do(http.MethodDelete, idPath, "").Code)

	w = u2.do(http.MethodGet, "/api", "")
	assert.JSONEq(t, `[]`, w.Body.String())

	w = u1.do(http.MethodGet, "/api", "")
	var list []models.Todo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "open", list[0].Status)
}

func TestValidationFailures(t *testing.T) {
	a := newTestApp(t, nil)
	u1 := signUp(t, a, "u1")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"empty create", http.MethodPost, "/api", `{}`},
		{"malformed create", http.MethodPost, "/api", `{"title":`},
		{"bad date", http.MethodPost, "/api", strings.Replace(exampleTodo, "2024-01-01", "01/01/2024", 1)},
		{"non-integer id", http.MethodPut, "/api/abc", exampleTodo},
		{"empty patch", http.MethodPatch, "/api/1", `{}`},
		{"unknown patch key", http.MethodPatch, "/api/1", `{"colour":"red"}`},
		{"non-integer delete", http.MethodDelete, "/api/abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := u1.do(tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var resp struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
				Issues  []struct {
					Path    string `json:"path"`
					Message string `json:"message"`
				} `json:"issues"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, "validation_failed", resp.Error)
			assert.NotEmpty(t, resp.Issues)
		})
	}
}

func TestCookieSession(t *testing.T) {
	a := newTestApp(t, nil)
	anon := &client{t: t, router: a.Router()}

	w := anon.do(http.MethodPost, "/api/auth/sign-up/email", `{"name":"c","email":"c@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "todo.session_token" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	w = anon.do(http.MethodGet, "/api", "", "Cookie", session.Name+"="+session.Value)
	assert.Equal(t, http.StatusOK, w.Code)

	w = anon.do(http.MethodGet, "/api/auth/get-session", "", "Cookie", session.Name+"="+session.Value)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"c@example.com"`)
}

func TestSignInAndSignOut(t *testing.T) {
	a := newTestApp(t, nil)
	signUp(t, a, "u1")
	anon := &client{t: t, router: a.Router()}

	w := anon.do(http.MethodPost, "/api/auth/sign-in/email", `{"email":"u1@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = anon.do(http.MethodPost, "/api/auth/sign-in/email", `{"email":"U1@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	user := &client{t: t, router: a.Router(), token: resp.Token}
	assert.Equal(t, http.StatusOK, user.do(http.MethodGet, "/api", "").Code)

	w = user.do(http.MethodPost, "/api/auth/sign-out", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, user.do(http.MethodGet, "/api", "").Code)
}

func TestSignUpDuplicate(t *testing.T) {
	a := newTestApp(t, nil)
	signUp(t, a, "u1")
	anon := &client{t: t, router: a.Router()}

	w := anon.do(http.MethodPost, "/api/auth/sign-up/email", `{"name":"again","email":"u1@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTrustedOrigins(t *testing.T) {
	a := newTestApp(t, nil)
	anon := &client{t: t, router: a.Router()}
	body := `{"name":"o","email":"o@example.com","password":"password123"}`

	w := anon.do(http.MethodPost, "/api/auth/sign-up/email", body, "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = anon.do(http.MethodPost, "/api/auth/sign-up/email", body, "Origin", "http://localhost:3000")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	a := newTestApp(t, nil)
	anon := &client{t: t, router: a.Router()}

	w := anon.do(http.MethodOptions, "/api", "",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", "POST",
	)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAdminUserCount(t *testing.T) {
	a := newTestApp(t, nil)
	u1 := signUp(t, a, "u1")
	signUp(t, a, "u2")

	w := u1.do(http.MethodGet, "/api/admin/user-count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalUsers":2}`, w.Body.String())
}

func TestAdminUserCount_RoleRequired(t *testing.T) {
	a := newTestApp(t, map[string]string{"AUTH_ADMIN_ROLE_REQUIRED": "true"})
	u1 := signUp(t, a, "u1")

	w := u1.do(http.MethodGet, "/api/admin/user-count", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"Forbidden"}`, w.Body.String())

	require.NoError(t, a.Pool().DB.Model(&models.User{}).Where("id = ?", u1.userID).Update("role", models.RoleAdmin).Error)

	w = u1.do(http.MethodGet, "/api/admin/user-count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalUsers":1}`, w.Body.String())
}

func TestRateLimiting(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"RATE_LIMIT_ENABLED": "true",
		"RATE_LIMIT_RPM":     "1",
		"RATE_LIMIT_BURST":   "2",
	})
	anon := &client{t: t, router: a.Router()}

	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/health/live", "").Code)

	w := anon.do(http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestOperationalEndpoints(t *testing.T) {
	a := newTestApp(t, nil)
	anon := &client{t: t, router: a.Router()}

	for _, path := range []string{"/health", "/health/ready", "/health/live", "/metrics"} {
		w := anon.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := anon.do(http.MethodGet, "/metrics", "")
	assert.Contains(t, w.Body.String(), `"database"`)
	assert.Contains(t, w.Body.String(), `"application"`)
}

func TestOpenAPIDocumentListsRoutes(t *testing.T) {
	a := newTestApp(t, nil)
	anon := &client{t: t, router: a.Router()}

	w := anon.do(http.MethodGet, "/api/openapi", "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		OpenAPI string                                `json:"openapi"`
		Info    map[string]interface{}                `json:"info"`
		Servers []map[string]string                   `json:"servers"`
		Paths   map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "Todo API", doc.Info["title"])
	assert.Equal(t, "http://localhost:3000", doc.Servers[0]["url"])

	assert.Contains(t, doc.Paths["/api"], "get")
	assert.Contains(t, doc.Paths["/api"], "post")
	assert.Contains(t, doc.Paths["/api/{id}"], "put")
	assert.Contains(t, doc.Paths["/api/{id}"], "patch")
	assert.Contains(t, doc.Paths["/api/{id}"], "delete")
	assert.Contains(t, doc.Paths["/api/admin/user-count"], "get")
	assert.Contains(t, doc.Paths["/api/auth/sign-up/email"], "post")
	assert.Contains(t, doc.Paths["/api/auth/get-session"], "get")
}

func TestNewRouter_RequiresDependencies(t *testing.T) {
	_, err := NewRouter(Dependencies{})
	assert.Error(t, err)
}

func TestUserDeletionCascades(t *testing.T) {
	a := newTestApp(t, nil)
	u1 := signUp(t, a, "u1")
	require.Equal(t, http.StatusCreated, u1.do(http.MethodPost, "/api", exampleTodo).Code)

	db := a.Pool().DB
	require.NoError(t, db.Delete(&models.User{ID: u1.userID}).Error)

	var todos, sessions int64
	require.NoError(t, db.Model(&models.Todo{}).Count(&todos).Error)
	require.NoError(t, db.Model(&models.Session{}).Count(&sessions).Error)
	assert.Zero(t, todos)
	assert.Zero(t, sessions)
}
