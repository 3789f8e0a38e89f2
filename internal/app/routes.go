package app

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"todo-api/backend/internal/config"
	"todo-api/backend/internal/database"
	"todo-api/backend/internal/docs"
	"todo-api/backend/internal/handlers"
	"todo-api/backend/internal/middleware"
	"todo-api/backend/internal/models"
	"todo-api/backend/internal/monitoring"
	"todo-api/backend/internal/services"
	"todo-api/backend/internal/validation"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

type Dependencies struct {
	Config *config.Config
	Logger *log.Logger
	Pool   *database.DatabasePool
}

// routes registers a handler chain on gin and records it in the docs registry
// under its full path.
type routes struct {
	registry *docs.Registry
}

func (r routes) handle(group *gin.RouterGroup, op docs.Operation, chain ...gin.HandlerFunc) {
	relative := op.Path
	group.Handle(op.Method, relative, chain...)

	op.Path = path.Join(group.BasePath(), relative)
	r.registry.Add(op)
}

func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil || deps.Logger == nil || deps.Pool == nil {
		return nil, errors.New("router requires config, logger and database pool")
	}
	cfg, logger, db := deps.Config, deps.Logger, deps.Pool.DB

	validator, err := validation.NewValidator(cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("compile todo schemas: %w", err)
	}

	authService := services.NewAuthService(services.AuthOptions{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.BaseURL,
		SessionTTL: cfg.Auth.SessionTTL,
		CookieName: cfg.Auth.CookieName,
		BCryptCost: cfg.Auth.BCryptCost,
	})
	todoService := services.NewTodoService()
	userService := services.NewUserService()

	todoHandler := handlers.NewTodoHandler(db, todoService, validator)
	adminHandler := handlers.NewAdminHandler(db, userService)
	authHandler := handlers.NewAuthHandler(db, authService, handlers.CookieOptions{
		Name:     cfg.Auth.CookieName,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: handlers.ParseSameSite(cfg.Auth.CookieSameSite),
	})

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker(metrics, 0)
	health.Register("database", deps.Pool.Health)

	router := gin.New()
	router.Use(
		middleware.RequestLogger(logger),
		middleware.RecoveryWithLog(logger),
		metrics.Middleware(),
		middleware.CORS(cfg.CORS),
		middleware.RateLimiter(cfg.RateLimit),
	)

	r := routes{registry: docs.NewRegistry()}
	basePath := cfg.Server.BasePath

	gate := middleware.SessionGate(db, authService, basePath, logger)
	api := router.Group(basePath, gate)
	registerTodoRoutes(r, api, todoHandler)

	// Unmatched paths under the base path still require a session.
	router.NoRoute(func(c *gin.Context) {
		if underBasePath(basePath, c.Request.URL.Path) {
			gate(c)
			return
		}
		c.Next()
	}, func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})

	adminChain := []gin.HandlerFunc{middleware.Authenticated(adminHandler.UserCount)}
	if cfg.Auth.AdminRoleRequired {
		adminChain = append([]gin.HandlerFunc{middleware.RequireRole(db, userService, models.RoleAdmin)}, adminChain...)
	}
	r.handle(api, docs.Operation{
		Method:      http.MethodGet,
		Path:        "/admin/user-count",
		Summary:     "Count registered users",
		Description: "Total number of user accounts",
		Tags:        []string{"admin"},
		Responses: map[int]docs.Response{
			200: {Description: "User count", Schema: "UserCount"},
			401: {Description: "Login required", Schema: "Message"},
			403: {Description: "Forbidden", Schema: "Message"},
		},
	}, adminChain...)

	auth := api.Group("/auth", middleware.TrustedOrigins(cfg.Auth.TrustedOrigins))
	registerAuthRoutes(r, auth, authHandler)

	info := docs.Info{
		Title:       "Todo API",
		Version:     "1.0.0",
		Description: "Per-user todo lists with email and password sessions",
		Servers:     []string{cfg.Auth.BaseURL},
		CookieName:  cfg.Auth.CookieName,
	}
	api.GET("/openapi", r.registry.Handler(info))
	docs.Mount(api, "/docs", path.Join("/", basePath, "openapi"))

	router.GET("/health", health.HealthHandler())
	router.GET("/health/ready", health.ReadinessHandler())
	router.GET("/health/live", health.LivenessHandler())
	router.GET("/metrics", metrics.Handler(func() map[string]interface{} {
		return map[string]interface{}{"database": deps.Pool.Stats()}
	}))

	return router, nil
}

func underBasePath(basePath, p string) bool {
	return basePath == "" || p == basePath || strings.HasPrefix(p, basePath+"/")
}

func registerTodoRoutes(r routes, api *gin.RouterGroup, h *handlers.TodoHandler) {
	notFound := docs.Response{Description: "Not found", Schema: "Message"}
	invalid := docs.Response{Description: "Validation error", Schema: "ValidationError"}
	unauthorized := docs.Response{Description: "Login required", Schema: "Message"}

	r.handle(api, docs.Operation{
		Method:      http.MethodGet,
		Path:        "",
		Summary:     "List todos",
		Description: "Get user todos",
		Tags:        []string{"todos"},
		Responses: map[int]docs.Response{
			200: {Description: "Todos list", Schema: "[]Todo"},
			401: unauthorized,
		},
	}, middleware.Authenticated(h.ListTodos))

	r.handle(api, docs.Operation{
		Method:        http.MethodPost,
		Path:          "",
		Summary:       "Create todo",
		Description:   "Create a todo owned by the caller",
		Tags:          []string{"todos"},
		RequestSchema: "FullTodo",
		Responses: map[int]docs.Response{
			201: {Description: "Created", Schema: "TodoEnvelope"},
			400: invalid,
			401: unauthorized,
		},
	}, middleware.Authenticated(h.CreateTodo))

	r.handle(api, docs.Operation{
		Method:        http.MethodPut,
		Path:          "/:id",
		Summary:       "Replace todo",
		Description:   "Replace every field of a todo",
		Tags:          []string{"todos"},
		RequestSchema: "FullTodo",
		Responses: map[int]docs.Response{
			200: {Description: "Updated", Schema: "TodoEnvelope"},
			400: invalid,
			401: unauthorized,
			404: notFound,
		},
	}, middleware.Authenticated(h.ReplaceTodo))

	r.handle(api, docs.Operation{
		Method:        http.MethodPatch,
		Path:          "/:id",
		Summary:       "Patch todo",
		Description:   "Update the supplied fields of a todo",
		Tags:          []string{"todos"},
		RequestSchema: "PatchTodo",
		Responses: map[int]docs.Response{
			200: {Description: "Updated", Schema: "TodoEnvelope"},
			400: invalid,
			401: unauthorized,
			404: notFound,
		},
	}, middleware.Authenticated(h.PatchTodo))

	r.handle(api, docs.Operation{
		Method:      http.MethodDelete,
		Path:        "/:id",
		Summary:     "Delete todo",
		Description: "Delete a todo",
		Tags:        []string{"todos"},
		Responses: map[int]docs.Response{
			200: {Description: "Deleted", Schema: "Message"},
			400: invalid,
			401: unauthorized,
			404: notFound,
		},
	}, middleware.Authenticated(h.DeleteTodo))
}

func registerAuthRoutes(r routes, auth *gin.RouterGroup, h *handlers.AuthHandler) {
	forbidden := docs.Response{Description: "Invalid origin", Schema: "Message"}

	r.handle(auth, docs.Operation{
		Method:        http.MethodPost,
		Path:          "/sign-up/email",
		Summary:       "Sign up",
		Description:   "Create an account with email and password and start a session",
		Tags:          []string{"auth"},
		RequestSchema: "SignUp",
		Public:        true,
		Responses: map[int]docs.Response{
			200: {Description: "Signed up"},
			400: {Description: "Validation error", Schema: "ValidationError"},
			403: forbidden,
			422: {Description: "User already exists", Schema: "Message"},
		},
	}, h.SignUpEmail)

	r.handle(auth, docs.Operation{
		Method:        http.MethodPost,
		Path:          "/sign-in/email",
		Summary:       "Sign in",
		Description:   "Start a session with email and password",
		Tags:          []string{"auth"},
		RequestSchema: "SignIn",
		Public:        true,
		Responses: map[int]docs.Response{
			200: {Description: "Signed in"},
			400: {Description: "Validation error", Schema: "ValidationError"},
			401: {Description: "Invalid email or password", Schema: "Message"},
			403: forbidden,
		},
	}, h.SignInEmail)

	r.handle(auth, docs.Operation{
		Method:      http.MethodPost,
		Path:        "/sign-out",
		Summary:     "Sign out",
		Description: "End the current session",
		Tags:        []string{"auth"},
		Public:      true,
		Responses: map[int]docs.Response{
			200: {Description: "Signed out"},
			403: forbidden,
		},
	}, h.SignOut)

	r.handle(auth, docs.Operation{
		Method:      http.MethodGet,
		Path:        "/get-session",
		Summary:     "Current session",
		Description: "The active session and its user, or null",
		Tags:        []string{"auth"},
		Public:      true,
		Responses: map[int]docs.Response{
			200: {Description: "Session or null"},
		},
	}, h.GetSession)
}
