package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `json:"server" toml:"server"`
	Database  DatabaseConfig  `json:"database" toml:"database"`
	Auth      AuthConfig      `json:"auth" toml:"auth"`
	CORS      CORSConfig      `json:"cors" toml:"cors"`
	RateLimit RateLimitConfig `json:"rate_limit" toml:"rate_limit"`
	Log       LogConfig       `json:"log" toml:"log"`
	Todo      TodoConfig      `json:"todo" toml:"todo"`
}

type ServerConfig struct {
	Host            string        `json:"host" toml:"host"`
	Port            string        `json:"port" toml:"port"`
	BasePath        string        `json:"base_path" toml:"base_path"`
	ReadTimeout     time.Duration `json:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" toml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" toml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
	Environment     string        `json:"environment" toml:"environment"`
}

type DatabaseConfig struct {
	URL             string        `json:"-" toml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" toml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" toml:"conn_max_idle_time"`
	AutoMigrate     bool          `json:"auto_migrate" toml:"auto_migrate"`
}

type AuthConfig struct {
	Secret            string        `json:"-" toml:"secret"`
	BaseURL           string        `json:"base_url" toml:"base_url"`
	SessionTTL        time.Duration `json:"session_ttl" toml:"session_ttl"`
	CookieName        string        `json:"cookie_name" toml:"cookie_name"`
	CookieSecure      bool          `json:"cookie_secure" toml:"cookie_secure"`
	CookieSameSite    string        `json:"cookie_same_site" toml:"cookie_same_site"`
	BCryptCost        int           `json:"bcrypt_cost" toml:"bcrypt_cost"`
	TrustedOrigins    []string      `json:"trusted_origins" toml:"trusted_origins"`
	AdminRoleRequired bool          `json:"admin_role_required" toml:"admin_role_required"`
}

type CORSConfig struct {
	AllowOrigins []string      `json:"allow_origins" toml:"allow_origins"`
	MaxAge       time.Duration `json:"max_age" toml:"max_age"`
}

type RateLimitConfig struct {
	Enabled         bool          `json:"enabled" toml:"enabled"`
	RequestsPerMin  int           `json:"requests_per_minute" toml:"requests_per_minute"`
	BurstSize       int           `json:"burst_size" toml:"burst_size"`
	CleanupInterval time.Duration `json:"cleanup_interval" toml:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"`
}

type TodoConfig struct {
	Timezone string `json:"timezone" toml:"timezone"`
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:5173",
	"http://192.168.1.18:8081",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            "3000",
			BasePath:        "/api",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Auth: AuthConfig{
			SessionTTL:     7 * 24 * time.Hour,
			CookieName:     "todo.session_token",
			CookieSameSite: "lax",
			BCryptCost:     10,
		},
		CORS: CORSConfig{
			AllowOrigins: append([]string(nil), defaultOrigins...),
			MaxAge:       12 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			RequestsPerMin:  100,
			BurstSize:       10,
			CleanupInterval: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Todo: TodoConfig{
			Timezone: "UTC",
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional TOML file
// named by CONFIG_FILE, and the environment, in that order of precedence.
func LoadConfig() (*Config, error) {
	config := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	config.Server = ServerConfig{
		Host:            getEnv("HOST", config.Server.Host),
		Port:            getEnv("PORT", config.Server.Port),
		BasePath:        normalizeBasePath(getEnv("BASE_PATH", config.Server.BasePath)),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", config.Server.ReadTimeout),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", config.Server.WriteTimeout),
		IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", config.Server.IdleTimeout),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", config.Server.ShutdownTimeout),
		Environment:     getEnv("ENVIRONMENT", config.Server.Environment),
	}
	config.Database = DatabaseConfig{
		URL:             getEnv("DATABASE_URL", config.Database.URL),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", config.Database.MaxOpenConns),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", config.Database.MaxIdleConns),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", config.Database.ConnMaxLifetime),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", config.Database.ConnMaxIdleTime),
		AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", config.Database.AutoMigrate),
	}
	config.CORS = CORSConfig{
		AllowOrigins: getEnvAsSlice("CORS_ORIGINS", config.CORS.AllowOrigins),
		MaxAge:       getEnvAsDuration("CORS_MAX_AGE", config.CORS.MaxAge),
	}
	config.Auth = AuthConfig{
		Secret:            getEnv("AUTH_SECRET", config.Auth.Secret),
		BaseURL:           strings.TrimSuffix(getEnv("APP_URL", config.Auth.BaseURL), "/"),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", config.Auth.SessionTTL),
		CookieName:        getEnv("SESSION_COOKIE_NAME", config.Auth.CookieName),
		CookieSecure:      getEnvAsBool("SESSION_COOKIE_SECURE", config.Auth.CookieSecure),
		CookieSameSite:    strings.ToLower(getEnv("SESSION_COOKIE_SAMESITE", config.Auth.CookieSameSite)),
		BCryptCost:        getEnvAsInt("BCRYPT_COST", config.Auth.BCryptCost),
		TrustedOrigins:    getEnvAsSlice("AUTH_TRUSTED_ORIGINS", config.Auth.TrustedOrigins),
		AdminRoleRequired: getEnvAsBool("AUTH_ADMIN_ROLE_REQUIRED", config.Auth.AdminRoleRequired),
	}
	if len(config.Auth.TrustedOrigins) == 0 {
		config.Auth.TrustedOrigins = append([]string(nil), config.CORS.AllowOrigins...)
		if config.Auth.BaseURL != "" {
			config.Auth.TrustedOrigins = append(config.Auth.TrustedOrigins, config.Auth.BaseURL)
		}
	}
	config.RateLimit = RateLimitConfig{
		Enabled:         getEnvAsBool("RATE_LIMIT_ENABLED", config.RateLimit.Enabled),
		RequestsPerMin:  getEnvAsInt("RATE_LIMIT_RPM", config.RateLimit.RequestsPerMin),
		BurstSize:       getEnvAsInt("RATE_LIMIT_BURST", config.RateLimit.BurstSize),
		CleanupInterval: getEnvAsDuration("RATE_LIMIT_CLEANUP", config.RateLimit.CleanupInterval),
	}
	config.Log = LogConfig{
		Level:  strings.ToLower(getEnv("LOG_LEVEL", config.Log.Level)),
		Format: strings.ToLower(getEnv("LOG_FORMAT", config.Log.Format)),
	}
	config.Todo = TodoConfig{
		Timezone: getEnv("TODO_TIMEZONE", config.Todo.Timezone),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.Secret == "" {
		missing = append(missing, "AUTH_SECRET")
	}
	if c.Auth.BaseURL == "" {
		missing = append(missing, "APP_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.IsProduction() && len(c.Auth.Secret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters in production")
	}

	if _, err := time.LoadLocation(c.Todo.Timezone); err != nil {
		return fmt.Errorf("invalid TODO_TIMEZONE %q: %w", c.Todo.Timezone, err)
	}

	switch c.Auth.CookieSameSite {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("invalid SESSION_COOKIE_SAMESITE %q: want lax, strict or none", c.Auth.CookieSameSite)
	}

	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Location is the zone used to interpret date and time strings in todo payloads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Todo.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
