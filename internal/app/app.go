// Package app assembles the database pool, services and router into a
// runnable application.
package app

import (
	"fmt"

	"todo-api/backend/internal/config"
	"todo-api/backend/internal/database"
	"todo-api/backend/internal/logging"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

type App struct {
	config *config.Config
	logger *log.Logger
	pool   *database.DatabasePool
	router *gin.Engine
}

// New opens the database, runs migrations when enabled and builds the router.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	poolConfig := database.DefaultPoolConfig()
	poolConfig.DSN = cfg.Database.URL
	poolConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	poolConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	poolConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	poolConfig.Logger = logging.NewGormLogger(logger, logging.GormLogLevel(logger))

	pool, err := database.NewDatabasePool(poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := pool.Migrate(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database migrated")
	}

	router, err := NewRouter(Dependencies{Config: cfg, Logger: logger, Pool: pool})
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{config: cfg, logger: logger, pool: pool, router: router}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Pool() *database.DatabasePool {
	return a.pool
}

func (a *App) Close() error {
	if err := a.pool.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	a.logger.Info("database closed")
	return nil
}
