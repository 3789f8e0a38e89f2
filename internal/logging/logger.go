// Package logging builds the process logger and the adapters that route
// framework output through it.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"todo-api/backend/internal/config"

	"github.com/charmbracelet/log"
	gormlogger "gorm.io/gorm/logger"
)

// New returns a leveled logger configured from cfg. A nil writer means stderr.
func New(cfg config.LogConfig, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter(cfg.Format),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "todo-api",
	})
}

func formatter(name string) log.Formatter {
	switch strings.ToLower(name) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// GormLogLevel maps the process level onto gorm's coarser levels. SQL
// statements are only traced at debug.
func GormLogLevel(logger *log.Logger) gormlogger.LogLevel {
	switch logger.GetLevel() {
	case log.DebugLevel:
		return gormlogger.Info
	case log.InfoLevel, log.WarnLevel:
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

// NewGormLogger returns a gorm logger writing through logger.
func NewGormLogger(logger *log.Logger, level gormlogger.LogLevel) gormlogger.Interface {
	return gormlogger.New(gormWriter{logger.WithPrefix("gorm")}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		Colorful:                  false,
	})
}

type gormWriter struct {
	logger *log.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Printf(format, args...)
}
