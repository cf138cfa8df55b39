// Package logger owns the process-wide slog instance. Every component
// logs through L() (or the package-level helpers), so handler choice,
// level and the component attribute are decided once, from config.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/soundmate/soundmate/internal/config"
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// InitFromConfig builds the global logger from the app config. Safe to
// call again; later calls replace the handler.
func InitFromConfig(c *config.Config) {
	mu.Lock()
	defer mu.Unlock()
	logger = build(c)
}

func build(c *config.Config) *slog.Logger {
	level := slog.LevelInfo
	format := "text"
	component := ""
	source := false
	if c != nil {
		level = parseLevel(c.Log.Level)
		format = strings.ToLower(c.Log.Format)
		component = c.Log.Component
		source = c.Log.Source
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: source,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// human-readable timestamps for the text handler
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02 15:04:05"))
			}
			return a
		}
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	if component != "" {
		log = log.With("component", component)
	}
	return log
}

// L returns the global logger, initializing a default one on first use.
func L() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build(nil)
	}
	return logger
}

// With creates a child logger with additional attributes.
func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
