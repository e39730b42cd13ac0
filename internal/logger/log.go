package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"facility-inspect/internal/config"

	"gopkg.in/lumberjack.v2"
)

const appName = "facility-inspect"

var level = new(slog.LevelVar)

// Init installs the process-wide JSON logger. Console output goes to stdout;
// with neither console nor file configured, records go to stderr so CLI
// output stays clean. The returned func closes the rotating file.
func Init(cfg config.LogConfig) func() error {
	level.Set(parseLevel(cfg.Level))

	var writers []io.Writer
	closeFn := func() error { return nil }
	if cfg.Console {
		writers = append(writers, os.Stdout)
	}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		}
		writers = append(writers, rotating)
		closeFn = rotating.Close
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	h := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level:     level,
		AddSource: level.Level() == slog.LevelDebug,
	})
	slog.SetDefault(slog.New(h).With("app", appName))
	Debug("logger.init", "level", level.Level().String(), "file", cfg.File)
	return closeFn
}

// SetLevel changes the minimum level at runtime.
func SetLevel(s string) { level.Set(parseLevel(s)) }

// With returns a logger carrying attrs, for request-scoped fields.
func With(args ...any) *slog.Logger { return slog.Default().With(args...) }

func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }
func Debug(msg string, args ...any) { slog.Debug(msg, args...) }

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
