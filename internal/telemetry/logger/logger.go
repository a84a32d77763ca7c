package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// Logger is the logging interface handed to the server components.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
	// Slog exposes the wrapped slog.Logger for collaborators that take
	// one directly.
	Slog() *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Output is the output writer (defaults to os.Stderr).
	Output io.Writer
	// AddSource annotates records with the file:line of the call site.
	AddSource bool
}

// DefaultConfig is the configuration in effect before any config file is
// read: info-level JSON on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// globalLevel backs every handler built by New, so a SetLevel call takes
// effect on all of them at once.
var globalLevel = new(slog.LevelVar)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseLevel maps a level name to its slog.Level, defaulting to info.
func parseLevel(name string) slog.Level {
	if lv, ok := levelNames[strings.ToLower(name)]; ok {
		return lv
	}
	return slog.LevelInfo
}

// New builds a Logger from cfg. Loggers share one level var; the most
// recent New or SetLevel call decides the effective level everywhere.
func New(cfg Config) (Logger, error) {
	globalLevel.Set(parseLevel(cfg.Level))
	return &slogLogger{
		logger: slog.New(newHandler(cfg)),
		ctx:    context.Background(),
	}, nil
}

// newHandler picks the slog backend for the configured format and wires
// in sensitive-value redaction.
func newHandler(cfg Config) slog.Handler {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     globalLevel,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}
	if f := strings.ToLower(cfg.Format); f == "text" || f == "console" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// SetLevel adjusts the level of every logger at runtime, e.g. after a
// config reload.
func SetLevel(level string) {
	globalLevel.Set(parseLevel(level))
}

// GetLevel reports the current level by name.
func GetLevel() string {
	switch lv := globalLevel.Level(); {
	case lv <= slog.LevelDebug:
		return "debug"
	case lv <= slog.LevelInfo:
		return "info"
	case lv <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// slogLogger is the concrete Logger. It pins a context so request-scoped
// values travel with every record.
type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

func (l *slogLogger) Debug(msg string, args ...any) { l.emit(slog.LevelDebug, msg, args) }
func (l *slogLogger) Info(msg string, args ...any)  { l.emit(slog.LevelInfo, msg, args) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.emit(slog.LevelWarn, msg, args) }
func (l *slogLogger) Error(msg string, args ...any) { l.emit(slog.LevelError, msg, args) }

// emit writes one record through the handler. It captures the program
// counter of the Logger method's caller so AddSource names the real call
// site rather than this wrapper.
func (l *slogLogger) emit(level slog.Level, msg string, args []any) {
	if !l.logger.Enabled(l.ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip Callers, emit, and the level method
	rec := slog.NewRecord(time.Now(), level, msg, pcs[0])
	rec.Add(args...)
	_ = l.logger.Handler().Handle(l.ctx, rec)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{logger: l.logger, ctx: ctx}
}

func (l *slogLogger) Slog() *slog.Logger {
	return l.logger
}

// defaultLogger is what the package-level helpers write through until
// main installs the configured logger.
var defaultLogger atomic.Pointer[slogLogger]

func init() {
	boot, _ := New(DefaultConfig())
	defaultLogger.Store(boot.(*slogLogger))
}

// SetDefault installs l as the logger behind the package-level helpers.
func SetDefault(l Logger) {
	sl, ok := l.(*slogLogger)
	if !ok {
		return
	}
	defaultLogger.Store(sl)
}

// Default returns the logger behind the package-level helpers.
func Default() Logger {
	return defaultLogger.Load()
}

// Debug logs at debug level through the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs at info level through the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs at warn level through the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs at error level through the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }
