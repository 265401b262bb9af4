// Package logger provides structured JSON logging for event-discovery.
//
// The logger supports four levels (DEBUG, INFO, WARN, ERROR) and writes one
// JSON object per entry. It is backed by zap; when a log file is configured
// entries are also written to a size-rotated file.
//
// Example usage:
//
//	logger.Info("Saved events", logger.Fields{
//	    "backend": "excel",
//	    "count":   42,
//	})
//
//	logger.Error("Could not load events", logger.Fields{
//	    "backend": "google_sheets",
//	}, err)
package logger

import (
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel maps a configured level name to a Level. Unknown names map to
// LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR", "CRITICAL":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger provides structured logging
type Logger struct {
	z      *zap.Logger
	closer io.Closer
}

// FileOptions configures the rotating log file sink
type FileOptions struct {
	Path         string
	MaxSizeBytes int64
	MaxBackups   int
}

var defaultLogger = New(LevelInfo, os.Stdout)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}

// New creates a logger writing JSON entries at or above level to output.
func New(level Level, output io.Writer) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(output), level.zapLevel())
	return &Logger{z: zap.New(core)}
}

// NewWithFile creates a logger that writes to output and to a rotating file.
// An empty file path behaves like New.
func NewWithFile(level Level, output io.Writer, file FileOptions) *Logger {
	if file.Path == "" {
		return New(level, output)
	}

	rotator := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    megabytes(file.MaxSizeBytes),
		MaxBackups: file.MaxBackups,
	}
	enc := zapcore.NewJSONEncoder(encoderConfig())
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(output), level.zapLevel()),
		zapcore.NewCore(enc.Clone(), zapcore.AddSync(rotator), level.zapLevel()),
	)
	return &Logger{z: zap.New(core), closer: rotator}
}

// megabytes converts a byte budget to lumberjack's megabyte unit, rounding up.
func megabytes(n int64) int {
	const mb = 1024 * 1024
	if n <= 0 {
		return 0
	}
	return int((n + mb - 1) / mb)
}

// SetDefault sets the default package-level logger used by the convenience functions
// (Debug, Info, Warn, Error). This allows centralizing logger configuration.
func SetDefault(logger *Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// Default returns the package-level logger
func Default() *Logger {
	return defaultLogger
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{z: l.z.With(zapFields(fields, nil)...), closer: l.closer}
}

// Zap exposes the underlying zap logger for libraries that take one
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Close flushes buffered entries and closes the log file, if any
func (l *Logger) Close() error {
	_ = l.z.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func zapFields(fields Fields, err error) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields Fields) {
	l.z.Debug(message, zapFields(fields, nil)...)
}

// Info logs an informational message with optional structured fields.
func (l *Logger) Info(message string, fields Fields) {
	l.z.Info(message, zapFields(fields, nil)...)
}

// Warn logs a warning message with optional structured fields.
func (l *Logger) Warn(message string, fields Fields) {
	l.z.Warn(message, zapFields(fields, nil)...)
}

// Error logs an error message with optional structured fields and an error object.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.z.Error(message, zapFields(fields, err)...)
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	defaultLogger.Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	defaultLogger.Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	defaultLogger.Warn(message, fields)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	defaultLogger.Error(message, fields, err)
}
