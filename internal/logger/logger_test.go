package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_Log(t *testing.T) {
	tests := []struct {
		name    string
		log     func(l *Logger)
		want    bool // should log
		level   string
		message string
	}{
		{
			name:    "info message",
			log:     func(l *Logger) { l.Info("test message", Fields{"key": "value"}) },
			want:    true,
			level:   "INFO",
			message: "test message",
		},
		{
			name: "debug below threshold",
			log:  func(l *Logger) { l.Debug("debug message", nil) },
			want: false,
		},
		{
			name:    "warn message",
			log:     func(l *Logger) { l.Warn("careful", nil) },
			want:    true,
			level:   "WARN",
			message: "careful",
		},
		{
			name:    "error with err",
			log:     func(l *Logger) { l.Error("error occurred", nil, errors.New("test error")) },
			want:    true,
			level:   "ERROR",
			message: "error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(New(LevelInfo, &buf))

			entries := decodeLines(t, buf.Bytes())
			if logged := len(entries) > 0; logged != tt.want {
				t.Fatalf("logged = %v, want %v", logged, tt.want)
			}
			if !tt.want {
				return
			}
			if entries[0]["level"] != tt.level {
				t.Errorf("level = %v, want %v", entries[0]["level"], tt.level)
			}
			if entries[0]["message"] != tt.message {
				t.Errorf("message = %v, want %v", entries[0]["message"], tt.message)
			}
			if _, ok := entries[0]["timestamp"]; !ok {
				t.Error("entry has no timestamp")
			}
		})
	}
}

func TestLogger_FieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelDebug, &buf)

	l.Error("save failed", Fields{"backend": "excel", "count": 3}, errors.New("disk full"))

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["backend"] != "excel" {
		t.Errorf("backend = %v, want excel", entry["backend"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v, want 3", entry["count"])
	}
	if entry["error"] != "disk full" {
		t.Errorf("error = %v, want disk full", entry["error"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf).With(Fields{"run_id": "abc"})

	l.Info("one", nil)
	l.Info("two", Fields{"n": 2})

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry["run_id"] != "abc" {
			t.Errorf("entry %v is missing run_id", entry)
		}
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		minLevel  Level
		log       func(l *Logger)
		shouldLog bool
	}{
		{"debug logs at debug", LevelDebug, func(l *Logger) { l.Debug("test", nil) }, true},
		{"info logs at debug", LevelDebug, func(l *Logger) { l.Info("test", nil) }, true},
		{"debug doesn't log at info", LevelInfo, func(l *Logger) { l.Debug("test", nil) }, false},
		{"warn doesn't log at error", LevelError, func(l *Logger) { l.Warn("test", nil) }, false},
		{"error always logs", LevelDebug, func(l *Logger) { l.Error("test", nil, nil) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(New(tt.minLevel, &buf))

			if logged := buf.Len() > 0; logged != tt.shouldLog {
				t.Errorf("shouldLog = %v, want %v", logged, tt.shouldLog)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"WARNING", LevelWarn},
		{"warn", LevelWarn},
		{"ERROR", LevelError},
		{"CRITICAL", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	var buf bytes.Buffer

	l := NewWithFile(LevelInfo, &buf, FileOptions{Path: path, MaxSizeBytes: 10485760, MaxBackups: 5})
	l.Info("written twice", Fields{"k": "v"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written twice") {
		t.Errorf("log file = %q, want entry", string(data))
	}
	if !strings.Contains(buf.String(), "written twice") {
		t.Errorf("output = %q, want entry", buf.String())
	}
}

func TestMegabytes(t *testing.T) {
	tests := []struct {
		in   int64
		want int
	}{
		{0, 0},
		{1, 1},
		{1024 * 1024, 1},
		{10485760, 10},
		{10485761, 11},
	}
	for _, tt := range tests {
		if got := megabytes(tt.in); got != tt.want {
			t.Errorf("megabytes(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(LevelDebug, &buf))
	defer SetDefault(prev)

	Debug("test debug", nil)
	Info("test info", Fields{"key": "value"})
	Warn("test warning", nil)
	Error("test error", Fields{"component": "test"}, errors.New("test"))

	if got := len(decodeLines(t, buf.Bytes())); got != 4 {
		t.Errorf("expected 4 entries, got %d", got)
	}

	SetDefault(nil)
	if Default() == nil {
		t.Error("SetDefault(nil) cleared the default logger")
	}
}
