package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopLogger(t *testing.T) {
	logger := &NoopLogger{}

	// Should not panic
	logger.Debug("test")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test")

	// With arguments
	logger.Debug("test", "key", "value")
	logger.Info("test", "key", "value")
	logger.Warn("test", "key", "value")
	logger.Error("test", "key", "value")
}

func TestSlogAdapter(t *testing.T) {
	tests := []struct {
		name       string
		logFunc    func(Logger, string, ...any)
		message    string
		args       []any
		wantLevel  string
		wantFields map[string]string
	}{
		{
			name:      "Debug level",
			logFunc:   func(l Logger, msg string, args ...any) { l.Debug(msg, args...) },
			message:   "statement classified",
			args:      []any{"kind", "SELECT"},
			wantLevel: "DEBUG",
			wantFields: map[string]string{
				"kind": "SELECT",
			},
		},
		{
			name:      "Info level",
			logFunc:   func(l Logger, msg string, args ...any) { l.Info(msg, args...) },
			message:   "query executed",
			args:      []any{"applied_limit", "500"},
			wantLevel: "INFO",
			wantFields: map[string]string{
				"applied_limit": "500",
			},
		},
		{
			name:      "Warn level",
			logFunc:   func(l Logger, msg string, args ...any) { l.Warn(msg, args...) },
			message:   "large result estimated",
			args:      []any{"estimated_rows", "50000"},
			wantLevel: "WARN",
			wantFields: map[string]string{
				"estimated_rows": "50000",
			},
		},
		{
			name:      "Error level",
			logFunc:   func(l Logger, msg string, args ...any) { l.Error(msg, args...) },
			message:   "query execution failed",
			args:      []any{"error", "connection failed"},
			wantLevel: "ERROR",
			wantFields: map[string]string{
				"error": "connection failed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})
			logger := NewSlogAdapter(slog.New(handler))

			tt.logFunc(logger, tt.message, tt.args...)

			output := buf.String()
			assert.Contains(t, output, tt.wantLevel)
			assert.Contains(t, output, tt.message)
			for key, value := range tt.wantFields {
				assert.Contains(t, output, key+"=")
				assert.Contains(t, output, value)
			}
		})
	}
}

func TestSlogAdapterJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := NewSlogAdapter(slog.New(handler))

	logger.Info("query executed",
		"sql", "SELECT * FROM orders LIMIT 500",
		"kind", "SELECT",
		"duration_ms", 15,
		"rows", 500)

	output := buf.String()
	assert.Contains(t, output, `"msg":"query executed"`)
	assert.Contains(t, output, `"sql":"SELECT * FROM orders LIMIT 500"`)
	assert.Contains(t, output, `"kind":"SELECT"`)
	assert.Contains(t, output, `"duration_ms":15`)
	assert.Contains(t, output, `"rows":500`)
}

func BenchmarkNoopLogger(b *testing.B) {
	logger := &NoopLogger{}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		logger.Info("query executed",
			"sql", "SELECT * FROM orders LIMIT 500",
			"duration_ms", 15,
			"rows", 500)
	}
}

func BenchmarkSlogAdapter(b *testing.B) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		logger.Info("query executed",
			"sql", "SELECT * FROM orders LIMIT 500",
			"duration_ms", 15,
			"rows", 500)
	}
}
