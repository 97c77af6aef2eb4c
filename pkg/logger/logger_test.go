package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	logger := New(Config{Environment: "development", LogLevel: "debug", ServiceName: "dealgrid"})
	assert.NotNil(t, logger)

	// Empty config falls back to sane defaults.
	logger = New(Config{})
	assert.NotNil(t, logger)
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, getLogLevel(tt.input).Level())
		})
	}
}

func TestFromContext(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), "trust")
	FromContext(ctx, base).Info("scored")

	entries := observed.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "trust", entries[0].ContextMap()["component"])

	// No component in context means the base logger unchanged.
	assert.Equal(t, base, FromContext(context.Background(), base))
	assert.Equal(t, context.Background(), WithContext(context.Background(), ""))
}
