package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"INFO", zapcore.InfoLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger, err = New(ProductionConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewForEnvironment(t *testing.T) {
	logger, err := NewForEnvironment("production")
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger, err = NewForEnvironment("development")
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestFromContext_Fallback(t *testing.T) {
	// Missing logger yields a no-op logger, never nil.
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	logger.Info("should not panic")
}

func TestWithRequestID(t *testing.T) {
	base, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx, enriched := WithRequestID(context.Background(), base, "req-123")
	require.NotNil(t, enriched)
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))
}

func TestWithUserID(t *testing.T) {
	base, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx, enriched := WithUserID(context.Background(), base, "user-42")
	require.NotNil(t, enriched)
	assert.Equal(t, "user-42", GetUserID(ctx))
}

func TestContextLogger_NilSafe(t *testing.T) {
	cl := L(context.Background())
	require.NotNil(t, cl)
	cl.Info("no-op log")
	cl.Debug("no-op log")
	cl.With().Warn("no-op log")
}
