package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerWithLevel(t *testing.T) {
	logger, err := NewLoggerWithLevel("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLoggerWithLevel("not-a-level")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestLogger_DefaultsToNoop(t *testing.T) {
	assert.NotNil(t, Logger(context.Background()))
}

func TestWithUser_EnrichesLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	ctx = WithUser(ctx, User{ID: "u1", Email: "ama@example.com", Area: "seller"})
	Logger(ctx).Info("dashboard opened")

	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "seller", fields["area"])
}

func TestUserFromContext_Missing(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}

func TestLoggerOr(t *testing.T) {
	fallback := zap.NewExample()
	assert.Same(t, fallback, LoggerOr(context.Background(), fallback))

	attached := zap.NewExample()
	ctx := WithLogger(context.Background(), attached)
	assert.Same(t, attached, LoggerOr(ctx, fallback))

	assert.NotNil(t, LoggerOr(context.Background(), nil))
}
