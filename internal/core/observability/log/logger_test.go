package log

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesTypedFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewFromCore(core).With(String("component", "queue"))

	logger.Info("record queued",
		String("id", "abc"),
		Int("depth", 3),
		Duration("delay", time.Second),
		Error(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "record queued", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "queue", ctx["component"])
	assert.Equal(t, "abc", ctx["id"])
	assert.EqualValues(t, 3, ctx["depth"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewFromCore(core)
	logger.SetLevel(LevelWarn)
	assert.Equal(t, LevelWarn, logger.GetLevel())

	logger.Log(LevelInfo, "dropped")
	logger.Log(LevelError, "kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}

func TestWithContextAddsSession(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewFromCore(core)

	ctx := ContextWithSession(context.Background(), "s-1")
	logger.WithContext(ctx).Warn("expiring")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "s-1", logs.All()[0].ContextMap()["session"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelSilent, ParseLevel("off"))
	assert.Equal(t, LevelInfo, ParseLevel("whatever"))
}

func TestNopDiscards(t *testing.T) {
	logger := Nop()
	logger.Error("nothing")
	assert.NoError(t, logger.Sync())
}
