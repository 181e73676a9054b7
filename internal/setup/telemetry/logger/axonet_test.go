package logger

import (
	"testing"

	axonetLogger "github.com/jaxron/axonet/pkg/client/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.WithFields(axonetLogger.String("url", "https://users.roblox.com"), axonetLogger.Int("status", 429)).
		Warn("Retrying request")
	l.Debugf("attempt %d", 2)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "Retrying request", entries[0].Message)
	assert.Equal(t, "https://users.roblox.com", entries[0].ContextMap()["url"])
	assert.EqualValues(t, 429, entries[0].ContextMap()["status"])

	assert.Equal(t, "attempt 2", entries[1].Message)
	assert.Empty(t, entries[1].Context)
}
