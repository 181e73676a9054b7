package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/presencewatch/internal/setup/config"
	"github.com/robalyx/presencewatch/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggersCreatesSession(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manager := telemetry.NewManager(dir,
		&config.Debug{LogLevel: "info", MaxLogsToKeep: 5, MaxLogLines: 100},
		&config.Loggable{})

	logger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)

	logger.Info("hello")
	dbLogger.Info("query")

	session := manager.GetCurrentSessionDir()
	assert.Equal(t, dir, filepath.Dir(session))
	assert.FileExists(t, filepath.Join(session, "main.log"))
	assert.FileExists(t, filepath.Join(session, "database.log"))
	assert.NotEmpty(t, manager.GetInstanceID())

	manager.GetWorkerLogger("tracker_worker").Info("cycle")
	assert.FileExists(t, filepath.Join(session, "tracker_worker.log"))
}

func TestGetLoggersPrunesOldSessions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"old-a", "old-b", "old-c"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}

	manager := telemetry.NewManager(dir,
		&config.Debug{LogLevel: "debug", MaxLogsToKeep: 2, MaxLogLines: 100},
		&config.Loggable{})

	_, _, err := manager.GetLoggers()
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestGetLoggersRejectsBadLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(t.TempDir(),
		&config.Debug{LogLevel: "loud", MaxLogsToKeep: 2, MaxLogLines: 100},
		&config.Loggable{})

	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}
