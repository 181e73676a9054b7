package commands_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/cmd/db/commands"
	"github.com/robalyx/presencewatch/internal/database"
	"github.com/robalyx/presencewatch/internal/database/migrations"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/database/types/enum"
	"github.com/robalyx/presencewatch/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zaptest"
)

func newApp(t *testing.T) (*cli.Command, *commands.CLIDependencies) {
	t.Helper()

	logger := zaptest.NewLogger(t)

	db, err := database.NewConnection(t.Context(), &config.Storage{
		Driver: database.DriverSQLite,
		SQLite: config.SQLite{Path: filepath.Join(t.TempDir(), "tool.db")},
	}, logger, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	deps := &commands.CLIDependencies{
		DB:       db,
		Migrator: migrate.NewMigrator(db.DB(), migrations.Migrations),
		Logger:   logger,
	}

	return &cli.Command{
		Name:     "db",
		Commands: append(commands.MigrationCommands(deps), commands.TrackingCommands(deps)...),
	}, deps
}

func TestMigrateAndRollback(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	app, deps := newApp(t)

	require.NoError(t, app.Run(ctx, []string{"db", "status"}))
	require.NoError(t, app.Run(ctx, []string{"db", "migrate"}))

	ms, err := deps.Migrator.MigrationsWithStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, ms.Unapplied())

	// Running again is a no-op.
	require.NoError(t, app.Run(ctx, []string{"db", "migrate"}))

	err = app.Run(ctx, []string{"db", "rollback"})
	require.ErrorIs(t, err, commands.ErrRollbackNotConfirmed)

	require.NoError(t, app.Run(ctx, []string{"db", "rollback", "--yes"}))

	ms, err = deps.Migrator.MigrationsWithStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, ms.Applied())
}

func TestTrackingCommands(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	app, deps := newApp(t)
	require.NoError(t, app.Run(ctx, []string{"db", "migrate"}))

	store := deps.DB.Model()
	guildID := snowflake.ID(1001)
	channelID := snowflake.ID(2002)

	require.NoError(t, store.UpsertTrackedPlayer(ctx, &types.TrackedPlayer{
		GuildID:     guildID,
		UserID:      156,
		DisplayName: "Builderman",
		Username:    "builderman",
		AddedAt:     time.Now(),
		LastStatus:  enum.PlayerStatusOffline,
		UpdatedAt:   time.Now(),
	}))
	require.NoError(t, store.UpsertGuildSetting(ctx, &types.GuildSetting{GuildID: guildID, ChannelID: &channelID}))

	require.NoError(t, app.Run(ctx, []string{"db", "players"}))
	require.NoError(t, app.Run(ctx, []string{"db", "players", "1001"}))
	require.NoError(t, app.Run(ctx, []string{"db", "settings", "1001"}))

	require.ErrorIs(t, app.Run(ctx, []string{"db", "players", "abc"}), commands.ErrInvalidGuildID)
	require.ErrorIs(t, app.Run(ctx, []string{"db", "settings"}), commands.ErrGuildIDRequired)
	require.ErrorIs(t, app.Run(ctx, []string{"db", "settings", "4242"}), database.ErrSettingNotFound)
}
