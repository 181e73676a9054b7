package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database/dbretry"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SettingModel handles database operations for guild settings.
type SettingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSetting creates a SettingModel.
func NewSetting(db *bun.DB, logger *zap.Logger) *SettingModel {
	return &SettingModel{
		db:     db,
		logger: logger.Named("db_setting"),
	}
}

// GetGuildSetting retrieves the settings of a guild.
func (r *SettingModel) GetGuildSetting(ctx context.Context, guildID snowflake.ID) (*types.GuildSetting, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.GuildSetting, error) {
		setting := &types.GuildSetting{GuildID: guildID}

		err := r.db.NewSelect().Model(setting).WherePK().Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrSettingNotFound
			}

			return nil, fmt.Errorf("failed to get guild setting: %w (guildID=%d)", err, guildID)
		}

		return setting, nil
	})
}

// UpsertGuildSetting creates or updates guild settings. When columns are
// given only those columns are overwritten on conflict, so setting the
// channel does not reset the role and vice versa.
func (r *SettingModel) UpsertGuildSetting(
	ctx context.Context, setting *types.GuildSetting, columns ...string,
) error {
	setting.UpdatedAt = time.Now()

	if len(columns) == 0 {
		columns = []string{"channel_id", "ping_role_id"}
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := r.db.NewInsert().
			Model(setting).
			On("CONFLICT (guild_id) DO UPDATE").
			Set("updated_at = EXCLUDED.updated_at")

		for _, column := range columns {
			query = query.Set("? = EXCLUDED.?", bun.Ident(column), bun.Ident(column))
		}

		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("failed to upsert guild setting: %w (guildID=%d)", err, setting.GuildID)
		}

		r.logger.Debug("Saved guild setting",
			zap.Uint64("guildID", uint64(setting.GuildID)),
			zap.Strings("columns", columns))

		return nil
	})
}
