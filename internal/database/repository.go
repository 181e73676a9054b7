package database

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database/models"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	// ErrPlayerNotFound is returned when a tracked player row does not exist.
	ErrPlayerNotFound = types.ErrPlayerNotFound
	// ErrSettingNotFound is returned when a guild has never been configured.
	ErrSettingNotFound = types.ErrSettingNotFound
)

// Store is everything the tracker and the commands need from storage.
type Store interface {
	UpsertTrackedPlayer(ctx context.Context, player *types.TrackedPlayer) error
	ListTrackedPlayers(ctx context.Context, guildID *snowflake.ID) ([]*types.TrackedPlayer, error)
	GetTrackedPlayer(ctx context.Context, guildID snowflake.ID, userID uint64) (*types.TrackedPlayer, error)
	RemoveTrackedPlayer(ctx context.Context, guildID snowflake.ID, userID uint64) (*types.TrackedPlayer, error)
	UpdatePlayerState(ctx context.Context, guildID snowflake.ID, userID uint64, state types.PlayerState) error
	GetGuildSetting(ctx context.Context, guildID snowflake.ID) (*types.GuildSetting, error)
	UpsertGuildSetting(ctx context.Context, setting *types.GuildSetting, columns ...string) error
}

// Repository provides access to all database models.
type Repository struct {
	tracking *models.TrackingModel
	setting  *models.SettingModel
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		tracking: models.NewTracking(db, logger),
		setting:  models.NewSetting(db, logger),
	}
}

func (r *Repository) UpsertTrackedPlayer(ctx context.Context, player *types.TrackedPlayer) error {
	return r.tracking.UpsertTrackedPlayer(ctx, player)
}

func (r *Repository) ListTrackedPlayers(ctx context.Context, guildID *snowflake.ID) ([]*types.TrackedPlayer, error) {
	return r.tracking.ListTrackedPlayers(ctx, guildID)
}

func (r *Repository) GetTrackedPlayer(
	ctx context.Context, guildID snowflake.ID, userID uint64,
) (*types.TrackedPlayer, error) {
	return r.tracking.GetTrackedPlayer(ctx, guildID, userID)
}

func (r *Repository) RemoveTrackedPlayer(
	ctx context.Context, guildID snowflake.ID, userID uint64,
) (*types.TrackedPlayer, error) {
	return r.tracking.RemoveTrackedPlayer(ctx, guildID, userID)
}

func (r *Repository) UpdatePlayerState(
	ctx context.Context, guildID snowflake.ID, userID uint64, state types.PlayerState,
) error {
	return r.tracking.UpdatePlayerState(ctx, guildID, userID, state)
}

func (r *Repository) GetGuildSetting(ctx context.Context, guildID snowflake.ID) (*types.GuildSetting, error) {
	return r.setting.GetGuildSetting(ctx, guildID)
}

func (r *Repository) UpsertGuildSetting(
	ctx context.Context, setting *types.GuildSetting, columns ...string,
) error {
	return r.setting.UpsertGuildSetting(ctx, setting, columns...)
}
