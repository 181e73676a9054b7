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

// TrackingModel handles database operations for tracked players.
type TrackingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewTracking creates a TrackingModel.
func NewTracking(db *bun.DB, logger *zap.Logger) *TrackingModel {
	return &TrackingModel{
		db:     db,
		logger: logger.Named("db_tracking"),
	}
}

// UpsertTrackedPlayer adds a player to a guild's watch list. Re-adding an
// existing player only refreshes its names, leaving status and message alone.
func (r *TrackingModel) UpsertTrackedPlayer(ctx context.Context, player *types.TrackedPlayer) error {
	now := time.Now()
	if player.AddedAt.IsZero() {
		player.AddedAt = now
	}

	player.UpdatedAt = now

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(player).
			On("CONFLICT (guild_id, user_id) DO UPDATE").
			Set("display_name = EXCLUDED.display_name").
			Set("username = EXCLUDED.username").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert tracked player: %w (guildID=%d, userID=%d)",
				err, player.GuildID, player.UserID)
		}

		r.logger.Debug("Upserted tracked player",
			zap.Uint64("guildID", uint64(player.GuildID)),
			zap.Uint64("userID", player.UserID))

		return nil
	})
}

// ListTrackedPlayers returns the tracked players of one guild, or of every
// guild when guildID is nil.
func (r *TrackingModel) ListTrackedPlayers(
	ctx context.Context, guildID *snowflake.ID,
) ([]*types.TrackedPlayer, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.TrackedPlayer, error) {
		var players []*types.TrackedPlayer

		query := r.db.NewSelect().
			Model(&players).
			Order("guild_id", "added_at", "user_id")

		if guildID != nil {
			query = query.Where("guild_id = ?", *guildID)
		}

		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list tracked players: %w", err)
		}

		return players, nil
	})
}

// GetTrackedPlayer fetches a single tracked player.
func (r *TrackingModel) GetTrackedPlayer(
	ctx context.Context, guildID snowflake.ID, userID uint64,
) (*types.TrackedPlayer, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.TrackedPlayer, error) {
		player := &types.TrackedPlayer{GuildID: guildID, UserID: userID}

		err := r.db.NewSelect().Model(player).WherePK().Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrPlayerNotFound
			}

			return nil, fmt.Errorf("failed to get tracked player: %w (guildID=%d, userID=%d)",
				err, guildID, userID)
		}

		return player, nil
	})
}

// RemoveTrackedPlayer deletes a tracked player and returns the removed row.
func (r *TrackingModel) RemoveTrackedPlayer(
	ctx context.Context, guildID snowflake.ID, userID uint64,
) (*types.TrackedPlayer, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.TrackedPlayer, error) {
		var removed *types.TrackedPlayer

		err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			player := &types.TrackedPlayer{GuildID: guildID, UserID: userID}
			if err := tx.NewSelect().Model(player).WherePK().Scan(ctx); err != nil {
				return err
			}

			if _, err := tx.NewDelete().Model(player).WherePK().Exec(ctx); err != nil {
				return err
			}

			removed = player

			return nil
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrPlayerNotFound
			}

			return nil, fmt.Errorf("failed to remove tracked player: %w (guildID=%d, userID=%d)",
				err, guildID, userID)
		}

		r.logger.Debug("Removed tracked player",
			zap.Uint64("guildID", uint64(guildID)),
			zap.Uint64("userID", userID))

		return removed, nil
	})
}

// UpdatePlayerState writes the tracker's decision for one player. Only the
// state columns are touched so concurrent command edits are not overwritten.
func (r *TrackingModel) UpdatePlayerState(
	ctx context.Context, guildID snowflake.ID, userID uint64, state types.PlayerState,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := r.db.NewUpdate().
			Model((*types.TrackedPlayer)(nil)).
			Set("last_status = ?", state.Status).
			Set("message_id = ?", state.MessageID).
			Set("updated_at = ?", time.Now()).
			Where("guild_id = ?", guildID).
			Where("user_id = ?", userID)

		if state.DisplayName != "" {
			query = query.Set("display_name = ?", state.DisplayName)
		}

		if state.Username != "" {
			query = query.Set("username = ?", state.Username)
		}

		result, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update player state: %w (guildID=%d, userID=%d)",
				err, guildID, userID)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			return types.ErrPlayerNotFound
		}

		return nil
	})
}
