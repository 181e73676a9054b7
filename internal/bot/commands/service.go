// Package commands implements the slash commands guild operators use to
// manage tracking. Discord plumbing lives in package bot; everything here
// works on plain values so it can be tested without a gateway.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/database/types/enum"
	"github.com/robalyx/presencewatch/internal/tracker/core"
	"github.com/robalyx/presencewatch/pkg/utils"
	"go.uber.org/zap"
)

// ErrStatusUnavailable is returned by WorkerStatuses when Redis is disabled.
var ErrStatusUnavailable = errors.New("worker status reporting is disabled")

// ProfileSource looks up Roblox profiles.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID uint64) (*types.Profile, error)
}

// MessageDeleter removes a notification message.
type MessageDeleter interface {
	Delete(ctx context.Context, channelID, messageID snowflake.ID) error
}

// StatusLister lists tracker heartbeats.
type StatusLister interface {
	GetAllStatuses(ctx context.Context) ([]core.Status, error)
}

// Service carries out operator commands against the tracking store.
type Service struct {
	store    database.Store
	profiles ProfileSource
	deleter  MessageDeleter
	statuses StatusLister
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a command service. statuses may be nil.
func NewService(
	store database.Store, profiles ProfileSource, deleter MessageDeleter, statuses StatusLister, logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		deleter:  deleter,
		statuses: statuses,
		logger:   logger.Named("commands"),
		now:      time.Now,
	}
}

// AddPlayer starts tracking a Roblox user in a guild. input is an ID or a
// profile link. Re-adding a tracked player only refreshes its names.
func (s *Service) AddPlayer(ctx context.Context, guildID snowflake.ID, input string) (*types.TrackedPlayer, error) {
	userID, err := utils.ParseUserID(input)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}

	now := s.now()
	player := &types.TrackedPlayer{
		GuildID:     guildID,
		UserID:      profile.ID,
		DisplayName: profile.DisplayName,
		Username:    profile.Name,
		AddedAt:     now,
		LastStatus:  enum.PlayerStatusOffline,
		UpdatedAt:   now,
	}

	if err := s.store.UpsertTrackedPlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("Player added",
		zap.Uint64("guildID", uint64(guildID)),
		zap.Uint64("userID", player.UserID))

	return player, nil
}

// ListPlayers returns the players tracked in a guild.
func (s *Service) ListPlayers(ctx context.Context, guildID snowflake.ID) ([]*types.TrackedPlayer, error) {
	return s.store.ListTrackedPlayers(ctx, &guildID)
}

// RemovePlayer stops tracking a player given an ID or profile link.
func (s *Service) RemovePlayer(ctx context.Context, guildID snowflake.ID, input string) (*types.TrackedPlayer, error) {
	userID, err := utils.ParseUserID(input)
	if err != nil {
		return nil, err
	}

	return s.RemoveSelected(ctx, guildID, strconv.FormatUint(userID, 10))
}

// RemoveSelected removes the player picked from the tracked players menu.
func (s *Service) RemoveSelected(ctx context.Context, guildID snowflake.ID, value string) (*types.TrackedPlayer, error) {
	removed, err := RemoveSelection(ctx, s.store, s.deleter, guildID, value, s.logger)
	if err == nil {
		s.logger.Info("Player removed",
			zap.Uint64("guildID", uint64(guildID)),
			zap.Uint64("userID", removed.UserID))
	}

	return removed, err
}

// RemoveSelection handles a choice from the tracked players menu. It removes
// the player and then tries to delete its last notification. Failing to
// delete the message does not fail the removal.
func RemoveSelection(
	ctx context.Context, store database.Store, deleter MessageDeleter, guildID snowflake.ID, value string,
	logger *zap.Logger,
) (*types.TrackedPlayer, error) {
	userID, err := strconv.ParseUint(value, 10, 64)
	if err != nil || userID == 0 {
		return nil, utils.ErrInvalidUserID
	}

	removed, err := store.RemoveTrackedPlayer(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}

	if removed.MessageID == nil || deleter == nil {
		return removed, nil
	}

	setting, err := store.GetGuildSetting(ctx, guildID)
	if err != nil || !setting.HasDestination() {
		return removed, nil
	}

	if err := deleter.Delete(ctx, *setting.ChannelID, *removed.MessageID); err != nil {
		logger.Warn("Failed to delete notification message",
			zap.Uint64("guildID", uint64(guildID)),
			zap.Uint64("userID", removed.UserID),
			zap.Uint64("messageID", uint64(*removed.MessageID)),
			zap.Error(err))
	}

	return removed, nil
}

// SetChannel sets where a guild's notifications go. The ping role is left
// untouched.
func (s *Service) SetChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	return s.store.UpsertGuildSetting(ctx, &types.GuildSetting{
		GuildID:   guildID,
		ChannelID: &channelID,
		UpdatedAt: s.now(),
	}, "channel_id")
}

// SetRole sets which role a guild's notifications mention. The channel is
// left untouched.
func (s *Service) SetRole(ctx context.Context, guildID, roleID snowflake.ID) error {
	return s.store.UpsertGuildSetting(ctx, &types.GuildSetting{
		GuildID:    guildID,
		PingRoleID: &roleID,
		UpdatedAt:  s.now(),
	}, "ping_role_id")
}

// Setting returns a guild's settings, or nil when none were saved.
func (s *Service) Setting(ctx context.Context, guildID snowflake.ID) (*types.GuildSetting, error) {
	setting, err := s.store.GetGuildSetting(ctx, guildID)
	if errors.Is(err, database.ErrSettingNotFound) {
		return nil, nil
	}

	return setting, err
}

// WorkerStatuses returns the tracker heartbeats.
func (s *Service) WorkerStatuses(ctx context.Context) ([]core.Status, error) {
	if s.statuses == nil {
		return nil, ErrStatusUnavailable
	}

	return s.statuses.GetAllStatuses(ctx)
}
