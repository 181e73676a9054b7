package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/database/types/enum"
	"go.uber.org/zap"
)

var (
	// ErrMessageNotFound means the referenced message no longer exists.
	ErrMessageNotFound = errors.New("message not found")
	// ErrMissingAccess means the bot may not read or write the channel.
	ErrMissingAccess = errors.New("missing access to channel")
)

// MessageClient is the part of the chat platform the dispatcher needs.
type MessageClient interface {
	SendMessage(ctx context.Context, channelID snowflake.ID, message discord.MessageCreate) (snowflake.ID, error)
	EditMessage(ctx context.Context, channelID, messageID snowflake.ID, message discord.MessageUpdate) error
	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error
}

// Decision is everything needed to notify a guild about one player.
type Decision struct {
	GuildID           snowflake.ID
	UserID            uint64
	PreviousMessageID *snowflake.ID
	Status            enum.PlayerStatus
	Display           Display
	ChannelID         *snowflake.ID
	PingRoleID        *snowflake.ID
}

// NewDecision fills a decision from a status reading and guild settings.
// setting may be nil when the guild never configured anything.
func NewDecision(
	player *types.TrackedPlayer, info *types.PlayerStatusInfo, status enum.PlayerStatus, setting *types.GuildSetting,
) Decision {
	decision := Decision{
		GuildID:           player.GuildID,
		UserID:            player.UserID,
		PreviousMessageID: player.MessageID,
		Status:            status,
		Display: Display{
			DisplayName: player.DisplayName,
			Username:    player.Username,
		},
	}

	if info != nil {
		if info.DisplayName != "" {
			decision.Display.DisplayName = info.DisplayName
		}

		if info.Username != "" {
			decision.Display.Username = info.Username
		}

		decision.Display.AvatarURL = info.AvatarURL

		if info.Presence != nil {
			decision.Display.Location = info.Presence.LastLocation
			decision.Display.PlaceID = info.Presence.PlaceID
		}
	}

	if setting != nil {
		decision.ChannelID = setting.ChannelID
		decision.PingRoleID = setting.PingRoleID
	}

	return decision
}

// Dispatcher turns decisions into sent or edited messages.
type Dispatcher struct {
	client MessageClient
	logger *zap.Logger
	now    func() time.Time
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(client MessageClient, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: logger.Named("dispatcher"),
		now:    time.Now,
	}
}

// Dispatch delivers a decision and returns the message that now represents
// the player, or nil when the guild has no destination channel.
// An existing message is edited in place. If the edit fails for any reason
// a fresh message is sent instead.
func (d *Dispatcher) Dispatch(ctx context.Context, decision Decision) (*snowflake.ID, error) {
	if decision.ChannelID == nil {
		return nil, nil
	}

	channelID := *decision.ChannelID
	builder := NewMessageBuilder(decision, d.now())

	if decision.PreviousMessageID != nil {
		messageID := *decision.PreviousMessageID

		err := d.client.EditMessage(ctx, channelID, messageID, builder.BuildUpdate())
		if err == nil {
			return &messageID, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		fields := []zap.Field{
			zap.Uint64("guildID", uint64(decision.GuildID)),
			zap.Uint64("messageID", uint64(messageID)),
			zap.Error(err),
		}

		switch {
		case errors.Is(err, ErrMessageNotFound):
			d.logger.Debug("Previous message is gone, sending a new one", fields...)
		case errors.Is(err, ErrMissingAccess):
			d.logger.Warn("Cannot edit previous message, sending a new one", fields...)
		default:
			d.logger.Warn("Failed to edit previous message, sending a new one", fields...)
		}
	}

	messageID, err := d.client.SendMessage(ctx, channelID, builder.BuildCreate())
	if err != nil {
		return nil, fmt.Errorf("failed to send notification: %w", err)
	}

	d.logger.Debug("Sent notification",
		zap.Uint64("guildID", uint64(decision.GuildID)),
		zap.Uint64("userID", decision.UserID),
		zap.String("status", decision.Status.String()),
		zap.Uint64("messageID", uint64(messageID)))

	return &messageID, nil
}

// Delete removes a previously sent message. A message that is already gone
// is not an error.
func (d *Dispatcher) Delete(ctx context.Context, channelID, messageID snowflake.ID) error {
	err := d.client.DeleteMessage(ctx, channelID, messageID)
	if err != nil && !errors.Is(err, ErrMessageNotFound) {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}
