package bot

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/bot/commands"
	"go.uber.org/zap"
)

// commandTimeout bounds a single command. Roblox lookups retry, so this is
// well above the upstream request timeout.
const commandTimeout = 2 * time.Minute

// handleApplicationCommandInteraction defers the reply and runs the command
// in its own goroutine so slow Roblox lookups never block the gateway.
func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	go func() {
		data := event.SlashCommandInteractionData()
		name := data.CommandName()

		if err := event.DeferCreateMessage(commands.Ephemeral(name)); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in application command interaction handler",
					zap.String("command", name),
					zap.Any("panic", r))
				b.respond(event, commands.ErrorResponse("Internal error. Please report this to an administrator."))
			}

			b.logger.Debug("Application command interaction handled",
				zap.String("command", name),
				zap.Duration("duration", time.Since(start)))
		}()

		guildID := event.GuildID()
		if guildID == nil {
			b.respond(event, commands.ErrorResponse("This command can only be used in a server."))
			return
		}

		if requiresManageGuild(name) && !canManageGuild(event.Member()) {
			b.respond(event, commands.ErrorResponse("You need the Manage Server permission to do that."))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		b.respond(event, b.runCommand(ctx, *guildID, data))
	}()
}

// runCommand executes a slash command and renders its reply.
func (b *Bot) runCommand(
	ctx context.Context, guildID snowflake.ID, data discord.SlashCommandInteractionData,
) discord.MessageUpdate {
	switch data.CommandName() {
	case commands.AddPlayerCommand:
		player, err := b.service.AddPlayer(ctx, guildID, data.String(commands.RobloxIDOption))
		if err != nil {
			return b.failure(data.CommandName(), err)
		}

		return commands.AddedResponse(player)

	case commands.ListTrackedCommand:
		players, err := b.service.ListPlayers(ctx, guildID)
		if err != nil {
			return b.failure(data.CommandName(), err)
		}

		return commands.ListResponse(players)

	case commands.RemovePlayerCommand:
		removed, err := b.service.RemovePlayer(ctx, guildID, data.String(commands.RobloxIDOption))
		if err != nil {
			return b.failure(data.CommandName(), err)
		}

		return commands.RemovedResponse(removed)

	case commands.SetChannelCommand:
		channelID := data.Snowflake(commands.ChannelOption)
		if err := b.service.SetChannel(ctx, guildID, channelID); err != nil {
			return b.failure(data.CommandName(), err)
		}

		return commands.ChannelSetResponse(channelID)

	case commands.SetRoleCommand:
		roleID := data.Snowflake(commands.RoleOption)
		if err := b.service.SetRole(ctx, guildID, roleID); err != nil {
			return b.failure(data.CommandName(), err)
		}

		return commands.RoleSetResponse(roleID)

	case commands.StatusCommand:
		return b.statusResponse(ctx, guildID, data.CommandName())

	default:
		return commands.ErrorResponse("This command is not available.")
	}
}

func (b *Bot) statusResponse(ctx context.Context, guildID snowflake.ID, name string) discord.MessageUpdate {
	statuses, err := b.service.WorkerStatuses(ctx)
	if err != nil && !errors.Is(err, commands.ErrStatusUnavailable) {
		return b.failure(name, err)
	}

	setting, err := b.service.Setting(ctx, guildID)
	if err != nil {
		return b.failure(name, err)
	}

	players, err := b.service.ListPlayers(ctx, guildID)
	if err != nil {
		return b.failure(name, err)
	}

	return commands.StatusResponse(statuses, setting, len(players), time.Now())
}

// handleComponentInteraction handles the tracked players select menu.
func (b *Bot) handleComponentInteraction(event *events.ComponentInteractionCreate) {
	if event.Data.CustomID() != commands.RemoveSelectCustomID {
		return
	}

	go func() {
		data, ok := event.Data.(discord.StringSelectMenuInteractionData)
		if !ok || len(data.Values) == 0 {
			return
		}

		if err := event.DeferUpdateMessage(); err != nil {
			b.logger.Error("Failed to defer update message", zap.Error(err))
			return
		}

		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in component interaction handler", zap.Any("panic", r))
				b.respond(event, commands.ErrorResponse("Internal error. Please report this to an administrator."))
			}
		}()

		guildID := event.GuildID()
		if guildID == nil {
			return
		}

		if !canManageGuild(event.Member()) {
			b.respond(event, commands.ErrorResponse("You need the Manage Server permission to do that."))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		removed, err := b.service.RemoveSelected(ctx, *guildID, data.Values[0])
		if err != nil {
			b.respond(event, b.failure(commands.ListTrackedCommand, err))
			return
		}

		b.respond(event, commands.RemovedResponse(removed))
	}()
}

// interactionEvent is the part of an interaction needed to edit its reply.
type interactionEvent interface {
	ApplicationID() snowflake.ID
	Token() string
}

// respond replaces the deferred interaction response.
func (b *Bot) respond(event interactionEvent, update discord.MessageUpdate) {
	_, err := b.client.Rest().UpdateInteractionResponse(event.ApplicationID(), event.Token(), update)
	if err != nil {
		b.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

// failure logs a command error and renders it for the operator.
func (b *Bot) failure(command string, err error) discord.MessageUpdate {
	b.logger.Warn("Command failed", zap.String("command", command), zap.Error(err))
	return commands.ErrorResponse(commands.ErrorText(err))
}

func requiresManageGuild(name string) bool {
	return name != commands.ListTrackedCommand && name != commands.StatusCommand
}

func canManageGuild(member *discord.ResolvedMember) bool {
	if member == nil {
		return false
	}

	return member.Permissions.Has(discord.PermissionManageGuild) ||
		member.Permissions.Has(discord.PermissionAdministrator)
}
