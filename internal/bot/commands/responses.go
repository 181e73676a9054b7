package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/roblox/api"
	"github.com/robalyx/presencewatch/internal/roblox/fetcher"
	"github.com/robalyx/presencewatch/internal/tracker/core"
	"github.com/robalyx/presencewatch/pkg/utils"
)

const (
	// EmbedColor is used for every command reply.
	EmbedColor = 0xFFFFFF

	maxSelectOptions = 25
	maxOptionLength  = 100
	maxDescription   = 4096
)

// ErrorText turns a command error into a message for the operator.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, utils.ErrInvalidUserID):
		return "Invalid Roblox ID. Please provide a valid Profile ID (numbers only) or profile link."
	case errors.Is(err, fetcher.ErrUserNotFound):
		return "Could not find that Roblox user."
	case errors.Is(err, api.ErrUpstreamUnavailable):
		return "Roblox is not responding right now. Please try again later."
	case errors.Is(err, database.ErrPlayerNotFound):
		return "Player not found in tracking list."
	case errors.Is(err, ErrStatusUnavailable):
		return "Tracker status reporting is not enabled on this bot."
	default:
		return "Something went wrong. Please try again later."
	}
}

// ErrorResponse shows an error.
func ErrorResponse(text string) discord.MessageUpdate {
	return textResponse("❌ " + text)
}

// AddedResponse confirms a newly tracked player.
func AddedResponse(player *types.TrackedPlayer) discord.MessageUpdate {
	return textResponse(fmt.Sprintf("✅ Now tracking **%s** (@%s)\nProfile ID: `%d`",
		player.DisplayName, player.Username, player.UserID))
}

// RemovedResponse confirms a removal.
func RemovedResponse(player *types.TrackedPlayer) discord.MessageUpdate {
	return textResponse(fmt.Sprintf("✅ Removed **%s** (@%s) from tracking.", player.DisplayName, player.Username))
}

// ChannelSetResponse confirms the notification channel.
func ChannelSetResponse(channelID snowflake.ID) discord.MessageUpdate {
	return textResponse(fmt.Sprintf("✅ Notifications will be sent to <#%s>", channelID))
}

// RoleSetResponse confirms the ping role. The role is shown but not pinged.
func RoleSetResponse(roleID snowflake.ID) discord.MessageUpdate {
	return textResponse(fmt.Sprintf("✅ <@&%s> will be pinged when a tracked player is online", roleID))
}

// ListResponse shows the tracked players and a menu to remove one.
// Discord caps select menus at 25 options, so only the first 25 players
// can be removed from the menu.
func ListResponse(players []*types.TrackedPlayer) discord.MessageUpdate {
	if len(players) == 0 {
		return textResponse("📋 No players are currently being tracked.\n" +
			"Use `/add-player <roblox_id>` to start tracking players.")
	}

	var sb strings.Builder
	for _, p := range players {
		line := fmt.Sprintf("• **%s** (@%s) - ID: `%d`\n", p.DisplayName, p.Username, p.UserID)
		if sb.Len()+len(line) > maxDescription-200 {
			sb.WriteString(fmt.Sprintf("…and %d more\n", len(players)-strings.Count(sb.String(), "\n")))
			break
		}

		sb.WriteString(line)
	}

	sb.WriteString("\n**Select a player below to remove them from tracking:**")

	embed := discord.NewEmbedBuilder().
		SetTitle("📋 Tracked Players").
		SetDescription(sb.String()).
		SetColor(EmbedColor)

	return discord.NewMessageUpdateBuilder().
		SetEmbeds(embed.Build()).
		SetAllowedMentions(noMentions()).
		ClearContainerComponents().
		AddActionRow(discord.NewStringSelectMenu(RemoveSelectCustomID,
			"Select a player to remove from tracking", selectOptions(players)...)).
		Build()
}

func selectOptions(players []*types.TrackedPlayer) []discord.StringSelectMenuOption {
	count := min(len(players), maxSelectOptions)
	options := make([]discord.StringSelectMenuOption, 0, count)

	for _, p := range players[:count] {
		label := truncate(fmt.Sprintf("%s (@%s)", p.DisplayName, p.Username), maxOptionLength)
		options = append(options,
			discord.NewStringSelectMenuOption(label, strconv.FormatUint(p.UserID, 10)).
				WithDescription(fmt.Sprintf("ID: %d - Click to remove", p.UserID)))
	}

	return options
}

// StatusResponse shows the tracker heartbeats and the guild setup.
func StatusResponse(
	statuses []core.Status, setting *types.GuildSetting, tracked int, now time.Time,
) discord.MessageUpdate {
	embed := discord.NewEmbedBuilder().
		SetTitle("Tracker Status").
		SetColor(EmbedColor).
		SetTimestamp(now)

	if len(statuses) == 0 {
		embed.AddField("Workers", "No tracker heartbeat found", false)
	}

	for _, s := range statuses {
		state := "🟢 Healthy"
		switch {
		case s.Stale(now):
			state = "⚫ Offline"
		case !s.IsHealthy:
			state = "🟠 Unhealthy"
		}

		value := fmt.Sprintf("%s\nTask: %s (%d%%)\nPlayers: %d\nLast seen: <t:%d:R>",
			state, valueOr(s.CurrentTask, "Idle"), s.Progress, s.Tracked, s.LastSeen.Unix())
		embed.AddField(fmt.Sprintf("%s `%s`", s.WorkerType, shortID(s.WorkerID)), value, true)
	}

	channel := "Not set"
	role := "Not set"

	if setting.HasDestination() {
		channel = fmt.Sprintf("<#%s>", *setting.ChannelID)
	}

	if setting != nil && setting.PingRoleID != nil {
		role = fmt.Sprintf("<@&%s>", *setting.PingRoleID)
	}

	embed.AddField("Channel", channel, true)
	embed.AddField("Ping Role", role, true)
	embed.AddField("Tracked Players", strconv.Itoa(tracked), true)

	return discord.NewMessageUpdateBuilder().
		SetEmbeds(embed.Build()).
		SetAllowedMentions(noMentions()).
		Build()
}

func textResponse(description string) discord.MessageUpdate {
	embed := discord.NewEmbedBuilder().
		SetDescription(description).
		SetColor(EmbedColor)

	return discord.NewMessageUpdateBuilder().
		SetEmbeds(embed.Build()).
		SetAllowedMentions(noMentions()).
		ClearContainerComponents().
		Build()
}

func noMentions() *discord.AllowedMentions {
	return &discord.AllowedMentions{Parse: []discord.AllowedMentionType{}}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
