package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database/types/enum"
	"github.com/robalyx/presencewatch/pkg/utils"
)

const (
	// EmbedColor is the notification embed color.
	EmbedColor = 0xFFFFFF

	// JoinButtonLabel is the label of the link button that opens the game.
	JoinButtonLabel = "Join Server"

	profileSeparator = "━━━━━━ • Profile • ━━━━━━━"
)

// Display holds what a notification shows about a player.
type Display struct {
	DisplayName string
	Username    string
	AvatarURL   string
	Location    string
	PlaceID     *uint64
}

// MessageBuilder renders a decision into Discord message payloads.
type MessageBuilder struct {
	decision Decision
	now      time.Time
}

// NewMessageBuilder creates a builder for one decision.
func NewMessageBuilder(decision Decision, now time.Time) *MessageBuilder {
	return &MessageBuilder{
		decision: decision,
		now:      now,
	}
}

// BuildCreate returns the payload for sending a fresh message.
func (b *MessageBuilder) BuildCreate() discord.MessageCreate {
	builder := discord.NewMessageCreateBuilder().
		SetEmbeds(b.buildEmbed()).
		SetAllowedMentions(b.allowedMentions())

	if content := b.content(); content != "" {
		builder.SetContent(content)
	}

	if button := b.joinButton(); button != nil {
		builder.AddActionRow(*button)
	}

	return builder.Build()
}

// BuildUpdate returns the payload for editing an existing message.
// Components are always reset so an offline message loses its join button.
func (b *MessageBuilder) BuildUpdate() discord.MessageUpdate {
	builder := discord.NewMessageUpdateBuilder().
		SetContent(b.content()).
		SetEmbeds(b.buildEmbed()).
		SetAllowedMentions(b.allowedMentions()).
		ClearContainerComponents()

	if button := b.joinButton(); button != nil {
		builder.AddActionRow(*button)
	}

	return builder.Build()
}

// Description returns the embed body text.
func (b *MessageBuilder) Description() string {
	d := b.decision

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**[%s](%s)**\n", displayName(d.Display), utils.ProfileURL(d.UserID)))
	sb.WriteString(profileSeparator)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("**Status: %s**", statusText(d.Status)))

	if d.Status == enum.PlayerStatusOnline && d.Display.Location != "" {
		sb.WriteString(fmt.Sprintf("\nPlaying: %s", d.Display.Location))
	}

	return sb.String()
}

func (b *MessageBuilder) buildEmbed() discord.Embed {
	embed := discord.NewEmbedBuilder().
		SetDescription(b.Description()).
		SetColor(EmbedColor).
		SetTimestamp(b.now)

	if b.decision.Display.AvatarURL != "" {
		embed.SetImage(b.decision.Display.AvatarURL)
	}

	if b.decision.Display.Username != "" {
		embed.SetFooter("@"+b.decision.Display.Username, "")
	}

	return embed.Build()
}

// content is the role mention, only used while the player is online.
func (b *MessageBuilder) content() string {
	if b.decision.PingRoleID == nil || b.decision.Status != enum.PlayerStatusOnline {
		return ""
	}

	return fmt.Sprintf("<@&%s>", *b.decision.PingRoleID)
}

func (b *MessageBuilder) allowedMentions() *discord.AllowedMentions {
	mentions := &discord.AllowedMentions{Parse: []discord.AllowedMentionType{}}
	if b.decision.PingRoleID != nil {
		mentions.Roles = []snowflake.ID{*b.decision.PingRoleID}
	}

	return mentions
}

func (b *MessageBuilder) joinButton() *discord.ButtonComponent {
	d := b.decision
	if d.Status != enum.PlayerStatusOnline || d.Display.PlaceID == nil || *d.Display.PlaceID == 0 {
		return nil
	}

	button := discord.NewLinkButton(JoinButtonLabel, utils.JoinURL(*d.Display.PlaceID, d.UserID))

	return &button
}

func displayName(display Display) string {
	switch {
	case display.DisplayName != "":
		return display.DisplayName
	case display.Username != "":
		return display.Username
	default:
		return "Unknown"
	}
}

func statusText(status enum.PlayerStatus) string {
	if status == enum.PlayerStatusOnline {
		return "Online ✅"
	}

	return "Offline"
}
