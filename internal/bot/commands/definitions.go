package commands

import "github.com/disgoorg/disgo/discord"

// Command names.
const (
	AddPlayerCommand    = "add-player"
	ListTrackedCommand  = "list-tracked"
	RemovePlayerCommand = "remove-player"
	SetChannelCommand   = "set-channel"
	SetRoleCommand      = "set-role"
	StatusCommand       = "status"
)

// Option names.
const (
	RobloxIDOption = "roblox_id"
	ChannelOption  = "channel"
	RoleOption     = "role"
)

// RemoveSelectCustomID identifies the tracked players select menu.
const RemoveSelectCustomID = "tracked_remove_select"

// Ephemeral reports whether a command's replies are only shown to the caller.
func Ephemeral(name string) bool {
	switch name {
	case ListTrackedCommand, RemovePlayerCommand, StatusCommand:
		return true
	default:
		return false
	}
}

// Definitions returns the slash commands registered with Discord.
func Definitions() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        AddPlayerCommand,
			Description: "Add a Roblox player to track by their user ID",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        RobloxIDOption,
					Description: "The Roblox user ID (Profile ID) or profile link to track",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        ListTrackedCommand,
			Description: "Shows all tracked players with a dropdown menu",
		},
		discord.SlashCommandCreate{
			Name:        RemovePlayerCommand,
			Description: "Stop tracking a Roblox player",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        RobloxIDOption,
					Description: "The Roblox user ID (Profile ID) or profile link to remove",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        SetChannelCommand,
			Description: "Sets where notifications are sent",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:        ChannelOption,
					Description: "The channel to send notifications to",
					Required:    true,
					ChannelTypes: []discord.ChannelType{
						discord.ChannelTypeGuildText,
						discord.ChannelTypeGuildNews,
					},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        SetRoleCommand,
			Description: "Sets which role gets pinged when a player is online",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionRole{
					Name:        RoleOption,
					Description: "The role to ping for notifications",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        StatusCommand,
			Description: "Shows whether the presence tracker is running",
		},
	}
}
