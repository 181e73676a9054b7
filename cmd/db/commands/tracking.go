package commands

import (
	"context"
	"strconv"

	"github.com/disgoorg/snowflake/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// TrackingCommands returns commands that inspect the tracking store.
func TrackingCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "players",
			Usage:     "List tracked players, optionally for one guild",
			ArgsUsage: "[GUILD_ID]",
			Action:    handlePlayers(deps),
		},
		{
			Name:      "settings",
			Usage:     "Show the notification destination of a guild",
			ArgsUsage: "GUILD_ID",
			Action:    handleSettings(deps),
		},
	}
}

// handlePlayers handles the 'players' command.
func handlePlayers(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		var guildID *snowflake.ID

		if c.Args().Len() > 0 {
			id, err := parseGuildID(c.Args().First())
			if err != nil {
				return err
			}

			guildID = &id
		}

		players, err := deps.DB.Model().ListTrackedPlayers(ctx, guildID)
		if err != nil {
			return err
		}

		for _, player := range players {
			fields := []zap.Field{
				zap.Uint64("guildID", uint64(player.GuildID)),
				zap.Uint64("userID", player.UserID),
				zap.String("username", player.Username),
				zap.String("status", player.LastStatus.String()),
				zap.Time("updatedAt", player.UpdatedAt),
			}
			if player.MessageID != nil {
				fields = append(fields, zap.Uint64("messageID", uint64(*player.MessageID)))
			}

			deps.Logger.Info("Tracked player", fields...)
		}

		deps.Logger.Info("Listed tracked players", zap.Int("count", len(players)))

		return nil
	}
}

// handleSettings handles the 'settings' command.
func handleSettings(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrGuildIDRequired
		}

		guildID, err := parseGuildID(c.Args().First())
		if err != nil {
			return err
		}

		setting, err := deps.DB.Model().GetGuildSetting(ctx, guildID)
		if err != nil {
			return err
		}

		fields := []zap.Field{zap.Uint64("guildID", uint64(setting.GuildID))}
		if setting.ChannelID != nil {
			fields = append(fields, zap.Uint64("channelID", uint64(*setting.ChannelID)))
		}

		if setting.PingRoleID != nil {
			fields = append(fields, zap.Uint64("pingRoleID", uint64(*setting.PingRoleID)))
		}

		deps.Logger.Info("Guild setting", fields...)

		return nil
	}
}

func parseGuildID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidGuildID
	}

	return snowflake.ID(id), nil
}
