package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// GuildSetting holds where a guild wants notifications delivered.
type GuildSetting struct {
	GuildID    snowflake.ID  `bun:",pk"`
	ChannelID  *snowflake.ID `bun:",nullzero"`
	PingRoleID *snowflake.ID `bun:",nullzero"`
	UpdatedAt  time.Time     `bun:",notnull"`
}

// HasDestination reports whether a notification channel is configured.
func (s *GuildSetting) HasDestination() bool {
	return s != nil && s.ChannelID != nil && *s.ChannelID != 0
}
