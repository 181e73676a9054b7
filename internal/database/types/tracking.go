package types

import (
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database/types/enum"
)

var (
	ErrPlayerNotFound  = errors.New("tracked player not found")
	ErrSettingNotFound = errors.New("guild setting not found")
)

// TrackedPlayer is a Roblox user watched on behalf of one guild.
type TrackedPlayer struct {
	GuildID     snowflake.ID      `bun:",pk"`
	UserID      uint64            `bun:",pk"`
	DisplayName string            `bun:",notnull"`
	Username    string            `bun:",notnull"`
	AddedAt     time.Time         `bun:",notnull"`
	LastStatus  enum.PlayerStatus `bun:",notnull"`
	MessageID   *snowflake.ID     `bun:",nullzero"`
	UpdatedAt   time.Time         `bun:",notnull"`
}

// PlayerState is the part of a TrackedPlayer written by the tracker after
// each decision. Empty names leave the stored names unchanged.
type PlayerState struct {
	Status      enum.PlayerStatus
	MessageID   *snowflake.ID
	DisplayName string
	Username    string
}
