package types

import (
	"time"

	"github.com/robalyx/presencewatch/internal/database/types/enum"
)

// PresenceType is the raw presence value reported by Roblox.
type PresenceType int

const (
	PresenceTypeOffline   PresenceType = 0
	PresenceTypeWebsite   PresenceType = 1
	PresenceTypeInGame    PresenceType = 2
	PresenceTypeStudio    PresenceType = 3
	PresenceTypeInvisible PresenceType = 4
)

func (t PresenceType) String() string {
	switch t {
	case PresenceTypeOffline:
		return "Offline"
	case PresenceTypeWebsite:
		return "Website"
	case PresenceTypeInGame:
		return "InGame"
	case PresenceTypeStudio:
		return "Studio"
	case PresenceTypeInvisible:
		return "Invisible"
	default:
		return "Unknown"
	}
}

// Presence is a point-in-time presence reading. It is never persisted.
type Presence struct {
	Type         PresenceType
	LastLocation string
	PlaceID      *uint64
	RootPlaceID  *uint64
	GameID       string
	UniverseID   *uint64
	UserID       uint64
	LastOnline   time.Time
	ObservedAt   time.Time
}

// Profile is the public account information of a Roblox user.
type Profile struct {
	ID          uint64
	Name        string
	DisplayName string
	Description string
	Created     time.Time
	IsBanned    bool
}

// PlayerStatusInfo bundles everything known about a player after one poll.
// Profile and Presence are nil when unavailable. Status is
// PlayerStatusUnknown only when the presence lookup itself failed.
type PlayerStatusInfo struct {
	UserID      uint64
	Status      enum.PlayerStatus
	Profile     *Profile
	Presence    *Presence
	AvatarURL   string
	DisplayName string
	Username    string
}

// Online reports whether the player was classified as in-game.
func (i *PlayerStatusInfo) Online() bool {
	return i != nil && i.Status == enum.PlayerStatusOnline
}
