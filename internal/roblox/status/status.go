// Package status turns raw Roblox lookups into a tracked player status.
package status

import (
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/database/types/enum"
)

// Names are the display fields shown in notifications.
type Names struct {
	DisplayName string
	Username    string
}

// Result is the outcome of Resolve.
type Result struct {
	Status enum.PlayerStatus
	Names  Names
}

// Classify reports Online only for a player connected to a game server.
// Browsing the website or editing in Studio counts as Offline, as does a
// missing presence.
func Classify(presence *types.Presence) enum.PlayerStatus {
	if presence != nil && presence.Type == types.PresenceTypeInGame {
		return enum.PlayerStatusOnline
	}

	return enum.PlayerStatusOffline
}

// Resolve combines one poll's lookups. presenceFailed marks a presence
// lookup that errored, which yields Unknown instead of Offline. Names come
// from the profile when available and from fallback otherwise, so a failed
// profile lookup never hides a transition.
func Resolve(profile *types.Profile, presence *types.Presence, presenceFailed bool, fallback Names) Result {
	result := Result{
		Status: Classify(presence),
		Names:  fallback,
	}

	if presenceFailed {
		result.Status = enum.PlayerStatusUnknown
	}

	if profile != nil {
		if profile.Name != "" {
			result.Names.Username = profile.Name
		}

		switch {
		case profile.DisplayName != "":
			result.Names.DisplayName = profile.DisplayName
		case profile.Name != "" && result.Names.DisplayName == "":
			result.Names.DisplayName = profile.Name
		}
	}

	return result
}
