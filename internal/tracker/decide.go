package tracker

import (
	"fmt"

	"github.com/robalyx/presencewatch/internal/database/types/enum"
)

// Action is what the tracker does about a player after one poll.
type Action int

const (
	// ActionNone leaves the notification as it is.
	ActionNone Action = iota
	// ActionOnline sends or refreshes the online notification.
	ActionOnline
	// ActionOffline edits the notification to show the player went offline.
	ActionOffline
	// ActionRefresh edits the online notification while the player stays online.
	ActionRefresh
	// ActionClear forgets the notification without touching it.
	ActionClear
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionOnline:
		return "online"
	case ActionOffline:
		return "offline"
	case ActionRefresh:
		return "refresh"
	case ActionClear:
		return "clear"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Dispatches reports whether the action needs a message sent or edited.
func (a Action) Dispatches() bool {
	return a == ActionOnline || a == ActionOffline || a == ActionRefresh
}

// Decide maps a status change onto an action. A stored Unknown counts as
// Offline. An Unknown reading never triggers anything.
func Decide(prev, next enum.PlayerStatus, mode enum.NotifyMode) Action {
	if prev == enum.PlayerStatusUnknown {
		prev = enum.PlayerStatusOffline
	}

	switch {
	case next == enum.PlayerStatusUnknown:
		return ActionNone
	case prev == enum.PlayerStatusOffline && next == enum.PlayerStatusOnline:
		return ActionOnline
	case prev == enum.PlayerStatusOnline && next == enum.PlayerStatusOffline:
		if mode == enum.NotifyModeLive {
			return ActionOffline
		}

		return ActionClear
	case prev == enum.PlayerStatusOnline && next == enum.PlayerStatusOnline:
		if mode == enum.NotifyModeLive {
			return ActionRefresh
		}

		return ActionNone
	default:
		return ActionNone
	}
}
