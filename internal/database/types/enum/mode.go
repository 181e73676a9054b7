package enum

// NotifyMode selects how the tracker treats a player who stays online or
// goes offline after a notification was sent.
//
//go:generate go tool enumer -type=NotifyMode -trimprefix=NotifyMode
type NotifyMode int

const (
	// NotifyModeEdge notifies only on the offline to online edge. Going
	// offline forgets the message so the next session gets a fresh one.
	NotifyModeEdge NotifyMode = iota
	// NotifyModeLive keeps a single message updated for the whole session
	// and edits it to show offline when the session ends.
	NotifyModeLive
)

// UnknownPolicy selects what the tracker does when presence could not be read.
//
//go:generate go tool enumer -type=UnknownPolicy -trimprefix=UnknownPolicy
type UnknownPolicy int

const (
	// UnknownPolicyKeep leaves the stored state untouched for the cycle.
	UnknownPolicyKeep UnknownPolicy = iota
	// UnknownPolicyOffline treats an unreadable presence as offline.
	UnknownPolicyOffline
)
