package enum

// PlayerStatus is the last classification stored for a tracked player.
//
//go:generate go tool enumer -type=PlayerStatus -trimprefix=PlayerStatus
type PlayerStatus int

const (
	// PlayerStatusUnknown means presence could not be read.
	PlayerStatusUnknown PlayerStatus = iota
	// PlayerStatusOffline means the player is not in a live game session.
	PlayerStatusOffline
	// PlayerStatusOnline means the player is connected to a game server.
	PlayerStatusOnline
)
