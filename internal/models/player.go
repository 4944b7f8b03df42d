package models

import "github.com/google/uuid"

// PlayerStatus tracks a player's lifecycle within a lobby.
type PlayerStatus string

const (
	StatusJoined       PlayerStatus = "JOINED"
	StatusReady        PlayerStatus = "READY"
	StatusDisconnected PlayerStatus = "DISCONNECTED"
)

// Player is an identity within a single lobby only; it is owned by its
// Lobby and never shared. The host always has ID 1. Words holds the pool
// the player may build their answer from, reassigned fresh each round,
// and may contain duplicates.
type Player struct {
	ID       int          `json:"id"`
	Nickname string       `json:"nickname"`
	Score    int          `json:"score"`
	Status   PlayerStatus `json:"status"`
	Words    []string     `json:"words"`

	// ConnID is the opaque session reference for the player's live
	// connection. uuid.Nil while disconnected.
	ConnID uuid.UUID `json:"-"`
}

// Active reports whether the player counts toward submission/vote quorums.
func (p *Player) Active() bool {
	return p.Status != StatusDisconnected
}
