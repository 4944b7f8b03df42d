package models

import (
	"sync"

	"github.com/google/uuid"
)

// LobbyState is the lobby-level game state.
type LobbyState string

const (
	StateWaitingForPlayers LobbyState = "WAITING_FOR_PLAYERS"
	StateRoundActive       LobbyState = "ROUND_ACTIVE"
	StateVoting            LobbyState = "VOTING"
	StateRoundEnd          LobbyState = "ROUND_END"
	// StateGameEnd is terminal: the lobby stays queryable but accepts no
	// further game intents.
	StateGameEnd LobbyState = "GAME_END"
)

// Mode selects how a round's winner is adjudicated. It is fixed for the
// lobby's lifetime at creation.
type Mode string

const (
	// ModePeerVote: every active player submits and votes for a
	// submission other than their own.
	ModePeerVote Mode = "peer"
	// ModeJudge: a rotating judge receives no pool, does not submit, and
	// picks the winner directly; voting is disabled.
	ModeJudge Mode = "judge"
)

// Lobby is the aggregate root for one game session. All mutations must
// hold Mu so that membership changes, submissions, votes and timer-driven
// transitions are serialized per lobby; unrelated lobbies proceed
// independently.
type Lobby struct {
	Code         string     `json:"code"`
	State        LobbyState `json:"state"`
	Players      []*Player  `json:"players"`
	JudgeIndex   *int       `json:"judgeIndex"`
	RoundNumber  int        `json:"roundNumber"`
	CurrentRound *Round     `json:"currentRound,omitempty"`
	Mode         Mode       `json:"mode"`

	// NextID is a monotonic player-id counter. Ids freed by removal are
	// never reassigned, even when the highest-numbered player leaves.
	NextID int `json:"-"`

	Mu sync.Mutex `json:"-"`
}

// TakeNextID hands out the next player id. Assumes Mu is held.
func (l *Lobby) TakeNextID() int {
	id := l.NextID
	l.NextID++
	return id
}

// Host returns players[0], or nil for an empty lobby. Assumes Mu is held.
func (l *Lobby) Host() *Player {
	if len(l.Players) == 0 {
		return nil
	}
	return l.Players[0]
}

// PlayerByID finds a player by id. Assumes Mu is held.
func (l *Lobby) PlayerByID(id int) *Player {
	for _, p := range l.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerByConn finds a player by connection reference. Assumes Mu is held.
func (l *Lobby) PlayerByConn(connID uuid.UUID) *Player {
	if connID == uuid.Nil {
		return nil
	}
	for _, p := range l.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// ActivePlayers returns the players who count toward quorums. Assumes Mu
// is held.
func (l *Lobby) ActivePlayers() []*Player {
	active := make([]*Player, 0, len(l.Players))
	for _, p := range l.Players {
		if p.Active() {
			active = append(active, p)
		}
	}
	return active
}

// Judge returns the current judge, or nil outside judge mode. Assumes Mu
// is held.
func (l *Lobby) Judge() *Player {
	if l.Mode != ModeJudge || l.JudgeIndex == nil {
		return nil
	}
	if *l.JudgeIndex < 0 || *l.JudgeIndex >= len(l.Players) {
		return nil
	}
	return l.Players[*l.JudgeIndex]
}
