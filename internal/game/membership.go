// internal/game/membership.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ransomnotes/ransomnotes/internal/models"
)

// Membership handles join/leave/status transitions, capacity and
// uniqueness rules, and the disconnect grace window. Races between
// disconnects and reconnects are expected, so status updates are
// deliberately permissive no-ops when the target is already gone.
type Membership struct {
	store      *LobbyStore
	timers     *TimerCoordinator
	maxPlayers int
	grace      time.Duration
	log        *logrus.Logger

	// OnLobbyUpdate, when set, is invoked after disconnect-driven state
	// changes so the gateway can broadcast the new lobby snapshot. It is
	// always called without the lobby lock held.
	OnLobbyUpdate func(*models.Lobby)

	mu           sync.Mutex
	graceEntries map[uuid.UUID]*graceEntry
}

type graceEntry struct {
	timer    *time.Timer
	code     string
	playerID int
}

func NewMembership(store *LobbyStore, timers *TimerCoordinator, maxPlayers int, grace time.Duration, log *logrus.Logger) *Membership {
	return &Membership{
		store:        store,
		timers:       timers,
		maxPlayers:   maxPlayers,
		grace:        grace,
		log:          log,
		graceEntries: make(map[uuid.UUID]*graceEntry),
	}
}

// Join adds a player to a waiting lobby. Late joins are rejected once a
// game is underway to avoid mid-round desync.
func (m *Membership) Join(code, nickname string, connID uuid.UUID) (*models.Lobby, *models.Player, error) {
	if err := ValidateNickname(nickname); err != nil {
		return nil, nil, err
	}

	lobby, ok := m.store.Get(code)
	if !ok {
		return nil, nil, ErrLobbyNotFound
	}

	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()

	// Nickname uniqueness is case-sensitive and counts disconnected
	// players still inside their grace window.
	for _, p := range lobby.Players {
		if p.Nickname == nickname {
			return nil, nil, ErrNicknameTaken
		}
	}
	if len(lobby.Players) >= m.maxPlayers {
		return nil, nil, ErrLobbyFull
	}
	if lobby.State != models.StateWaitingForPlayers {
		return nil, nil, ErrGameInProgress
	}

	player := &models.Player{
		ID:       lobby.TakeNextID(),
		Nickname: nickname,
		Status:   models.StatusJoined,
		Words:    []string{},
		ConnID:   connID,
	}
	lobby.Players = append(lobby.Players, player)
	return lobby, player, nil
}

// SetStatus updates a player's status. Idempotent and permissive: a
// missing lobby or player is a no-op, never an error, because
// disconnect/reconnect races must not crash the system.
func (m *Membership) SetStatus(code string, playerID int, status models.PlayerStatus) {
	lobby, ok := m.store.Get(code)
	if !ok {
		return
	}
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	if p := lobby.PlayerByID(playerID); p != nil {
		p.Status = status
	}
}

// Remove deletes a player from the lobby. If the lobby becomes empty it is
// torn down: all its timers are cancelled and it is dropped from the
// store. When the host is removed, the next player in join order becomes
// players[0] and thereby the host.
func (m *Membership) Remove(code string, playerID int) {
	lobby, ok := m.store.Get(code)
	if !ok {
		return
	}

	lobby.Mu.Lock()
	removed, empty := m.removeLocked(lobby, playerID)
	lobby.Mu.Unlock()

	if removed && empty {
		m.teardown(code)
	}
}

// removeLocked removes the player from the slice and keeps the judge index
// in range. Assumes the lobby lock is held.
func (m *Membership) removeLocked(lobby *models.Lobby, playerID int) (removed, empty bool) {
	for i, p := range lobby.Players {
		if p.ID == playerID {
			lobby.Players = append(lobby.Players[:i], lobby.Players[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return false, false
	}
	if lobby.JudgeIndex != nil && len(lobby.Players) > 0 && *lobby.JudgeIndex >= len(lobby.Players) {
		*lobby.JudgeIndex %= len(lobby.Players)
	}
	return true, len(lobby.Players) == 0
}

func (m *Membership) teardown(code string) {
	m.timers.CancelAll(code)
	m.store.Remove(code)
	m.log.Infof("lobby %s empty, removed", code)
}

// ResolveDisconnect handles a transport-level disconnect notification:
// the player is marked DISCONNECTED and a grace timer is started. If no
// reconnect lands before it fires, the player is permanently removed.
func (m *Membership) ResolveDisconnect(connID uuid.UUID) {
	lobby, player, ok := m.store.FindByConnection(connID)
	if !ok {
		return
	}

	lobby.Mu.Lock()
	player.Status = models.StatusDisconnected
	player.ConnID = uuid.Nil
	code := lobby.Code
	playerID := player.ID
	lobby.Mu.Unlock()

	m.log.Infof("lobby %s: player %d disconnected, grace %s", code, playerID, m.grace)
	if m.OnLobbyUpdate != nil {
		m.OnLobbyUpdate(lobby)
	}

	m.mu.Lock()
	if prev, exists := m.graceEntries[connID]; exists {
		prev.timer.Stop()
	}
	entry := &graceEntry{code: code, playerID: playerID}
	entry.timer = time.AfterFunc(m.grace, func() {
		m.expireGrace(connID, entry)
	})
	m.graceEntries[connID] = entry
	m.mu.Unlock()
}

// expireGrace runs when a grace timer fires: if the player never came
// back, remove them for good.
func (m *Membership) expireGrace(connID uuid.UUID, entry *graceEntry) {
	m.mu.Lock()
	if m.graceEntries[connID] != entry {
		// Replaced or cancelled after firing.
		m.mu.Unlock()
		return
	}
	delete(m.graceEntries, connID)
	m.mu.Unlock()

	lobby, ok := m.store.Get(entry.code)
	if !ok {
		return
	}

	lobby.Mu.Lock()
	p := lobby.PlayerByID(entry.playerID)
	if p == nil || p.Active() {
		// Already removed, or reconnected in time.
		lobby.Mu.Unlock()
		return
	}
	removed, empty := m.removeLocked(lobby, entry.playerID)
	lobby.Mu.Unlock()

	if !removed {
		return
	}
	m.log.Infof("lobby %s: player %d grace expired, removed", entry.code, entry.playerID)
	if empty {
		m.teardown(entry.code)
		return
	}
	if m.OnLobbyUpdate != nil {
		m.OnLobbyUpdate(lobby)
	}
}

// Reconnect rebinds a returning session to its disconnected player,
// cancelling the pending grace timer. Returns false when the session has
// no player waiting inside a grace window.
func (m *Membership) Reconnect(connID uuid.UUID) (*models.Lobby, *models.Player, bool) {
	m.mu.Lock()
	entry, ok := m.graceEntries[connID]
	if ok {
		entry.timer.Stop()
		delete(m.graceEntries, connID)
	}
	m.mu.Unlock()
	if !ok {
		return nil, nil, false
	}

	lobby, found := m.store.Get(entry.code)
	if !found {
		return nil, nil, false
	}

	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	p := lobby.PlayerByID(entry.playerID)
	if p == nil {
		return nil, nil, false
	}
	p.Status = models.StatusJoined
	p.ConnID = connID
	return lobby, p, true
}
