// internal/game/lobby_store.go
package game

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ransomnotes/ransomnotes/internal/models"
)

// codeAlphabet excludes the confusable 0/O/1/I.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// LobbyStore owns the code -> Lobby mapping for every live lobby, in
// memory only. Map mutations hold the store's own lock; lobby state is
// guarded separately by each lobby's mutex.
type LobbyStore struct {
	mu      sync.Mutex
	lobbies map[string]*models.Lobby
}

// NewLobbyStore returns an in-memory store for lobbies.
func NewLobbyStore() *LobbyStore {
	return &LobbyStore{
		lobbies: make(map[string]*models.Lobby),
	}
}

// CreateLobby builds a fresh lobby with the host as player 1 and registers
// it under a newly generated unique code.
func (s *LobbyStore) CreateLobby(hostNickname string, connID uuid.UUID, mode models.Mode) (*models.Lobby, *models.Player, error) {
	if err := ValidateNickname(hostNickname); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := randomCode()
	for s.lobbies[code] != nil {
		code = randomCode()
	}

	lobby := &models.Lobby{
		Code:   code,
		State:  models.StateWaitingForPlayers,
		Mode:   mode,
		NextID: 1,
	}
	host := &models.Player{
		ID:       lobby.TakeNextID(),
		Nickname: hostNickname,
		Status:   models.StatusJoined,
		Words:    []string{},
		ConnID:   connID,
	}
	lobby.Players = []*models.Player{host}

	s.lobbies[code] = lobby
	return lobby, host, nil
}

// Get retrieves a lobby if it exists.
func (s *LobbyStore) Get(code string) (*models.Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[code]
	return l, ok
}

// Remove deregisters a lobby. Called when its player list becomes empty.
func (s *LobbyStore) Remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, code)
}

// FindByConnection resolves an inbound connection reference to its lobby
// and player via a linear scan across live lobbies. Lobby locks are taken
// one at a time after releasing the store lock, so this never holds two
// locks at once.
func (s *LobbyStore) FindByConnection(connID uuid.UUID) (*models.Lobby, *models.Player, bool) {
	s.mu.Lock()
	snapshot := make([]*models.Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		snapshot = append(snapshot, l)
	}
	s.mu.Unlock()

	for _, l := range snapshot {
		l.Mu.Lock()
		p := l.PlayerByConn(connID)
		l.Mu.Unlock()
		if p != nil {
			return l, p, true
		}
	}
	return nil, nil, false
}

// ValidateNickname enforces the trimmed-non-empty 2-15 char rule.
func ValidateNickname(nickname string) error {
	trimmed := strings.TrimSpace(nickname)
	if trimmed == "" || trimmed != nickname {
		return ErrInvalidNickname
	}
	if len(nickname) < 2 || len(nickname) > 15 {
		return ErrInvalidNickname
	}
	return nil
}

func randomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
