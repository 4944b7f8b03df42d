// internal/handlers/api_server.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ransomnotes/ransomnotes/internal/cache"
	"github.com/ransomnotes/ransomnotes/internal/config"
	"github.com/ransomnotes/ransomnotes/internal/game"
	"github.com/ransomnotes/ransomnotes/internal/models"
	"github.com/ransomnotes/ransomnotes/internal/words"
)

// GameServer is the high-level wiring: one store, one timer coordinator,
// one membership manager and one round engine, plus the registry of live
// client connections keyed by session id.
type GameServer struct {
	Store      *game.LobbyStore
	Timers     *game.TimerCoordinator
	Membership *game.Membership
	Engine     *game.Engine
	Words      words.Source
	Cfg        *config.Config
	Log        *logrus.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]*ClientConn
}

// ClientConn is the server-side handle for one websocket client. Writes
// go through a buffered channel drained by the write pump; a full buffer
// drops the message rather than block game logic.
type ClientConn struct {
	ID      uuid.UUID
	OutChan chan map[string]interface{}
	Cancel  context.CancelFunc
}

// Write enqueues a payload without blocking.
func (c *ClientConn) Write(msg map[string]interface{}) {
	select {
	case c.OutChan <- msg:
	default:
	}
}

// WriteError enqueues a lobby:error payload.
func (c *ClientConn) WriteError(message string) {
	c.Write(map[string]interface{}{
		"type":    "lobby:error",
		"message": message,
	})
}

func NewGameServer(cfg *config.Config, source words.Source, logger *logrus.Logger) *GameServer {
	store := game.NewLobbyStore()
	timers := game.NewTimerCoordinator()
	membership := game.NewMembership(store, timers, cfg.MaxPlayers, time.Duration(cfg.GraceSeconds)*time.Second, logger)
	engine := game.NewEngine(store, timers, source, cfg.WinThreshold, logger)

	gs := &GameServer{
		Store:      store,
		Timers:     timers,
		Membership: membership,
		Engine:     engine,
		Words:      source,
		Cfg:        cfg,
		Log:        logger,
		conns:      make(map[uuid.UUID]*ClientConn),
	}
	membership.OnLobbyUpdate = gs.BroadcastLobby
	return gs
}

// RegisterConn binds a connection to its session id, displacing any
// previous socket for the same session.
func (gs *GameServer) RegisterConn(conn *ClientConn) {
	gs.mu.Lock()
	prev := gs.conns[conn.ID]
	gs.conns[conn.ID] = conn
	gs.mu.Unlock()
	if prev != nil && prev.Cancel != nil {
		prev.Cancel()
	}
}

// UnregisterConn removes a connection and reports whether it was still
// the session's registered socket. A displaced connection must not run
// the disconnect path: the newer socket owns the session and its player.
func (gs *GameServer) UnregisterConn(conn *ClientConn) bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.conns[conn.ID] == conn {
		delete(gs.conns, conn.ID)
		return true
	}
	return false
}

func (gs *GameServer) connFor(id uuid.UUID) *ClientConn {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.conns[id]
}

// sendTo delivers a payload to one session, dropping it if the session
// has no live socket.
func (gs *GameServer) sendTo(id uuid.UUID, payload map[string]interface{}) {
	if c := gs.connFor(id); c != nil {
		c.Write(payload)
	}
}

// BroadcastLobby sends the current lobby snapshot to every connected
// player. The snapshot and recipient list are captured under the lobby
// lock; delivery happens outside it.
func (gs *GameServer) BroadcastLobby(lobby *models.Lobby) {
	lobby.Mu.Lock()
	payload := map[string]interface{}{
		"type":  "lobby:update",
		"lobby": lobbySnapshotUnsafe(lobby),
	}
	targets := connTargetsUnsafe(lobby)
	lobby.Mu.Unlock()

	for _, id := range targets {
		gs.sendTo(id, payload)
	}
}

// broadcast sends an arbitrary payload to every connected player in the
// lobby.
func (gs *GameServer) broadcast(lobby *models.Lobby, payload map[string]interface{}) {
	lobby.Mu.Lock()
	targets := connTargetsUnsafe(lobby)
	lobby.Mu.Unlock()

	for _, id := range targets {
		gs.sendTo(id, payload)
	}
}

// BeginRound starts the next round and privately deals each player their
// prompt and word pool. Preconditions (host, readiness, player count) are
// checked by the game:start intent handler before calling this.
func (gs *GameServer) BeginRound(code string) error {
	submissionWindow := time.Duration(gs.Cfg.SubmissionSeconds) * time.Second
	lobby, err := gs.Engine.StartRound(code, gs.Cfg.WordPoolSize, submissionWindow, gs.RevealRound)
	if err != nil {
		return err
	}

	type deal struct {
		connID  uuid.UUID
		payload map[string]interface{}
	}

	lobby.Mu.Lock()
	round := lobby.CurrentRound
	deals := make([]deal, 0, len(lobby.Players))
	for _, p := range lobby.Players {
		if p.ConnID == uuid.Nil {
			continue
		}
		deals = append(deals, deal{
			connID: p.ConnID,
			payload: map[string]interface{}{
				"type":        "round:begin",
				"prompt":      round.Prompt,
				"words":       append([]string(nil), p.Words...),
				"timeLimit":   round.TimeLimit,
				"roundNumber": lobby.RoundNumber,
				"judgeId":     intPtrValue(round.JudgeID),
			},
		})
	}
	lobby.Mu.Unlock()

	for _, d := range deals {
		gs.sendTo(d.connID, d.payload)
	}
	gs.BroadcastLobby(lobby)
	return nil
}

// RevealRound broadcasts the revealed submissions and opens the
// adjudication window. Runs both when everyone submitted and when the
// submission deadline expired.
func (gs *GameServer) RevealRound(lobby *models.Lobby) {
	lobby.Mu.Lock()
	round := lobby.CurrentRound
	payload := map[string]interface{}{
		"type":        "round:reveal",
		"submissions": submissionsSnapshotUnsafe(round),
		"prompt":      round.Prompt,
		"voteSeconds": gs.Cfg.VoteSeconds,
	}
	code := lobby.Code
	lobby.Mu.Unlock()

	gs.broadcast(lobby, payload)
	gs.BroadcastLobby(lobby)

	voteWindow := time.Duration(gs.Cfg.VoteSeconds) * time.Second
	if _, err := gs.Engine.StartVoting(code, voteWindow, gs.CompleteRound); err != nil {
		gs.Log.Warnf("lobby %s: failed to open voting: %v", code, err)
	}
}

// CompleteRound broadcasts the round result and pushes a history record
// to Redis when connected.
func (gs *GameServer) CompleteRound(winnerID *int, lobby *models.Lobby) {
	lobby.Mu.Lock()
	record := cache.RoundRecord{
		LobbyCode:   lobby.Code,
		RoundNumber: lobby.RoundNumber,
		Scores:      make(map[string]int, len(lobby.Players)),
		WinnerID:    winnerID,
		Timestamp:   time.Now().Unix(),
	}
	if lobby.CurrentRound != nil {
		record.Prompt = lobby.CurrentRound.Prompt
	}
	for _, p := range lobby.Players {
		record.Scores[p.Nickname] = p.Score
	}
	payload := map[string]interface{}{
		"type":     "result:winner",
		"winnerId": intPtrValue(winnerID),
		"players":  playersSnapshotUnsafe(lobby),
	}
	lobby.Mu.Unlock()

	gs.broadcast(lobby, payload)
	gs.BroadcastLobby(lobby)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cache.PublishRoundResult(ctx, record); err != nil {
		gs.Log.Warnf("lobby %s: failed to publish round record: %v", record.LobbyCode, err)
	}
}

// Shutdown cancels every pending timer.
func (gs *GameServer) Shutdown() {
	gs.Timers.Shutdown()
}

// lobbySnapshotUnsafe builds the lobby:update payload. Assumes the lobby
// lock is held.
func lobbySnapshotUnsafe(lobby *models.Lobby) map[string]interface{} {
	snap := map[string]interface{}{
		"code":        lobby.Code,
		"state":       lobby.State,
		"mode":        lobby.Mode,
		"roundNumber": lobby.RoundNumber,
		"players":     playersSnapshotUnsafe(lobby),
	}
	if lobby.CurrentRound != nil {
		round := map[string]interface{}{
			"stage":     lobby.CurrentRound.Stage,
			"prompt":    lobby.CurrentRound.Prompt,
			"timeLimit": lobby.CurrentRound.TimeLimit,
			"judgeId":   intPtrValue(lobby.CurrentRound.JudgeID),
		}
		if lobby.CurrentRound.Stage != models.StageAnswering {
			round["submissions"] = submissionsSnapshotUnsafe(lobby.CurrentRound)
		}
		snap["currentRound"] = round
	}
	return snap
}

// playersSnapshotUnsafe lists public player fields; word pools stay
// private to round:begin. Assumes the lobby lock is held.
func playersSnapshotUnsafe(lobby *models.Lobby) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(lobby.Players))
	for i, p := range lobby.Players {
		out = append(out, map[string]interface{}{
			"id":       p.ID,
			"nickname": p.Nickname,
			"score":    p.Score,
			"status":   p.Status,
			"isHost":   i == 0,
		})
	}
	return out
}

// submissionsSnapshotUnsafe copies the submission map with string keys
// for JSON. Assumes the lobby lock is held.
func submissionsSnapshotUnsafe(round *models.Round) map[int][]string {
	out := make(map[int][]string, len(round.Submissions))
	for id, sub := range round.Submissions {
		out[id] = append([]string(nil), sub...)
	}
	return out
}

// connTargetsUnsafe collects the live connection ids of a lobby's
// players. Assumes the lobby lock is held.
func connTargetsUnsafe(lobby *models.Lobby) []uuid.UUID {
	targets := make([]uuid.UUID, 0, len(lobby.Players))
	for _, p := range lobby.Players {
		if p.ConnID != uuid.Nil {
			targets = append(targets, p.ConnID)
		}
	}
	return targets
}

func intPtrValue(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
