// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ransomnotes/ransomnotes/internal/game"
	"github.com/ransomnotes/ransomnotes/internal/middleware"
	"github.com/ransomnotes/ransomnotes/internal/models"
)

const wsSubprotocol = "ransomnotes"

// WSHandler upgrades the connection, binds it to the caller's session and
// runs the read/write pumps. One socket per session: a newer socket for
// the same session displaces the old one.
func WSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		// Session must be resolved before the upgrade; Set-Cookie cannot
		// follow a 101.
		sessionID, err := EnsureSession(w, r)
		if err != nil {
			logger.Warnf("session setup failed: %v", err)
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{wsSubprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != wsSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the ransomnotes subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &ClientConn{
			ID:      sessionID,
			OutChan: make(chan map[string]interface{}, 16),
			Cancel:  cancel,
		}
		gs.RegisterConn(conn)
		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path, sessionID.String())

		// Returning inside a grace window rebinds the session to its player.
		if lobby, player, ok := gs.Membership.Reconnect(sessionID); ok {
			logger.Infof("session %s reconnected as player %d in lobby %s", sessionID, player.ID, lobby.Code)
			conn.Write(gs.joinedPayload(lobby, player))
			gs.BroadcastLobby(lobby)
		}

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, gs, conn, logger)

		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, sessionID.String(), nil)
		cancel()
		if gs.UnregisterConn(conn) {
			gs.Membership.ResolveDisconnect(sessionID)
		} else {
			// A newer socket took over the session; the player stays
			// bound to it and no grace window starts.
			c.Close(DuplicateSessionError, "session connected elsewhere")
		}
	}
}

// readPump decodes inbound intents and dispatches them until the
// connection closes.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, conn *ClientConn, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("session %s: websocket closed normally", conn.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("session %s: read error: %v", conn.ID, err)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("session %s: ignoring non-text message type %d", conn.ID, typ)
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("session %s: invalid json: %v", conn.ID, err)
			conn.WriteError("Invalid JSON format")
			continue
		}

		handleIntent(gs, conn, packet, logger)
	}
}

// handleIntent interprets the "type" field of one inbound packet.
func handleIntent(gs *GameServer, conn *ClientConn, packet map[string]interface{}, logger *logrus.Logger) {
	action, _ := packet["type"].(string)

	switch action {
	case "lobby:create":
		nickname := getString(packet, "nickname")
		mode := gs.Cfg.Mode
		switch getString(packet, "mode") {
		case string(models.ModeJudge):
			mode = models.ModeJudge
		case string(models.ModePeerVote):
			mode = models.ModePeerVote
		}
		lobby, host, err := gs.Store.CreateLobby(nickname, conn.ID, mode)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		logger.Infof("session %s created lobby %s", conn.ID, lobby.Code)
		conn.Write(gs.joinedPayload(lobby, host))
		gs.BroadcastLobby(lobby)

	case "lobby:join":
		code := getString(packet, "code")
		nickname := getString(packet, "nickname")
		lobby, player, err := gs.Membership.Join(code, nickname, conn.ID)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		logger.Infof("session %s joined lobby %s as player %d", conn.ID, code, player.ID)
		conn.Write(gs.joinedPayload(lobby, player))
		gs.BroadcastLobby(lobby)

	case "player:ready":
		lobby, player, ok := gs.Store.FindByConnection(conn.ID)
		if !ok {
			conn.WriteError("Player not found for socket")
			return
		}
		status := models.StatusReady
		if ready, present := packet["ready"].(bool); present && !ready {
			status = models.StatusJoined
		}
		gs.Membership.SetStatus(lobby.Code, player.ID, status)
		gs.BroadcastLobby(lobby)

	case "game:start":
		lobby, player, ok := gs.Store.FindByConnection(conn.ID)
		if !ok {
			conn.WriteError("Player not found for socket")
			return
		}
		if err := checkStartPreconditions(gs, lobby, player.ID); err != nil {
			conn.WriteError(err.Error())
			return
		}
		gs.broadcast(lobby, map[string]interface{}{"type": "game:start"})
		if err := gs.BeginRound(lobby.Code); err != nil {
			conn.WriteError(err.Error())
		}

	case "round:submit":
		lobbyCode := getString(packet, "lobbyCode")
		playerID := getInt(packet, "playerId")
		answer := getStringSlice(packet, "answer")

		lobby, player, ok := gs.Store.FindByConnection(conn.ID)
		if !ok {
			conn.WriteError("Player not found for socket")
			return
		}
		if player.ID != playerID || lobby.Code != lobbyCode {
			conn.WriteError("Socket/player mismatch")
			return
		}

		updated, allSubmitted, err := gs.Engine.SubmitAnswer(lobbyCode, playerID, answer)
		if err != nil {
			conn.Write(map[string]interface{}{"type": "round:submitAck", "ok": false, "message": err.Error()})
			return
		}
		conn.Write(map[string]interface{}{"type": "round:submitAck", "ok": true})
		gs.BroadcastLobby(updated)
		if allSubmitted {
			gs.RevealRound(updated)
		}

	case "round:vote":
		lobbyCode := getString(packet, "lobbyCode")
		voterID := getInt(packet, "voterId")
		submissionID := getInt(packet, "submissionId")

		updated, res, err := gs.Engine.SubmitVote(lobbyCode, voterID, submissionID)
		if err != nil {
			conn.Write(map[string]interface{}{"type": "round:voteAck", "ok": false, "message": err.Error()})
			return
		}
		conn.Write(map[string]interface{}{"type": "round:voteAck", "ok": true})
		gs.BroadcastLobby(updated)
		if res.AllVoted {
			gs.CompleteRound(res.WinnerID, updated)
		}

	case "judge:pick":
		lobbyCode := getString(packet, "lobbyCode")
		winnerID := getInt(packet, "winnerId")

		lobby, player, ok := gs.Store.FindByConnection(conn.ID)
		if !ok || lobby.Code != lobbyCode {
			conn.WriteError("Player not found for socket")
			return
		}
		if !isJudge(lobby, player.ID) {
			conn.Write(map[string]interface{}{"type": "judge:pickAck", "ok": false, "message": "only the judge can pick"})
			return
		}

		updated, err := gs.Engine.FinalizeWinner(lobbyCode, winnerID)
		if err != nil {
			conn.Write(map[string]interface{}{"type": "judge:pickAck", "ok": false, "message": err.Error()})
			return
		}
		conn.Write(map[string]interface{}{"type": "judge:pickAck", "ok": true})
		gs.CompleteRound(&winnerID, updated)

	case "ping":
		conn.Write(map[string]interface{}{"type": "pong"})

	default:
		logger.Warnf("session %s: unknown action %q", conn.ID, action)
		conn.WriteError("Unknown action type: " + action)
	}
}

// checkStartPreconditions enforces who may start a round and when: the
// host only, with enough active players, all of them ready before the
// first round. Between rounds (ROUND_END) readiness is not re-required.
func checkStartPreconditions(gs *GameServer, lobby *models.Lobby, requesterID int) error {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()

	host := lobby.Host()
	if host == nil || host.ID != requesterID {
		return game.ErrOnlyHostCanStart
	}
	if lobby.State != models.StateWaitingForPlayers && lobby.State != models.StateRoundEnd {
		if lobby.State == models.StateGameEnd {
			return game.ErrGameEnded
		}
		return game.ErrGameInProgress
	}

	active := lobby.ActivePlayers()
	if len(active) < gs.Cfg.MinPlayers {
		return game.ErrNotEnoughPlayers
	}
	if lobby.State == models.StateWaitingForPlayers {
		for _, p := range active {
			if p.Status != models.StatusReady {
				return game.ErrNotAllPlayersReady
			}
		}
	}
	return nil
}

func isJudge(lobby *models.Lobby, playerID int) bool {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	round := lobby.CurrentRound
	return round != nil && round.JudgeID != nil && *round.JudgeID == playerID
}

// joinedPayload builds the private lobby:joined ack for a newly bound
// player.
func (gs *GameServer) joinedPayload(lobby *models.Lobby, player *models.Player) map[string]interface{} {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	return map[string]interface{}{
		"type":  "lobby:joined",
		"lobby": lobbySnapshotUnsafe(lobby),
		"player": map[string]interface{}{
			"id":       player.ID,
			"nickname": player.Nickname,
		},
	}
}

// writePump drains the connection's outbound channel and keeps the socket
// alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *ClientConn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("session %s: failed to marshal outgoing msg: %v", conn.ID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("session %s: websocket write failed: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("session %s: ping failed, assuming disconnect: %v", conn.ID, err)
				return
			}
		}
	}
}

// getString reads a string field from a decoded packet.
func getString(packet map[string]interface{}, key string) string {
	s, _ := packet[key].(string)
	return s
}

// getInt reads a numeric field; JSON numbers decode as float64.
func getInt(packet map[string]interface{}, key string) int {
	f, _ := packet[key].(float64)
	return int(f)
}

// getStringSlice reads a string array field.
func getStringSlice(packet map[string]interface{}, key string) []string {
	raw, _ := packet[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
