// internal/handlers/session.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ransomnotes/ransomnotes/internal/auth"
)

const sessionCookieName = "session_token"

// EnsureSession resolves the caller's session id from the session_token
// cookie, minting and setting a fresh one when the cookie is absent or
// invalid. Sessions are ephemeral: the id only has to stay stable across
// socket reconnects from the same browser. Must run before the WebSocket
// upgrade, since Set-Cookie cannot be written afterwards.
func EnsureSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if sub, err := auth.VerifySessionToken(cookie.Value); err == nil {
			if id, err := uuid.Parse(sub); err == nil {
				return id, nil
			}
		}
	}

	id := uuid.New()
	token, err := auth.CreateSessionToken(id.String())
	if err != nil {
		return uuid.Nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}
