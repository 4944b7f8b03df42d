// internal/game/timers.go
package game

import (
	"sync"
	"time"
)

// TimerKind distinguishes the two deadline timers a lobby can hold.
type TimerKind string

const (
	TimerSubmission TimerKind = "submission"
	TimerVote       TimerKind = "vote"
)

// TimerCoordinator owns at most one pending timer per (lobby code, kind).
// Scheduling replaces any existing timer of the same kind, so a stale
// deadline never fires against a lobby that has already moved past the
// state it was guarding. Callbacks run on the timer goroutine and must
// acquire the lobby's own lock before touching state.
type TimerCoordinator struct {
	mu     sync.Mutex
	timers map[string]map[TimerKind]*time.Timer
}

func NewTimerCoordinator() *TimerCoordinator {
	return &TimerCoordinator{
		timers: make(map[string]map[TimerKind]*time.Timer),
	}
}

// Schedule installs fn to run after d, cancelling any pending timer of the
// same kind for the same code first.
func (tc *TimerCoordinator) Schedule(code string, kind TimerKind, d time.Duration, fn func()) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.cancelLocked(code, kind)

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		tc.mu.Lock()
		// A timer that was replaced or cancelled between firing and
		// acquiring the lock must not run its callback.
		byKind := tc.timers[code]
		if byKind == nil || byKind[kind] != t {
			tc.mu.Unlock()
			return
		}
		delete(byKind, kind)
		if len(byKind) == 0 {
			delete(tc.timers, code)
		}
		tc.mu.Unlock()

		fn()
	})

	byKind := tc.timers[code]
	if byKind == nil {
		byKind = make(map[TimerKind]*time.Timer)
		tc.timers[code] = byKind
	}
	byKind[kind] = t
}

// Cancel stops a pending timer of the given kind, if any. Idempotent.
func (tc *TimerCoordinator) Cancel(code string, kind TimerKind) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.cancelLocked(code, kind)
}

// CancelAll stops every pending timer for a lobby, used on teardown.
func (tc *TimerCoordinator) CancelAll(code string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	for kind := range tc.timers[code] {
		tc.cancelLocked(code, kind)
	}
}

// Shutdown cancels every timer across all lobbies.
func (tc *TimerCoordinator) Shutdown() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	for code, byKind := range tc.timers {
		for _, t := range byKind {
			t.Stop()
		}
		delete(tc.timers, code)
	}
}

// Pending reports whether a timer of the given kind is installed.
func (tc *TimerCoordinator) Pending(code string, kind TimerKind) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	byKind := tc.timers[code]
	if byKind == nil {
		return false
	}
	_, ok := byKind[kind]
	return ok
}

func (tc *TimerCoordinator) cancelLocked(code string, kind TimerKind) {
	byKind := tc.timers[code]
	if byKind == nil {
		return
	}
	if t, ok := byKind[kind]; ok {
		t.Stop()
		delete(byKind, kind)
	}
	if len(byKind) == 0 {
		delete(tc.timers, code)
	}
}
