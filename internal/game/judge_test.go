// internal/game/judge_test.go
package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ransomnotes/ransomnotes/internal/models"
)

func TestJudgeGetsNoPoolAndCannotSubmit(t *testing.T) {
	e, store, _ := newTestEngine(t, 5)
	lobby := newTestLobby(t, store, models.ModeJudge, "alice", "bob", "carol")
	_, err := e.StartRound(lobby.Code, 3, time.Minute, nil)
	require.NoError(t, err)

	ids := playerIDs(lobby)

	lobby.Mu.Lock()
	round := lobby.CurrentRound
	require.NotNil(t, round.JudgeID)
	assert.Equal(t, ids[0], *round.JudgeID, "first round judge is the first player")
	assert.Empty(t, lobby.PlayerByID(ids[0]).Words, "judge receives no word pool")
	assert.Len(t, lobby.PlayerByID(ids[1]).Words, 3)
	assert.Len(t, lobby.PlayerByID(ids[2]).Words, 3)
	lobby.Mu.Unlock()

	_, _, err = e.SubmitAnswer(lobby.Code, ids[0], []string{"cat"})
	assert.ErrorIs(t, err, ErrJudgeCannotSubmit)
}

func TestJudgeExcludedFromSubmissionQuorum(t *testing.T) {
	e, store, _ := newTestEngine(t, 5)
	lobby := newTestLobby(t, store, models.ModeJudge, "alice", "bob", "carol")
	_, err := e.StartRound(lobby.Code, 3, time.Minute, nil)
	require.NoError(t, err)

	ids := playerIDs(lobby)
	_, all, err := e.SubmitAnswer(lobby.Code, ids[1], []string{"cat"})
	require.NoError(t, err)
	assert.False(t, all)
	_, all, err = e.SubmitAnswer(lobby.Code, ids[2], []string{"dog"})
	require.NoError(t, err)
	assert.True(t, all, "both non-judges submitting completes the phase")
}

func TestVotingDisabledInJudgeMode(t *testing.T) {
	e, store, _ := newTestEngine(t, 5)
	lobby := newTestLobby(t, store, models.ModeJudge, "alice", "bob", "carol")
	_, err := e.StartRound(lobby.Code, 3, time.Minute, nil)
	require.NoError(t, err)

	ids := playerIDs(lobby)
	_, _, err = e.SubmitVote(lobby.Code, ids[1], ids[2])
	assert.ErrorIs(t, err, ErrVotingDisabled)
}

func TestFinalizeWinnerScoresAndRotatesJudge(t *testing.T) {
	e, store, timers := newTestEngine(t, 5)
	lobby := newTestLobby(t, store, models.ModeJudge, "alice", "bob", "carol")
	_, err := e.StartRound(lobby.Code, 3, time.Minute, nil)
	require.NoError(t, err)

	ids := playerIDs(lobby)
	_, _, err = e.SubmitAnswer(lobby.Code, ids[1], []string{"cat"})
	require.NoError(t, err)
	_, _, err = e.SubmitAnswer(lobby.Code, ids[2], []string{"dog"})
	require.NoError(t, err)

	_, err = e.StartVoting(lobby.Code, time.Minute, nil)
	require.NoError(t, err)

	// Non-submitter cannot win.
	_, err = e.FinalizeWinner(lobby.Code, ids[0])
	assert.ErrorIs(t, err, ErrInvalidWinner)

	updated, err := e.FinalizeWinner(lobby.Code, ids[2])
	require.NoError(t, err)

	updated.Mu.Lock()
	assert.Equal(t, 1, updated.PlayerByID(ids[2]).Score)
	assert.Equal(t, models.StageComplete, updated.CurrentRound.Stage)
	assert.Equal(t, models.StateRoundEnd, updated.State)
	require.NotNil(t, updated.JudgeIndex)
	assert.Equal(t, 1, *updated.JudgeIndex, "judge duty rotates to the next player")
	updated.Mu.Unlock()

	assert.False(t, timers.Pending(lobby.Code, TimerVote))

	// Next round is judged by bob.
	_, err = e.StartRound(lobby.Code, 3, time.Minute, nil)
	require.NoError(t, err)
	lobby.Mu.Lock()
	require.NotNil(t, lobby.CurrentRound.JudgeID)
	assert.Equal(t, ids[1], *lobby.CurrentRound.JudgeID)
	assert.Empty(t, lobby.PlayerByID(ids[1]).Words)
	lobby.Mu.Unlock()
}

func TestFinalizeWinnerRejectedInPeerMode(t *testing.T) {
	e, store, _ := newTestEngine(t, 5)
	lobby := newTestLobby(t, store, models.ModePeerVote, "alice", "bob")
	_, err := e.StartRound(lobby.Code, 3, time.Minute, nil)
	require.NoError(t, err)
	submitAll(t, e, lobby)

	ids := playerIDs(lobby)
	_, err = e.FinalizeWinner(lobby.Code, ids[0])
	assert.ErrorIs(t, err, ErrNotJudgeMode)
}

func TestJudgeDeadlineAutoPicksAmongSubmitters(t *testing.T) {
	e, store, _ := newTestEngine(t, 5)
	lobby := newTestLobby(t, store, models.ModeJudge, "alice", "bob", "carol")
	_, err := e.StartRound(lobby.Code, 3, time.Minute, nil)
	require.NoError(t, err)

	ids := playerIDs(lobby)
	_, _, err = e.SubmitAnswer(lobby.Code, ids[1], []string{"cat"})
	require.NoError(t, err)
	_, _, err = e.SubmitAnswer(lobby.Code, ids[2], []string{"dog"})
	require.NoError(t, err)

	comp := &completeRecorder{}
	_, err = e.StartVoting(lobby.Code, 50*time.Millisecond, comp.fn)
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)

	count, winner := comp.result()
	assert.Equal(t, 1, count)
	require.NotNil(t, winner, "expired pick window selects a winner automatically")
	assert.Contains(t, []int{ids[1], ids[2]}, *winner)

	lobby.Mu.Lock()
	assert.Equal(t, 1, lobby.PlayerByID(*winner).Score)
	assert.Equal(t, models.StageComplete, lobby.CurrentRound.Stage)
	lobby.Mu.Unlock()
}
