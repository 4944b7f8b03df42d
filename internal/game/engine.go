// internal/game/engine.go
package game

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ransomnotes/ransomnotes/internal/models"
	"github.com/ransomnotes/ransomnotes/internal/words"
)

// RevealFunc is invoked (without the lobby lock held) when a round's
// submissions are revealed, either because everyone submitted or because
// the submission deadline expired. The gateway uses it to broadcast the
// reveal and then open voting.
type RevealFunc func(lobby *models.Lobby)

// CompleteFunc is invoked (without the lobby lock held) when the voting
// deadline finalizes a round. winnerID is nil when no votes were cast.
type CompleteFunc func(winnerID *int, lobby *models.Lobby)

// VoteResult is returned by SubmitVote. WinnerID is set only when this
// vote completed the round.
type VoteResult struct {
	WinnerID *int
	AllVoted bool
}

// Engine drives the round state machine for every lobby: word-pool
// assignment, submission validation, phase advancement on completion or
// timeout, tallying, tie-breaking, scoring, win detection and judge
// rotation. All mutations are serialized by the per-lobby lock; deadline
// callbacks acquire the same lock and re-check the stage so a stale timer
// is a safe no-op.
type Engine struct {
	store        *LobbyStore
	timers       *TimerCoordinator
	words        words.Source
	winThreshold int
	log          *logrus.Logger
}

func NewEngine(store *LobbyStore, timers *TimerCoordinator, source words.Source, winThreshold int, log *logrus.Logger) *Engine {
	return &Engine{
		store:        store,
		timers:       timers,
		words:        source,
		winThreshold: winThreshold,
		log:          log,
	}
}

// StartRound replaces the lobby's current round with a fresh one: a new
// prompt, fresh word pools (the judge gets none in judge mode), stage
// ANSWERING and a submission deadline. Any previously scheduled
// submission timer for the lobby is replaced. Host/readiness/min-player
// preconditions are the caller's responsibility.
func (e *Engine) StartRound(code string, poolSize int, submissionWindow time.Duration, onReveal RevealFunc) (*models.Lobby, error) {
	lobby, ok := e.store.Get(code)
	if !ok {
		return nil, ErrLobbyNotFound
	}

	lobby.Mu.Lock()
	if lobby.State == models.StateGameEnd {
		lobby.Mu.Unlock()
		return nil, ErrGameEnded
	}

	lobby.RoundNumber++

	var judgeID *int
	if lobby.Mode == models.ModeJudge {
		if lobby.JudgeIndex == nil {
			first := 0
			lobby.JudgeIndex = &first
		}
		id := lobby.Players[*lobby.JudgeIndex].ID
		judgeID = &id
	}

	for _, p := range lobby.Players {
		if judgeID != nil && p.ID == *judgeID {
			p.Words = []string{}
			continue
		}
		p.Words = e.words.Draw(poolSize)
	}

	lobby.CurrentRound = &models.Round{
		Prompt:             e.words.Prompt(),
		Stage:              models.StageAnswering,
		Submissions:        make(map[int][]string),
		Votes:              make(map[int]int),
		TimeLimit:          int(submissionWindow / time.Second),
		SubmissionDeadline: time.Now().Add(submissionWindow),
		JudgeID:            judgeID,
	}
	lobby.State = models.StateRoundActive
	roundNum := lobby.RoundNumber
	lobby.Mu.Unlock()

	e.log.Infof("lobby %s: round %d started", code, roundNum)

	e.timers.Schedule(code, TimerSubmission, submissionWindow, func() {
		e.submissionDeadline(code, roundNum, onReveal)
	})

	return lobby, nil
}

// submissionDeadline force-reveals when the answering window closes:
// every active player without a submission gets an empty one. The stage
// and round-number guards make a stale firing a no-op.
func (e *Engine) submissionDeadline(code string, roundNum int, onReveal RevealFunc) {
	lobby, ok := e.store.Get(code)
	if !ok {
		return
	}

	lobby.Mu.Lock()
	round := lobby.CurrentRound
	if round == nil || lobby.RoundNumber != roundNum || round.Stage != models.StageAnswering {
		lobby.Mu.Unlock()
		return
	}
	for _, p := range lobby.ActivePlayers() {
		if !round.Submitted(p.ID) {
			round.Submissions[p.ID] = []string{}
		}
	}
	round.Stage = models.StageRevealing
	lobby.Mu.Unlock()

	e.log.Infof("lobby %s: round %d submission deadline, revealing", code, roundNum)
	if onReveal != nil {
		onReveal(lobby)
	}
}

// SubmitAnswer records a player's ordered word selection. Every word must
// be drawable from the player's pool respecting multiplicity: a pool with
// "cat" twice allows "cat" at most twice in the answer. Returns
// allSubmitted=true when this submission was the last one outstanding, in
// which case the stage is already REVEALING and the deadline timer has
// been cancelled.
func (e *Engine) SubmitAnswer(code string, playerID int, answer []string) (*models.Lobby, bool, error) {
	lobby, ok := e.store.Get(code)
	if !ok {
		return nil, false, ErrLobbyNotFound
	}

	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()

	player := lobby.PlayerByID(playerID)
	if player == nil {
		return nil, false, ErrPlayerNotInLobby
	}
	round := lobby.CurrentRound
	if round == nil {
		return nil, false, ErrNoActiveRound
	}
	if round.Stage != models.StageAnswering {
		return nil, false, ErrNotAcceptingAnswers
	}
	if round.JudgeID != nil && playerID == *round.JudgeID {
		return nil, false, ErrJudgeCannotSubmit
	}
	if time.Now().After(round.SubmissionDeadline) {
		// The deadline timer, not this rejection, advances the phase.
		return nil, false, ErrSubmissionTimeExpired
	}
	if round.Submitted(playerID) {
		return nil, false, ErrAlreadySubmitted
	}
	if !drawableFrom(answer, player.Words) {
		return nil, false, ErrInvalidSubmission
	}

	round.Submissions[playerID] = append([]string(nil), answer...)

	if !e.allSubmittedLocked(lobby) {
		return lobby, false, nil
	}

	round.Stage = models.StageRevealing
	e.timers.Cancel(code, TimerSubmission)
	e.log.Infof("lobby %s: all answers in, revealing", code)
	return lobby, true, nil
}

// allSubmittedLocked is computed purely from current submissions state, so
// re-evaluating it without new input yields the same result. The judge is
// never expected to submit. Assumes the lobby lock is held.
func (e *Engine) allSubmittedLocked(lobby *models.Lobby) bool {
	round := lobby.CurrentRound
	for _, p := range lobby.ActivePlayers() {
		if round.JudgeID != nil && p.ID == *round.JudgeID {
			continue
		}
		if !round.Submitted(p.ID) {
			return false
		}
	}
	return true
}

// drawableFrom checks that want can be selected from pool respecting
// multiplicity, not just membership.
func drawableFrom(want, pool []string) bool {
	avail := make(map[string]int, len(pool))
	for _, w := range pool {
		avail[w]++
	}
	for _, w := range want {
		if avail[w] == 0 {
			return false
		}
		avail[w]--
	}
	return true
}

// StartVoting opens the adjudication window: stage VOTING with a vote
// deadline. In peer-vote mode the deadline finalizes with whatever votes
// were cast; in judge mode the same deadline is the judge's pick window
// and expiry picks uniformly at random among the non-empty submissions.
// Any prior voting timer for the lobby is replaced.
func (e *Engine) StartVoting(code string, voteWindow time.Duration, onComplete CompleteFunc) (*models.Lobby, error) {
	lobby, ok := e.store.Get(code)
	if !ok {
		return nil, ErrLobbyOrRoundNotFound
	}

	lobby.Mu.Lock()
	round := lobby.CurrentRound
	if round == nil {
		lobby.Mu.Unlock()
		return nil, ErrLobbyOrRoundNotFound
	}
	round.Stage = models.StageVoting
	round.VoteDeadline = time.Now().Add(voteWindow)
	lobby.State = models.StateVoting
	roundNum := lobby.RoundNumber
	lobby.Mu.Unlock()

	e.timers.Schedule(code, TimerVote, voteWindow, func() {
		e.voteDeadline(code, roundNum, onComplete)
	})

	return lobby, nil
}

// voteDeadline finalizes a round whose adjudication window expired.
func (e *Engine) voteDeadline(code string, roundNum int, onComplete CompleteFunc) {
	lobby, ok := e.store.Get(code)
	if !ok {
		return
	}

	lobby.Mu.Lock()
	round := lobby.CurrentRound
	if round == nil || lobby.RoundNumber != roundNum || round.Stage != models.StageVoting {
		lobby.Mu.Unlock()
		return
	}

	var winnerID *int
	if lobby.Mode == models.ModeJudge {
		winnerID = pickRandomSubmitter(round)
		e.scoreAndAdvanceLocked(lobby, winnerID)
	} else {
		winnerID = e.finalizeVotesLocked(lobby)
	}
	lobby.Mu.Unlock()

	e.log.Infof("lobby %s: round %d vote deadline, finalized", code, roundNum)
	if onComplete != nil {
		onComplete(winnerID, lobby)
	}
}

// SubmitVote records an immutable vote for another player's submission.
// When every eligible voter (active players who submitted a non-empty
// answer) has voted, the round finalizes immediately and the voting timer
// is cancelled.
func (e *Engine) SubmitVote(code string, voterID, submissionID int) (*models.Lobby, VoteResult, error) {
	var none VoteResult

	lobby, ok := e.store.Get(code)
	if !ok {
		return nil, none, ErrLobbyOrRoundNotFound
	}

	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()

	round := lobby.CurrentRound
	if round == nil {
		return nil, none, ErrLobbyOrRoundNotFound
	}
	// Self-votes are rejected regardless of stage or mode.
	if voterID == submissionID {
		return nil, none, ErrCannotVoteForSelf
	}
	if lobby.Mode == models.ModeJudge {
		return nil, none, ErrVotingDisabled
	}
	if round.Stage != models.StageVoting {
		return nil, none, ErrNotInVotingStage
	}
	voter := lobby.PlayerByID(voterID)
	if voter == nil || !voter.Active() {
		return nil, none, ErrVoterNotFound
	}
	if time.Now().After(round.VoteDeadline) {
		return nil, none, ErrVotingTimeExpired
	}
	if _, voted := round.Votes[voterID]; voted {
		return nil, none, ErrAlreadyVoted
	}

	round.Votes[voterID] = submissionID

	if !e.allVotedLocked(lobby) {
		return lobby, VoteResult{}, nil
	}

	e.timers.Cancel(code, TimerVote)
	winnerID := e.finalizeVotesLocked(lobby)
	e.log.Infof("lobby %s: all votes in, finalized", code)
	return lobby, VoteResult{WinnerID: winnerID, AllVoted: true}, nil
}

// allVotedLocked checks completion over the eligible voters: active
// players whose own submission is non-empty. Assumes the lobby lock is
// held.
func (e *Engine) allVotedLocked(lobby *models.Lobby) bool {
	round := lobby.CurrentRound
	for _, p := range lobby.ActivePlayers() {
		if len(round.Submissions[p.ID]) == 0 {
			continue
		}
		if _, voted := round.Votes[p.ID]; !voted {
			return false
		}
	}
	return true
}

// FinalizeWinner is the judge-mode completion path: the judge names the
// winning player directly, bypassing vote tallying. Scoring, rotation and
// termination proceed exactly as the vote path would.
func (e *Engine) FinalizeWinner(code string, winnerID int) (*models.Lobby, error) {
	lobby, ok := e.store.Get(code)
	if !ok {
		return nil, ErrLobbyOrRoundNotFound
	}

	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()

	round := lobby.CurrentRound
	if round == nil {
		return nil, ErrLobbyOrRoundNotFound
	}
	if lobby.Mode != models.ModeJudge {
		return nil, ErrNotJudgeMode
	}
	if round.Stage != models.StageVoting && round.Stage != models.StageRevealing {
		return nil, ErrNotInVotingStage
	}
	if len(round.Submissions[winnerID]) == 0 {
		return nil, ErrInvalidWinner
	}

	e.timers.Cancel(code, TimerVote)
	e.scoreAndAdvanceLocked(lobby, &winnerID)
	return lobby, nil
}

// finalizeVotesLocked tallies votes, breaks ties uniformly at random
// among the tied ids, then scores and advances. nil when no votes were
// cast. Shared by the timeout path and the all-voted path; both converge
// here so whichever fires first wins and the other is a stage-guarded
// no-op. Assumes the lobby lock is held.
func (e *Engine) finalizeVotesLocked(lobby *models.Lobby) *int {
	round := lobby.CurrentRound

	tally := make(map[int]int)
	for _, target := range round.Votes {
		tally[target]++
	}

	var winnerID *int
	maxVotes := -1
	var tied []int
	for id, count := range tally {
		if count > maxVotes {
			maxVotes = count
			tied = tied[:0]
			tied = append(tied, id)
		} else if count == maxVotes {
			tied = append(tied, id)
		}
	}
	if len(tied) > 0 {
		pick := tied[rand.Intn(len(tied))]
		winnerID = &pick
	}

	e.scoreAndAdvanceLocked(lobby, winnerID)
	return winnerID
}

// scoreAndAdvanceLocked awards the point, marks the round COMPLETE,
// checks the win condition and rotates the judge. Round data stays intact
// until the next StartRound overwrites it. Assumes the lobby lock is
// held.
func (e *Engine) scoreAndAdvanceLocked(lobby *models.Lobby, winnerID *int) {
	round := lobby.CurrentRound

	if winnerID != nil {
		if winner := lobby.PlayerByID(*winnerID); winner != nil {
			winner.Score++
		}
	}
	round.Stage = models.StageComplete

	for _, p := range lobby.Players {
		if p.Score >= e.winThreshold {
			lobby.State = models.StateGameEnd
			e.log.Infof("lobby %s: player %d reached %d points, game over", lobby.Code, p.ID, p.Score)
			return
		}
	}

	lobby.State = models.StateRoundEnd
	if lobby.JudgeIndex != nil && len(lobby.Players) > 0 {
		*lobby.JudgeIndex = (*lobby.JudgeIndex + 1) % len(lobby.Players)
	}
}

// pickRandomSubmitter returns a random player id among the non-empty
// submissions, or nil if nobody submitted anything.
func pickRandomSubmitter(round *models.Round) *int {
	var candidates []int
	for id, sub := range round.Submissions {
		if len(sub) > 0 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	pick := candidates[rand.Intn(len(candidates))]
	return &pick
}

// Shutdown cancels all pending deadline timers. Call at process exit or
// in tests to avoid stray callbacks.
func (e *Engine) Shutdown() {
	e.timers.Shutdown()
}
