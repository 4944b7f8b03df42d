package game

import "errors"

// Caller-facing errors. All are recoverable: the gateway surfaces them
// privately to the requesting connection and the lobby is left untouched
// (operations validate before mutating anything).
var (
	// Not-found class.
	ErrLobbyNotFound        = errors.New("lobby not found")
	ErrPlayerNotInLobby     = errors.New("player not in lobby")
	ErrNoActiveRound        = errors.New("no active round")
	ErrLobbyOrRoundNotFound = errors.New("lobby or round not found")

	// Validation class.
	ErrInvalidNickname      = errors.New("invalid nickname")
	ErrNicknameTaken        = errors.New("nickname already taken in lobby")
	ErrLobbyFull            = errors.New("lobby is full")
	ErrGameInProgress       = errors.New("game already in progress")
	ErrGameEnded            = errors.New("game has ended")
	ErrInvalidSubmission    = errors.New("submission uses words not in your pool")
	ErrAlreadySubmitted     = errors.New("answer already submitted")
	ErrNotAcceptingAnswers  = errors.New("not accepting answers")
	ErrNotInVotingStage     = errors.New("not in voting stage")
	ErrCannotVoteForSelf    = errors.New("cannot vote for your own submission")
	ErrAlreadyVoted         = errors.New("vote already cast")
	ErrVoterNotFound        = errors.New("voter not found or disconnected")
	ErrJudgeCannotSubmit    = errors.New("judge cannot submit an answer")
	ErrVotingDisabled       = errors.New("voting is disabled in judge mode")
	ErrNotJudgeMode         = errors.New("direct winner pick requires judge mode")
	ErrInvalidWinner        = errors.New("winner is not among the round's submissions")

	// Timing class. The deadline timer, not these rejections, drives the
	// phase transition.
	ErrSubmissionTimeExpired = errors.New("submission time expired")
	ErrVotingTimeExpired     = errors.New("voting time expired")

	// Start-game precondition class (checked by the gateway).
	ErrOnlyHostCanStart   = errors.New("only the host can start the game")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrNotAllPlayersReady = errors.New("all players must be ready")
)
