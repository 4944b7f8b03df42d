package models

import "time"

// RoundStage is the phase of the current round. The stage drives which
// round fields are meaningful rather than inferring state from field
// presence.
type RoundStage string

const (
	StageAnswering RoundStage = "ANSWERING"
	StageRevealing RoundStage = "REVEALING"
	StageVoting    RoundStage = "VOTING"
	StageComplete  RoundStage = "COMPLETE"
)

// Round is one prompt-submission-vote-score cycle. It is owned by its
// Lobby and replaced wholesale when the next round starts; clients may
// still read a completed round's submissions until then.
type Round struct {
	Prompt string     `json:"prompt"`
	Stage  RoundStage `json:"stage"`

	// Submissions maps player id to the ordered words of their answer.
	// Order is the player's constructed sentence. Players who never
	// submitted before the deadline get an empty slice.
	Submissions map[int][]string `json:"submissions"`

	// Votes maps voter id to the player id they voted for. Empty in
	// judge mode.
	Votes map[int]int `json:"votes"`

	// TimeLimit is the answering window in seconds, echoed to clients.
	TimeLimit int `json:"timeLimit"`

	SubmissionDeadline time.Time `json:"submissionDeadline"`
	VoteDeadline       time.Time `json:"voteDeadline,omitempty"`

	// JudgeID snapshots the judge for this round in judge mode.
	JudgeID *int `json:"judgeId,omitempty"`
}

// Submitted reports whether the given player has a recorded submission.
func (r *Round) Submitted(playerID int) bool {
	_, ok := r.Submissions[playerID]
	return ok
}
