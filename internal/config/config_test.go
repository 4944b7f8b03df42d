// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ransomnotes/ransomnotes/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 8, cfg.MaxPlayers)
	assert.Equal(t, 2, cfg.MinPlayers)
	assert.Equal(t, 15, cfg.WordPoolSize)
	assert.Equal(t, 90, cfg.SubmissionSeconds)
	assert.Equal(t, 30, cfg.VoteSeconds)
	assert.Equal(t, 5, cfg.WinThreshold)
	assert.Equal(t, models.ModePeerVote, cfg.Mode)
	assert.Equal(t, 30, cfg.GraceSeconds)
	assert.Empty(t, cfg.WordsFile)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_PLAYERS", "12")
	t.Setenv("MIN_PLAYERS", "3")
	t.Setenv("WORD_POOL_SIZE", "20")
	t.Setenv("SUBMISSION_SECONDS", "45")
	t.Setenv("VOTE_SECONDS", "15")
	t.Setenv("WIN_THRESHOLD", "3")
	t.Setenv("ADJUDICATION_MODE", "judge")
	t.Setenv("RECONNECT_GRACE_SECONDS", "10")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 12, cfg.MaxPlayers)
	assert.Equal(t, 3, cfg.MinPlayers)
	assert.Equal(t, 20, cfg.WordPoolSize)
	assert.Equal(t, 45, cfg.SubmissionSeconds)
	assert.Equal(t, 15, cfg.VoteSeconds)
	assert.Equal(t, 3, cfg.WinThreshold)
	assert.Equal(t, models.ModeJudge, cfg.Mode)
	assert.Equal(t, 10, cfg.GraceSeconds)
}

func TestLoadIgnoresMalformedInts(t *testing.T) {
	t.Setenv("MAX_PLAYERS", "lots")
	cfg := Load()
	assert.Equal(t, 8, cfg.MaxPlayers, "non-numeric value falls back to default")
}
