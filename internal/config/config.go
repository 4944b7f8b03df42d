// internal/config/config.go
package config

import (
	"os"
	"strconv"

	"github.com/ransomnotes/ransomnotes/internal/models"
)

// Config holds every tunable the server reads, populated from the
// environment once at startup. Nothing is reconfigured mid-game.
type Config struct {
	Port string

	MaxPlayers   int
	MinPlayers   int
	WordPoolSize int

	SubmissionSeconds int
	VoteSeconds       int
	WinThreshold      int

	// Mode applies to every lobby created by this process.
	Mode models.Mode

	// GraceSeconds is the disconnect window before a player is removed.
	GraceSeconds int

	// WordsFile optionally overrides the embedded prompt/word data.
	WordsFile string

	// RedisAddr enables the round-history feed when non-empty.
	RedisAddr string
}

// Load reads the configuration from environment variables, applying
// defaults for anything unset.
func Load() Config {
	mode := models.ModePeerVote
	if getEnv("ADJUDICATION_MODE", "peer") == "judge" {
		mode = models.ModeJudge
	}

	return Config{
		Port:              getEnv("PORT", "8080"),
		MaxPlayers:        getEnvInt("MAX_PLAYERS", 8),
		MinPlayers:        getEnvInt("MIN_PLAYERS", 2),
		WordPoolSize:      getEnvInt("WORD_POOL_SIZE", 15),
		SubmissionSeconds: getEnvInt("SUBMISSION_SECONDS", 90),
		VoteSeconds:       getEnvInt("VOTE_SECONDS", 30),
		WinThreshold:      getEnvInt("WIN_THRESHOLD", 5),
		Mode:              mode,
		GraceSeconds:      getEnvInt("RECONNECT_GRACE_SECONDS", 30),
		WordsFile:         getEnv("WORDS_FILE", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
