// internal/store/scores.go
//
// Top score and results contract shared by the SQLite and in-memory stores.

package store

import (
	"context"
	"time"

	"github.com/robalobadob/semantic-signal/internal/game"
)

// DefaultLeaderboardLimit applies when a caller passes a non-positive limit.
const DefaultLeaderboardLimit = 20

// LeaderboardRow is one entry of a day's leaderboard.
type LeaderboardRow struct {
	SessionID  string    `json:"sessionId"`
	Mode       string    `json:"mode"`
	Score      int       `json:"score"`
	Level      int       `json:"level"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Scores persists top scores and finished games.
// Both *SQLStore and *MemoryScores satisfy it.
type Scores interface {
	game.ScoreStore
	game.ResultSink

	// Leaderboard returns the best results for date (YYYY-MM-DD), highest
	// score first, earliest finish breaking ties.
	Leaderboard(ctx context.Context, date string, limit int) ([]LeaderboardRow, error)
}

var (
	_ Scores = (*MemoryScores)(nil)
	_ Scores = (*SQLStore)(nil)
)
