// internal/game/types.go
//
// Core type definitions for the game session.
// Defines:
//   - State:      the session lifecycle state.
//   - Snapshot:   a versioned, read-only copy of session state for presentation.
//   - DropResult: the effect of one resolved drop.
//   - ScoreStore / ResultSink: persistence collaborators injected at construction.

package game

import (
	"context"
	"errors"
	"time"

	"github.com/robalobadob/semantic-signal/internal/field"
	"github.com/robalobadob/semantic-signal/internal/level"
)

// State is the session lifecycle state.
//   - START:            title screen, nothing live.
//   - LOADING:          a populate cycle is in flight; ticks and drops are ignored.
//   - PLAYING:          the clock runs and drops are scored.
//   - LEVEL_TRANSITION: field cleared, waiting to enter the next level.
//   - GAME_OVER:        the clock ran out.
type State string

const (
	StateStart           State = "START"
	StateLoading         State = "LOADING"
	StatePlaying         State = "PLAYING"
	StateLevelTransition State = "LEVEL_TRANSITION"
	StateGameOver        State = "GAME_OVER"
)

// Session modes.
const (
	ModeClassic = "classic"
	ModeDaily   = "daily"
)

var (
	// ErrBusy is returned when a populate cycle is already in flight.
	ErrBusy = errors.New("game: populate already in flight")
	// ErrNotPlaying is returned by operations that need a PLAYING session.
	ErrNotPlaying = errors.New("game: session is not playing")
)

// Snapshot is a copy of session state. Version increases on every mutation.
type Snapshot struct {
	SessionID  string       `json:"sessionId"`
	Mode       string       `json:"mode"`
	Version    uint64       `json:"version"`
	State      State        `json:"state"`
	Score      int          `json:"score"`
	TopScore   int          `json:"topScore"`
	LevelIndex int          `json:"levelIndex"`
	Level      level.Config `json:"level"`
	TimeLeft   int          `json:"timeLeft"`
	Paused     bool         `json:"paused"`
	Words      []field.Word `json:"words"`
}

// DropResult reports a scored drop.
type DropResult struct {
	WordID    string        `json:"wordId"`
	Outcome   level.Outcome `json:"outcome"`
	Delta     int           `json:"delta"` // applied change after clamping at zero
	Score     int           `json:"score"`
	Advancing bool          `json:"advancing"` // a level change is scheduled
	Refilled  bool          `json:"refilled"`  // a top-up ran after the drop
}

// ScoreStore persists the top score.
type ScoreStore interface {
	// LoadTopScore returns the stored top score; ok is false if none exists.
	LoadTopScore(ctx context.Context) (score int, ok bool, err error)
	// SaveTopScore overwrites the stored top score.
	SaveTopScore(ctx context.Context, score int) error
}

// Result is one finished game.
type Result struct {
	GameID     string    `json:"gameId"`
	SessionID  string    `json:"sessionId"`
	Mode       string    `json:"mode"`
	Date       string    `json:"date"` // YYYY-MM-DD, UTC
	Score      int       `json:"score"`
	Level      int       `json:"level"` // display ordinal of the level reached
	FinishedAt time.Time `json:"finishedAt"`
}

// ResultSink records finished games.
type ResultSink interface {
	RecordResult(ctx context.Context, r Result) error
}
