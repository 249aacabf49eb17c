// internal/httpserver/factory.go
//
// Session assembly: each session gets its own supplier, placer and field
// manager. Daily sessions seed every random stream from the UTC date.

package httpserver

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/robalobadob/semantic-signal/internal/config"
	"github.com/robalobadob/semantic-signal/internal/daily"
	"github.com/robalobadob/semantic-signal/internal/field"
	"github.com/robalobadob/semantic-signal/internal/game"
	"github.com/robalobadob/semantic-signal/internal/level"
	"github.com/robalobadob/semantic-signal/internal/store"
	"github.com/robalobadob/semantic-signal/internal/words"
)

// ErrUnknownMode is returned for a session mode other than classic or daily.
var ErrUnknownMode = errors.New("unknown session mode")

// Factory assembles a session with its own supplier, placer and field.
type Factory struct {
	Vocab     *words.Vocabulary
	Levels    level.Table
	Scores    store.Scores // optional
	Remote    words.Source // optional
	DailySalt string
	Field     config.Field
	Game      config.Game
	Scheduler game.Scheduler // nil means wall clock
	Now       func() time.Time
}

// NewSession builds a session in START. Daily sessions share a random
// stream derived from the UTC date; classic sessions are seeded randomly.
func (f *Factory) NewSession(ctx context.Context, mode string) (*game.Session, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	var base *rand.Rand
	switch mode {
	case "", game.ModeClassic:
		mode = game.ModeClassic
		base = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	case game.ModeDaily:
		base = daily.Rand(now(), f.DailySalt)
	default:
		return nil, ErrUnknownMode
	}
	// Each consumer locks its own generator, so each gets its own stream.
	child := func() *rand.Rand { return rand.New(rand.NewPCG(base.Uint64(), base.Uint64())) }

	supplier := words.NewSupplier(f.Vocab, words.NewNoise(child()), f.Remote, child())
	bounds := field.DesktopBounds(f.Field.Width, f.Field.Height, f.Field.ExclusionRadius)
	keep := f.Field.KeepObstacles
	if keep == 0 {
		keep = -1 // explicit zero keeps no obstacles
	}
	manager := field.NewManager(supplier, field.NewPlacer(bounds, child()), field.Options{
		MaxWords:      f.Field.MaxWords,
		KeepObstacles: keep,
	})

	cx, cy := bounds.Center()
	opts := game.Options{
		Mode:            mode,
		Levels:          f.Levels,
		Field:           manager,
		Receiver:        game.Receiver{X: cx, Y: cy, HitRadius: f.Game.HitRadius},
		SpawnCount:      f.Game.SpawnCount,
		RefillThreshold: f.Game.RefillThreshold,
		AdvanceDelay:    f.Game.AdvanceDelay,
		TransitionDelay: f.Game.TransitionDelay,
		Scheduler:       f.Scheduler,
		Now:             now,
	}
	if f.Scores != nil {
		opts.Scores, opts.Results = f.Scores, f.Scores
	}
	return game.New(ctx, opts)
}
