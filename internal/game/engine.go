// internal/game/engine.go
//
// Scoring and progression state machine for a single player session.
// Responsibilities:
//   - Lifecycle: start/restart, quit, timer ticks, game over.
//   - Score drops against the current level's rules (+10 / -2 / -5, floor 0).
//   - Schedule level advancement once the target score is reached.
//   - Trigger top-ups so the field never runs dry of valid targets.
//   - Persist a new top score exactly once per finished game.
//
// Concurrency:
//   - mu guards all session state; it is never held across a supplier call.
//   - populating (weight 1) allows at most one populate cycle in flight.
//   - epoch changes on every start, quit, level transition and game over;
//     populate completions and scheduled callbacks carrying an older epoch
//     are discarded.
//   - A session in LOADING ignores ticks and drops. A paused session ignores
//     both as well; its clock resumes where it stopped.

package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/robalobadob/semantic-signal/internal/daily"
	"github.com/robalobadob/semantic-signal/internal/field"
	"github.com/robalobadob/semantic-signal/internal/level"
)

const (
	defaultSpawnCount      = 20
	defaultAdvanceDelay    = 500 * time.Millisecond
	defaultTransitionDelay = 2 * time.Second
)

// Options configures a Session. Field is required; other zero values take defaults.
type Options struct {
	ID              string
	Mode            string
	Levels          level.Table
	Field           *field.Manager
	Receiver        Receiver
	SpawnCount      int
	RefillThreshold int
	AdvanceDelay    time.Duration // score display before the transition starts
	TransitionDelay time.Duration // level banner before the next level loads
	Scheduler       Scheduler
	Scores          ScoreStore // optional
	Results         ResultSink // optional
	Now             func() time.Time
}

// Session is one player's game.
type Session struct {
	id              string
	mode            string
	levels          level.Table
	field           *field.Manager
	receiver        Receiver
	spawnCount      int
	refillThreshold int
	advanceDelay    time.Duration
	transitionDelay time.Duration
	sched           Scheduler
	scores          ScoreStore
	results         ResultSink
	now             func() time.Time
	populating      *semaphore.Weighted

	mu             sync.Mutex
	state          State
	score          int
	topScore       int
	levelIndex     int
	timeLeft       int
	paused         bool
	advancePending bool
	epoch          uint64
	version        uint64
	gameID         string
}

// finishing carries the persistence work of a game over out of the lock.
type finishing struct {
	newTop bool
	result Result
}

// New builds a session in START and loads the persisted top score.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Field == nil {
		return nil, errors.New("game: field manager is required")
	}
	if opts.Levels == nil {
		opts.Levels = level.Default
	}
	if opts.Levels.Len() == 0 {
		return nil, errors.New("game: level table is empty")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Mode == "" {
		opts.Mode = ModeClassic
	}
	if opts.SpawnCount <= 0 {
		opts.SpawnCount = defaultSpawnCount
	}
	if opts.RefillThreshold <= 0 {
		opts.RefillThreshold = field.DefaultRefillThreshold
	}
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = defaultAdvanceDelay
	}
	if opts.TransitionDelay <= 0 {
		opts.TransitionDelay = defaultTransitionDelay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = WallClock
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		id:              opts.ID,
		mode:            opts.Mode,
		levels:          opts.Levels,
		field:           opts.Field,
		receiver:        opts.Receiver,
		spawnCount:      opts.SpawnCount,
		refillThreshold: opts.RefillThreshold,
		advanceDelay:    opts.AdvanceDelay,
		transitionDelay: opts.TransitionDelay,
		sched:           opts.Scheduler,
		scores:          opts.Scores,
		results:         opts.Results,
		now:             opts.Now,
		populating:      semaphore.NewWeighted(1),
		state:           StateStart,
	}
	s.topScore = s.loadTopScore(ctx)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Mode returns the session mode ("classic" or "daily").
func (s *Session) Mode() string { return s.mode }

// loadTopScore reads the persisted top score; failures count as zero.
func (s *Session) loadTopScore(ctx context.Context) int {
	if s.scores == nil {
		return 0
	}
	top, ok, err := s.scores.LoadTopScore(ctx)
	if err != nil {
		log.Warn().Err(err).Str("session", s.id).Msg("load top score")
		return 0
	}
	if !ok {
		return 0
	}
	return top
}

// touch marks a mutation. Callers hold mu.
func (s *Session) touch() { s.version++ }

// Start resets the session to level 0 and populates the field.
// It waits for any populate still in flight from an earlier game.
func (s *Session) Start(ctx context.Context) error {
	top := s.loadTopScore(ctx)
	if err := s.populating.Acquire(ctx, 1); err != nil {
		return err
	}

	s.mu.Lock()
	s.epoch++
	s.state = StateLoading
	s.score = 0
	s.levelIndex = 0
	s.timeLeft = s.levels[0].Duration
	s.topScore = max(s.topScore, top)
	s.paused = false
	s.advancePending = false
	s.gameID = uuid.NewString()
	s.field.Clear()
	s.touch()
	epoch, cfg := s.epoch, s.levels[0]
	s.mu.Unlock()

	log.Info().Str("session", s.id).Str("mode", s.mode).Msg("game started")
	s.populate(ctx, epoch, cfg, true)
	return nil
}

// Restart is Start from any state.
func (s *Session) Restart(ctx context.Context) error { return s.Start(ctx) }

// Quit abandons the game and returns to START. Anything already persisted stays.
func (s *Session) Quit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = StateStart
	s.score = 0
	s.levelIndex = 0
	s.timeLeft = 0
	s.paused = false
	s.advancePending = false
	s.field.Clear()
	s.touch()
	log.Info().Str("session", s.id).Msg("game quit")
}

// Pause suspends the clock and drop handling (a modal overlay is open).
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		s.paused = true
		s.touch()
	}
}

// Resume undoes Pause.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.paused = false
		s.touch()
	}
}

// Tick advances the clock by one second. It reports whether the tick ended the game.
func (s *Session) Tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != StatePlaying || s.paused {
		s.mu.Unlock()
		return false
	}
	if s.timeLeft > 0 {
		s.timeLeft--
	}
	if s.timeLeft > 0 {
		s.touch()
		s.mu.Unlock()
		return false
	}
	fin := s.finishLocked()
	s.mu.Unlock()

	s.commitFinish(ctx, fin)
	return true
}

// Finish ends the current game immediately. It is a no-op in START and GAME_OVER.
func (s *Session) Finish(ctx context.Context) bool {
	s.mu.Lock()
	if s.state == StateStart || s.state == StateGameOver {
		s.mu.Unlock()
		return false
	}
	fin := s.finishLocked()
	s.mu.Unlock()

	s.commitFinish(ctx, fin)
	return true
}

// finishLocked enters GAME_OVER. Callers hold mu.
func (s *Session) finishLocked() finishing {
	s.epoch++
	s.state = StateGameOver
	s.timeLeft = 0
	s.advancePending = false
	s.paused = false

	fin := finishing{result: Result{
		GameID:     s.gameID,
		SessionID:  s.id,
		Mode:       s.mode,
		Date:       daily.DateKey(s.now()),
		Score:      s.score,
		Level:      s.levels[s.levelIndex].Level,
		FinishedAt: s.now().UTC(),
	}}
	if s.score > s.topScore {
		s.topScore = s.score
		fin.newTop = true
	}
	s.touch()
	return fin
}

// commitFinish persists a finished game. Failures are logged, never surfaced.
func (s *Session) commitFinish(ctx context.Context, fin finishing) {
	log.Info().Str("session", s.id).Int("score", fin.result.Score).Int("level", fin.result.Level).
		Bool("newTop", fin.newTop).Msg("game over")

	if fin.newTop && s.scores != nil {
		// Other sessions share the stored record; only a higher score replaces it.
		if stored := s.loadTopScore(ctx); stored >= fin.result.Score {
			s.mu.Lock()
			s.topScore = max(s.topScore, stored)
			s.touch()
			s.mu.Unlock()
		} else if err := s.scores.SaveTopScore(ctx, fin.result.Score); err != nil {
			log.Warn().Err(err).Str("session", s.id).Msg("save top score")
		}
	}
	if s.results != nil {
		if err := s.results.RecordResult(ctx, fin.result); err != nil {
			log.Warn().Err(err).Str("session", s.id).Msg("record result")
		}
	}
}

// ProcessDrop scores the live word id against the current level and applies
// the top-up policy. ok is false if the drop was ignored: the session is not
// playing, is paused, or the word is no longer live.
func (s *Session) ProcessDrop(ctx context.Context, id string) (res DropResult, ok bool) {
	s.mu.Lock()
	if s.state != StatePlaying || s.paused {
		s.mu.Unlock()
		return DropResult{}, false
	}
	w, found := s.field.Remove(id)
	if !found {
		s.mu.Unlock()
		return DropResult{}, false
	}

	cfg := s.levels[s.levelIndex]
	outcome := w.Classify(cfg.Rules)
	before := s.score
	s.score = max(0, s.score+level.Points(outcome))
	res = DropResult{WordID: id, Outcome: outcome, Delta: s.score - before, Score: s.score}

	if outcome == level.OutcomeValid && s.score >= cfg.TargetScore &&
		s.levels.HasNext(s.levelIndex) && !s.advancePending {
		s.advancePending = true
		epoch := s.epoch
		s.sched.AfterFunc(s.advanceDelay, func() { s.advanceFrom(epoch) })
		log.Info().Str("session", s.id).Int("score", s.score).Int("target", cfg.TargetScore).Msg("level target reached")
	}
	res.Advancing = s.advancePending

	refill := !s.advancePending &&
		s.field.NeedsRefill(cfg.Rules, s.refillThreshold) &&
		s.populating.TryAcquire(1)
	if refill {
		s.state = StateLoading
	}
	epoch := s.epoch
	s.touch()
	s.mu.Unlock()

	if refill {
		res.Refilled = s.populate(ctx, epoch, cfg, false)
	}
	return res, true
}

// AdvanceLevel starts the transition to the next level. It is a no-op
// (returning false) unless the session is playing and a next level exists.
func (s *Session) AdvanceLevel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying || !s.levels.HasNext(s.levelIndex) {
		return false
	}
	s.beginAdvanceLocked()
	return true
}

// advanceFrom is the scheduled follow-up of a target-reaching drop.
func (s *Session) advanceFrom(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.state != StatePlaying || !s.advancePending {
		return
	}
	s.beginAdvanceLocked()
}

// beginAdvanceLocked enters LEVEL_TRANSITION. Callers hold mu and have
// checked that a next level exists.
func (s *Session) beginAdvanceLocked() {
	s.advancePending = false
	s.epoch++
	s.state = StateLevelTransition
	s.field.Clear()
	s.touch()
	epoch := s.epoch
	s.sched.AfterFunc(s.transitionDelay, func() { s.enterNextLevel(epoch) })
}

// enterNextLevel moves to the next level, adds its time bonus and repopulates.
func (s *Session) enterNextLevel(epoch uint64) {
	ctx := context.Background()
	if err := s.populating.Acquire(ctx, 1); err != nil {
		return
	}

	s.mu.Lock()
	if s.epoch != epoch || s.state != StateLevelTransition || !s.levels.HasNext(s.levelIndex) {
		s.mu.Unlock()
		s.populating.Release(1)
		return
	}
	s.levelIndex++
	cfg := s.levels[s.levelIndex]
	s.timeLeft += cfg.Duration
	s.state = StateLoading
	s.touch()
	s.mu.Unlock()

	log.Info().Str("session", s.id).Int("level", cfg.Level).Str("name", cfg.Name).Msg("level advanced")
	s.populate(ctx, epoch, cfg, true)
}

// RequestRescan replaces the field for the current level without touching
// score, level or clock.
func (s *Session) RequestRescan(ctx context.Context) error {
	if !s.populating.TryAcquire(1) {
		return ErrBusy
	}
	s.mu.Lock()
	if s.state != StatePlaying || s.advancePending {
		s.mu.Unlock()
		s.populating.Release(1)
		return ErrNotPlaying
	}
	s.state = StateLoading
	s.touch()
	epoch, cfg := s.epoch, s.levels[s.levelIndex]
	s.mu.Unlock()

	s.populate(ctx, epoch, cfg, true)
	return nil
}

// populate runs one populate cycle. The caller holds the populate semaphore
// and has put the session in LOADING; populate releases the semaphore.
// It reports whether the batch was committed.
func (s *Session) populate(ctx context.Context, epoch uint64, cfg level.Config, replace bool) bool {
	batch := s.field.Prepare(ctx, cfg, s.spawnCount)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Released under mu: a drop that sees PLAYING can always start a top-up.
	s.populating.Release(1)
	if s.epoch != epoch || s.state != StateLoading {
		log.Debug().Str("session", s.id).Msg("discarding stale populate")
		return false
	}
	s.field.Commit(batch, cfg.Rules, replace)
	s.state = StatePlaying
	s.touch()
	return true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID:  s.id,
		Mode:       s.mode,
		Version:    s.version,
		State:      s.state,
		Score:      s.score,
		TopScore:   s.topScore,
		LevelIndex: s.levelIndex,
		Level:      s.levels[s.levelIndex],
		TimeLeft:   s.timeLeft,
		Paused:     s.paused,
		Words:      s.field.Words(),
	}
}

// Version returns the mutation counter without copying the field.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
