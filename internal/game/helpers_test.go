package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/semantic-signal/internal/field"
	"github.com/robalobadob/semantic-signal/internal/level"
	"github.com/robalobadob/semantic-signal/internal/words"
)

// manualScheduler queues callbacks until the test runs them.
type manualScheduler struct {
	mu      sync.Mutex
	pending []scheduled
}

type scheduled struct {
	d time.Duration
	f func()
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, scheduled{d: d, f: f})
}

func (m *manualScheduler) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// RunNext pops and runs the oldest callback, returning its delay.
func (m *manualScheduler) RunNext(t *testing.T) time.Duration {
	t.Helper()
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		t.Fatal("no scheduled callback to run")
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()
	next.f()
	return next.d
}

// fakeSupplier serves batches from a function; it can block to simulate latency.
type fakeSupplier struct {
	mu      sync.Mutex
	calls   int
	batch   func(call, desired int, cfg level.Config) []words.Candidate
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeSupplier) Batch(ctx context.Context, desired int, cfg level.Config) []words.Candidate {
	f.mu.Lock()
	f.calls++
	call := f.calls
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return f.batch(call, desired, cfg)
}

func (f *fakeSupplier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// repeat returns n candidates with the same text.
func repeat(text string, meaningful bool, n int) []words.Candidate {
	out := make([]words.Candidate, n)
	for i := range out {
		out[i] = words.Candidate{Text: text, Meaningful: meaningful}
	}
	return out
}

// allValid yields "Mirror", which passes every default level's rules.
func allValid() *fakeSupplier {
	return &fakeSupplier{batch: func(call, desired int, cfg level.Config) []words.Candidate {
		return repeat("Mirror", true, desired)
	}}
}

type fakeScores struct {
	mu    sync.Mutex
	top   int
	has   bool
	saves []int
}

func (f *fakeScores) LoadTopScore(ctx context.Context) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.top, f.has, nil
}

func (f *fakeScores) SaveTopScore(ctx context.Context, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.top, f.has = score, true
	f.saves = append(f.saves, score)
	return nil
}

type fakeResults struct {
	mu      sync.Mutex
	results []Result
}

func (f *fakeResults) RecordResult(ctx context.Context, r Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

type harness struct {
	s       *Session
	sched   *manualScheduler
	sup     *fakeSupplier
	scores  *fakeScores
	results *fakeResults
}

func newHarness(t *testing.T, sup *fakeSupplier, levels level.Table) *harness {
	t.Helper()
	return newHarnessWithScores(t, sup, levels, &fakeScores{})
}

// newHarnessWithScores builds a harness whose session persists to scores,
// so several sessions can share one stored record.
func newHarnessWithScores(t *testing.T, sup *fakeSupplier, levels level.Table, scores *fakeScores) *harness {
	t.Helper()
	n := 0
	placer := field.NewPlacer(field.DesktopBounds(1280, 800, 220), rand.New(rand.NewPCG(9, 9)))
	mgr := field.NewManager(sup, placer, field.Options{NewID: func() string {
		n++
		return fmt.Sprintf("w%d", n)
	}})
	h := &harness{sched: &manualScheduler{}, sup: sup, scores: scores, results: &fakeResults{}}
	s, err := New(context.Background(), Options{
		ID:        "test-session",
		Levels:    levels,
		Field:     mgr,
		Receiver:  Receiver{X: 640, Y: 400, HitRadius: 150},
		Scheduler: h.sched,
		Scores:    h.scores,
		Results:   h.results,
		Now:       func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	h.s = s
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
}

// firstWord returns the id of the first live word with the given outcome.
func (h *harness) firstWord(t *testing.T, want level.Outcome) string {
	t.Helper()
	snap := h.s.Snapshot()
	for _, w := range snap.Words {
		if w.Classify(snap.Level.Rules) == want {
			return w.ID
		}
	}
	t.Fatalf("no live %s word among %d", want, len(snap.Words))
	return ""
}

func (h *harness) drop(t *testing.T, id string) DropResult {
	t.Helper()
	res, ok := h.s.ProcessDrop(context.Background(), id)
	if !ok {
		t.Fatalf("drop %s was ignored", id)
	}
	return res
}
