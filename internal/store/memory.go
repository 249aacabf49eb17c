// internal/store/memory.go
//
// In-memory stores.
//   - Store: registry of live *game.Session values keyed by session ID,
//     with last-activity tracking for idle eviction.
//   - MemoryScores: top score, results log and leaderboard kept in process,
//     used by tests and when no database is configured.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robalobadob/semantic-signal/internal/game"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("not found")

// Store holds live game sessions.
type Store interface {
	// Save adds or replaces a session and marks it active.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by ID and marks it active, or returns ErrNotFound.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete drops a session. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Each calls fn for every session. fn may call back into the store.
	Each(fn func(*game.Session))

	// Evict removes and returns every session not saved or fetched within idle.
	Evict(idle time.Duration) []*game.Session

	// Len returns the number of sessions.
	Len() int
}

// entry is a session with its last activity time.
type entry struct {
	session *game.Session
	seen    time.Time
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock is NewMemoryStore with an injected clock for
// activity tracking.
func NewMemoryStoreWithClock(now func() time.Time) Store {
	return &memory{sessions: make(map[string]*entry), now: now}
}

func (m *memory) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = &entry{session: s, seen: m.now()}
	return nil
}

// Get refreshes the entry's activity time.
func (m *memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.seen = m.now()
	return e.session, nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) Each(fn func(*game.Session)) {
	m.mu.RLock()
	list := make([]*game.Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		list = append(list, e.session)
	}
	m.mu.RUnlock()

	for _, s := range list {
		fn(s)
	}
}

func (m *memory) Evict(idle time.Duration) []*game.Session {
	cutoff := m.now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*game.Session
	for id, e := range m.sessions {
		if e.seen.Before(cutoff) {
			out = append(out, e.session)
			delete(m.sessions, id)
		}
	}
	return out
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// MemoryScores is a Scores implementation backed by process memory.
type MemoryScores struct {
	mu      sync.Mutex
	top     int
	hasTop  bool
	results map[string]game.Result // keyed by GameID
}

// NewMemoryScores returns an empty MemoryScores.
func NewMemoryScores() *MemoryScores {
	return &MemoryScores{results: make(map[string]game.Result)}
}

func (m *MemoryScores) LoadTopScore(ctx context.Context) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.top, m.hasTop, nil
}

// SaveTopScore raises the top score to score; a lower score is ignored.
func (m *MemoryScores) SaveTopScore(ctx context.Context, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasTop || score > m.top {
		m.top = score
	}
	m.hasTop = true
	return nil
}

// RecordResult stores r once; a repeated GameID is ignored.
func (m *MemoryScores) RecordResult(ctx context.Context, r game.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.results[r.GameID]; !dup {
		m.results[r.GameID] = r
	}
	return nil
}

func (m *MemoryScores) Leaderboard(ctx context.Context, date string, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	m.mu.Lock()
	var rows []game.Result
	for _, r := range m.results {
		if r.Date == date {
			rows = append(rows, r)
		}
	}
	m.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].FinishedAt.Before(rows[j].FinishedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeaderboardRow{
			SessionID:  r.SessionID,
			Mode:       r.Mode,
			Score:      r.Score,
			Level:      r.Level,
			FinishedAt: r.FinishedAt,
		})
	}
	return out, nil
}
