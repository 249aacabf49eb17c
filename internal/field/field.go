// internal/field/field.go
//
// Population manager for the live word set.
// Responsibilities:
//   - Fetch candidate batches from a Supplier and place them on the field.
//   - Replace the live set (level start, rescan) or merge a top-up into it.
//   - Trim an overcrowded set before a merge, keeping every currently valid
//     word and only the most recent few non-valid words as obstacles.
//   - Remove words exactly once when they are dropped.
//
// Notes:
//   - Manager is not safe for concurrent use; its owner serialises access.
//     Prepare touches only the supplier and placer, so it may run while the
//     owner's lock is released.

package field

import (
	"context"

	"github.com/google/uuid"

	"github.com/robalobadob/semantic-signal/internal/level"
	"github.com/robalobadob/semantic-signal/internal/words"
)

// Defaults for trimming and top-up.
const (
	DefaultMaxWords        = 25
	DefaultKeepObstacles   = 8
	DefaultRefillThreshold = 3
)

// Word is a live, on-screen signal word.
type Word struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Meaningful bool    `json:"isMeaningful"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Rotation   float64 `json:"rotation"`
}

// Classify evaluates w against rules.
func (w Word) Classify(rules level.RuleSet) level.Outcome {
	return level.Classify(w.Text, w.Meaningful, rules)
}

// Supplier produces candidate batches. *words.Supplier satisfies it.
type Supplier interface {
	Batch(ctx context.Context, desired int, cfg level.Config) []words.Candidate
}

// Options tunes a Manager. Zero values take the package defaults;
// a negative KeepObstacles keeps no obstacles at all.
type Options struct {
	MaxWords      int
	KeepObstacles int
	NewID         func() string
}

// Manager owns the live word collection.
type Manager struct {
	supplier Supplier
	placer   *Placer
	opts     Options
	live     []Word
}

// NewManager returns an empty Manager.
func NewManager(supplier Supplier, placer *Placer, opts Options) *Manager {
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}
	if opts.KeepObstacles < 0 {
		opts.KeepObstacles = 0
	} else if opts.KeepObstacles == 0 {
		opts.KeepObstacles = DefaultKeepObstacles
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Manager{supplier: supplier, placer: placer, opts: opts}
}

// Prepare fetches desired candidates for cfg and places them.
// It does not touch the live set.
func (m *Manager) Prepare(ctx context.Context, cfg level.Config, desired int) []Word {
	cands := m.supplier.Batch(ctx, desired, cfg)
	out := make([]Word, 0, len(cands))
	for _, c := range cands {
		x, y, _ := m.placer.Position()
		out = append(out, Word{
			ID:         m.opts.NewID(),
			Text:       c.Text,
			Meaningful: c.Meaningful,
			X:          x,
			Y:          y,
			Rotation:   m.placer.Rotation(),
		})
	}
	return out
}

// Commit installs a prepared batch. With replace the batch becomes the live
// set; otherwise the live set is trimmed if overcrowded and the batch appended.
func (m *Manager) Commit(batch []Word, rules level.RuleSet, replace bool) {
	if replace {
		m.live = append([]Word(nil), batch...)
		return
	}
	if len(m.live) > m.opts.MaxWords {
		m.live = Trim(m.live, rules, m.opts.KeepObstacles)
	}
	m.live = append(m.live, batch...)
}

// Populate runs Prepare and Commit back to back and returns the batch.
func (m *Manager) Populate(ctx context.Context, cfg level.Config, desired int, replace bool) []Word {
	batch := m.Prepare(ctx, cfg, desired)
	m.Commit(batch, cfg.Rules, replace)
	return batch
}

// Trim keeps every word valid under rules plus the last keep non-valid words,
// preserving relative order within each group (valid words first).
func Trim(ws []Word, rules level.RuleSet, keep int) []Word {
	valid := make([]Word, 0, len(ws))
	var others []Word
	for _, w := range ws {
		if w.Classify(rules) == level.OutcomeValid {
			valid = append(valid, w)
		} else {
			others = append(others, w)
		}
	}
	if keep < len(others) {
		others = others[len(others)-keep:]
	}
	return append(valid, others...)
}

// Words returns a copy of the live set.
func (m *Manager) Words() []Word {
	return append([]Word(nil), m.live...)
}

// Len returns the number of live words.
func (m *Manager) Len() int { return len(m.live) }

// Lookup finds a live word by id.
func (m *Manager) Lookup(id string) (Word, bool) {
	for _, w := range m.live {
		if w.ID == id {
			return w, true
		}
	}
	return Word{}, false
}

// Remove deletes a live word by id. ok is false if it was not present.
func (m *Manager) Remove(id string) (Word, bool) {
	for i, w := range m.live {
		if w.ID == id {
			m.live = append(m.live[:i:i], m.live[i+1:]...)
			return w, true
		}
	}
	return Word{}, false
}

// Clear empties the live set.
func (m *Manager) Clear() { m.live = nil }

// ValidCount returns how many live words are valid under rules.
func (m *Manager) ValidCount(rules level.RuleSet) int {
	n := 0
	for _, w := range m.live {
		if w.Classify(rules) == level.OutcomeValid {
			n++
		}
	}
	return n
}

// NeedsRefill reports whether a top-up is due: at most threshold words
// remain, or none of them is valid.
func (m *Manager) NeedsRefill(rules level.RuleSet, threshold int) bool {
	return len(m.live) <= threshold || m.ValidCount(rules) == 0
}
