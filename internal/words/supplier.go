// internal/words/supplier.go
//
// Candidate supplier for populate cycles.
//
// A batch of n candidates is split into semantic and noise slots:
//   semantic = max(floor(n * 0.45), 4)
//   noise    = n - semantic (never negative)
//
// Semantic slots are filled in order from:
//   1. the optional remote Source (fail-open: any error yields zero candidates),
//      keeping only meaningful, rule-satisfying, distinct entries;
//   2. shuffled vocabulary words that satisfy the level rules;
//   3. shuffled vocabulary words that violate the rules, so spawning never stalls.
// Noise slots call the NoiseGenerator exactly `noise` times. The batch is
// shuffled before it is returned.

package words

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantic-signal/internal/level"
)

// Semantic share of a batch, in percent, and its floor.
const (
	semanticPercent  = 45
	minSemanticCount = 4
)

// Candidate is a supplier-produced word before it is placed on the field.
type Candidate struct {
	Text       string `json:"text"`
	Meaningful bool   `json:"isMeaningful"`
}

// Source fetches meaningful candidates from an external generator.
// Implementations are best-effort; results may break the hinted rules.
type Source interface {
	FetchCandidates(ctx context.Context, count int, ruleHint level.RuleSet, contextHint string) ([]Candidate, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, count int, ruleHint level.RuleSet, contextHint string) ([]Candidate, error)

// FetchCandidates calls f.
func (f SourceFunc) FetchCandidates(ctx context.Context, count int, ruleHint level.RuleSet, contextHint string) ([]Candidate, error) {
	return f(ctx, count, ruleHint, contextHint)
}

// SplitCounts returns the semantic and noise slot counts for a batch of desired.
func SplitCounts(desired int) (semantic, noise int) {
	semantic = max(desired*semanticPercent/100, minSemanticCount)
	noise = max(desired-semantic, 0)
	return semantic, noise
}

// Supplier merges remote, vocabulary, and noise candidates into batches.
type Supplier struct {
	vocab  *Vocabulary
	noise  NoiseGenerator
	remote Source // optional

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewSupplier builds a Supplier. remote may be nil.
func NewSupplier(vocab *Vocabulary, noise NoiseGenerator, remote Source, rng *rand.Rand) *Supplier {
	return &Supplier{vocab: vocab, noise: noise, remote: remote, rng: rng}
}

// Batch returns up to desired candidates biased toward cfg's rules.
// It never fails; remote errors are logged and replaced by local fallback.
func (s *Supplier) Batch(ctx context.Context, desired int, cfg level.Config) []Candidate {
	if desired <= 0 {
		return nil
	}
	semantic, noise := SplitCounts(desired)
	rules := cfg.Rules

	items := make([]Candidate, 0, semantic+noise)
	seen := make(map[string]struct{}, semantic)
	add := func(text string) {
		items = append(items, Candidate{Text: text, Meaningful: true})
		seen[strings.ToLower(text)] = struct{}{}
	}
	has := func(text string) bool {
		_, ok := seen[strings.ToLower(text)]
		return ok
	}

	if s.remote != nil {
		remote, err := s.remote.FetchCandidates(ctx, semantic, rules, cfg.PromptContext)
		if err != nil {
			log.Warn().Err(err).Int("requested", semantic).Msg("word source failed; using vocabulary")
		}
		for _, c := range remote {
			if len(items) >= semantic {
				break
			}
			text := strings.TrimSpace(c.Text)
			if text == "" || !c.Meaningful || has(text) || !level.Satisfies(text, rules) {
				continue
			}
			add(text)
		}
	}

	shuffled := s.shuffledVocabulary()
	for _, text := range shuffled {
		if len(items) >= semantic {
			break
		}
		if !has(text) && level.Satisfies(text, rules) {
			add(text)
		}
	}

	// Strict rules with a small vocabulary: fill with rule-breaking words.
	for _, text := range shuffled {
		if len(items) >= semantic {
			break
		}
		if !has(text) {
			add(text)
		}
	}
	// Vocabulary smaller than the semantic share: repeat rather than stall.
	for i := 0; len(items) < semantic && len(shuffled) > 0; i++ {
		items = append(items, Candidate{Text: shuffled[i%len(shuffled)], Meaningful: true})
	}

	for i := 0; i < noise; i++ {
		items = append(items, Candidate{Text: s.noise.NoiseToken(), Meaningful: false})
	}

	s.mu.Lock()
	s.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	s.mu.Unlock()
	return items
}

func (s *Supplier) shuffledVocabulary() []string {
	if s.vocab == nil {
		return nil
	}
	list := s.vocab.Words()
	s.mu.Lock()
	s.rng.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
	s.mu.Unlock()
	return list
}
