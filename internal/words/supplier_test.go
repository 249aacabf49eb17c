package words

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/robalobadob/semantic-signal/internal/level"
)

type countingNoise struct{ calls int }

func (n *countingNoise) NoiseToken() string {
	n.calls++
	return "0xNOISE"
}

func testRand() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func mustVocab(t *testing.T, entries ...string) *Vocabulary {
	t.Helper()
	v, err := NewVocabulary(entries)
	if err != nil {
		t.Fatalf("vocabulary: %v", err)
	}
	return v
}

func countMeaningful(batch []Candidate) (meaningful, noise int) {
	for _, c := range batch {
		if c.Meaningful {
			meaningful++
		} else {
			noise++
		}
	}
	return meaningful, noise
}

func TestSplitCounts(t *testing.T) {
	cases := []struct{ desired, semantic, noise int }{
		{20, 9, 11},
		{15, 6, 9},
		{8, 4, 4},
		{4, 4, 0},
		{2, 4, 0},
		{100, 45, 55},
	}
	for _, c := range cases {
		s, n := SplitCounts(c.desired)
		if s != c.semantic || n != c.noise {
			t.Errorf("desired %d: expected (%d, %d), got (%d, %d)", c.desired, c.semantic, c.noise, s, n)
		}
	}
}

func TestBatchScenarioD(t *testing.T) {
	noise := &countingNoise{}
	v, _ := Default()
	s := NewSupplier(v, noise, nil, testRand())

	batch := s.Batch(context.Background(), 20, level.Config{})
	meaningful, noisy := countMeaningful(batch)
	if meaningful != 9 || noisy != 11 {
		t.Fatalf("expected 9 meaningful + 11 noise, got %d + %d", meaningful, noisy)
	}
	if noise.calls != 11 {
		t.Fatalf("expected 11 noise generator calls, got %d", noise.calls)
	}
}

func TestBatchPrefersRuleSatisfyingWords(t *testing.T) {
	v := mustVocab(t, "Crystal", "Mirror", "Resonance", "Circuit", "Orbit", "Sun", "Moon", "Atom", "Star")
	s := NewSupplier(v, &countingNoise{}, nil, testRand())
	cfg := level.Config{Rules: level.RuleSet{MinLength: 6, IncludeChar: "r"}}

	batch := s.Batch(context.Background(), 8, cfg)
	valid := 0
	for _, c := range batch {
		if level.Classify(c.Text, c.Meaningful, cfg.Rules) == level.OutcomeValid {
			valid++
		}
	}
	if valid != 4 {
		t.Fatalf("expected all 4 semantic slots to satisfy rules, got %d", valid)
	}
}

func TestBatchFillsWithRuleBreakersWhenStarved(t *testing.T) {
	v := mustVocab(t, "Sun", "Moon", "Star", "Atom", "Cell", "Mind")
	s := NewSupplier(v, &countingNoise{}, nil, testRand())
	cfg := level.Config{Rules: level.RuleSet{MinLength: 10}}

	batch := s.Batch(context.Background(), 20, cfg)
	meaningful, _ := countMeaningful(batch)
	if meaningful != 9 {
		t.Fatalf("expected 9 meaningful words even with impossible rules, got %d", meaningful)
	}
}

func TestBatchRemoteFailureFailsOpen(t *testing.T) {
	remote := SourceFunc(func(ctx context.Context, count int, hint level.RuleSet, hintText string) ([]Candidate, error) {
		return nil, errors.New("service unavailable")
	})
	v, _ := Default()
	s := NewSupplier(v, &countingNoise{}, remote, testRand())

	batch := s.Batch(context.Background(), 20, level.Default[0])
	if len(batch) != 20 {
		t.Fatalf("expected a full batch of 20 after remote failure, got %d", len(batch))
	}
}

func TestBatchRemoteCandidatesAreFiltered(t *testing.T) {
	var gotCount int
	var gotHint string
	remote := SourceFunc(func(ctx context.Context, count int, hint level.RuleSet, hintText string) ([]Candidate, error) {
		gotCount, gotHint = count, hintText
		return []Candidate{
			{Text: "Supernova", Meaningful: true},
			{Text: "supernova", Meaningful: true}, // duplicate
			{Text: "Ray", Meaningful: true},       // too short
			{Text: "Glitch", Meaningful: false},   // not meaningful
			{Text: "Asteroid", Meaningful: true},
		}, nil
	})
	v := mustVocab(t, "Galaxy", "Nebula", "Quantum", "Horizon")
	s := NewSupplier(v, &countingNoise{}, remote, testRand())
	cfg := level.Default[1]

	batch := s.Batch(context.Background(), 8, cfg)
	if gotCount != 4 || gotHint != cfg.PromptContext {
		t.Fatalf("expected remote asked for 4 with level hint, got %d %q", gotCount, gotHint)
	}
	texts := map[string]int{}
	for _, c := range batch {
		if c.Meaningful {
			texts[c.Text]++
		}
	}
	if texts["Supernova"] != 1 || texts["Asteroid"] != 1 {
		t.Fatalf("expected remote words kept once each, got %v", texts)
	}
	if texts["Ray"] != 0 || texts["supernova"] != 0 {
		t.Fatalf("expected filtered remote words dropped, got %v", texts)
	}
}

func TestNoiseTokensAreNonEmpty(t *testing.T) {
	n := NewNoise(testRand())
	for i := 0; i < 200; i++ {
		if tok := n.NoiseToken(); tok == "" {
			t.Fatal("noise token must not be empty")
		}
	}
}
