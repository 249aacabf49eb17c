// internal/level/classify.go
//
// Word validation against a level's RuleSet.
// Classify is pure: no side effects and no failure modes.
//
// Check order (first applicable outcome wins):
//   1. not meaningful            → noise
//   2. shorter than MinLength    → rule_break
//   3. missing IncludeChar       → rule_break
//   4. containing ExcludeChar    → rule_break
//   5. otherwise                 → valid

package level

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Outcome is the classification of a dropped word.
type Outcome string

const (
	OutcomeValid     Outcome = "valid"
	OutcomeRuleBreak Outcome = "rule_break"
	OutcomeNoise     Outcome = "noise"
)

// Score deltas per outcome.
const (
	ValidPoints     = 10
	RuleBreakPoints = -2
	NoisePoints     = -5
)

// Points returns the score delta for an outcome.
func Points(o Outcome) int {
	switch o {
	case OutcomeValid:
		return ValidPoints
	case OutcomeRuleBreak:
		return RuleBreakPoints
	default:
		return NoisePoints
	}
}

// Classify evaluates a word against rules.
// Non-positive MinLength and empty Include/Exclude strings are treated as absent.
func Classify(text string, meaningful bool, rules RuleSet) Outcome {
	if !meaningful {
		return OutcomeNoise
	}
	if !Satisfies(text, rules) {
		return OutcomeRuleBreak
	}
	return OutcomeValid
}

// Satisfies reports whether text passes every predicate in rules,
// ignoring meaningfulness. Suppliers use it to bias their batches.
func Satisfies(text string, rules RuleSet) bool {
	if rules.MinLength > 0 && utf8.RuneCountInString(text) < rules.MinLength {
		return false
	}
	if rules.IncludeChar == "" && rules.ExcludeChar == "" {
		return true
	}
	folded := fold(text)
	if rules.IncludeChar != "" && !strings.Contains(folded, fold(rules.IncludeChar)) {
		return false
	}
	if rules.ExcludeChar != "" && strings.Contains(folded, fold(rules.ExcludeChar)) {
		return false
	}
	return true
}

// fold applies Unicode case folding. A Caser is stateful, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
