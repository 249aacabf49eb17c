// internal/level/level.go
//
// Level table for the signal-sorting game.
// Defines:
//   - RuleSet: the per-level filter predicates (length / include / exclude).
//   - Config:  one level's target score, time bonus, rules, and supplier hint.
//   - Table:   the ordered level sequence, consulted only by index.
//
// Notes:
//   - Level is a display ordinal and need not equal index+1.
//   - The last level is endless: reaching its target has no further effect.

package level

// RuleSet is the immutable filter applied to dropped words for one level.
// Zero values mean "unconstrained" on that axis.
type RuleSet struct {
	MinLength   int    `json:"minLength,omitempty"`
	IncludeChar string `json:"includeChar,omitempty"`
	ExcludeChar string `json:"excludeChar,omitempty"`
	Description string `json:"description"` // display only
}

// Config describes a single level.
type Config struct {
	Level         int     `json:"level"`
	Name          string  `json:"name"`
	TargetScore   int     `json:"targetScore"` // cumulative score that unlocks the next level
	Duration      int     `json:"duration"`    // seconds added to the clock on entry
	Rules         RuleSet `json:"rules"`
	PromptContext string  `json:"promptContext,omitempty"`
}

// Table is the ordered level sequence.
type Table []Config

// Default is the shipped campaign.
var Default = Table{
	{
		Level:       1,
		Name:        "CALIBRATION",
		TargetScore: 50,
		Duration:    60,
		Rules:       RuleSet{Description: "ANY meaningful word"},
	},
	{
		Level:         2,
		Name:          "NARROW BAND",
		TargetScore:   120,
		Duration:      45,
		Rules:         RuleSet{MinLength: 5, Description: "Meaningful & Length > 4"},
		PromptContext: "Words must be at least 5 letters long.",
	},
	{
		Level:         3,
		Name:          "COMPLEX FILTER",
		TargetScore:   200,
		Duration:      45,
		Rules:         RuleSet{MinLength: 6, IncludeChar: "r", Description: "Length > 5 & Contains 'R'"},
		PromptContext: "Words must be at least 6 letters long AND contain the letter 'r'.",
	},
	{
		Level:         4,
		Name:          "SILENT MODE",
		TargetScore:   9999,
		Duration:      45,
		Rules:         RuleSet{MinLength: 4, ExcludeChar: "e", Description: "Meaningful & NO letter 'E'"},
		PromptContext: "Words must NOT contain the letter 'e'.",
	},
}

// Len returns the number of levels.
func (t Table) Len() int { return len(t) }

// At returns the level at index i (0-based).
// ok is false if i is out of range.
func (t Table) At(i int) (cfg Config, ok bool) {
	if i < 0 || i >= len(t) {
		return Config{}, false
	}
	return t[i], true
}

// HasNext reports whether a level exists after index i.
func (t Table) HasNext(i int) bool {
	return i >= 0 && i+1 < len(t)
}

// Names returns the level names in order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, c := range t {
		names[i] = c.Name
	}
	return names
}
