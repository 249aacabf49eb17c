// internal/words/words.go
//
// Vocabulary management for the signal supplier.
//
// Responsibilities:
//   - Load the meaningful-word vocabulary from a file or fall back to the
//     embedded default list (assets/vocabulary.txt).
//   - Keep a case-insensitive set for membership checks.
//
// File format:
//   • One word per line; blank lines and lines starting with '#' are skipped.
//   • Words keep their original casing for display; duplicates are dropped
//     case-insensitively.
//   • Entries containing whitespace are rejected (single words only).

package words

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robalobadob/semantic-signal/assets"
)

// ErrEmptyVocabulary is returned when a vocabulary source yields no words.
var ErrEmptyVocabulary = errors.New("words: vocabulary is empty")

// Vocabulary is an immutable list of meaningful words.
type Vocabulary struct {
	list []string
	set  map[string]struct{} // lowercased
}

// NewVocabulary builds a Vocabulary from raw entries.
func NewVocabulary(entries []string) (*Vocabulary, error) {
	v := &Vocabulary{set: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		w := strings.TrimSpace(e)
		if w == "" || strings.ContainsAny(w, " \t") {
			continue
		}
		key := strings.ToLower(w)
		if _, dup := v.set[key]; dup {
			continue
		}
		v.set[key] = struct{}{}
		v.list = append(v.list, w)
	}
	if len(v.list) == 0 {
		return nil, ErrEmptyVocabulary
	}
	return v, nil
}

// Load reads the vocabulary from path, or the embedded default if path is empty.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default()
	}
	entries, err := readWordFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	return NewVocabulary(entries)
}

// Default returns the embedded vocabulary.
func Default() (*Vocabulary, error) {
	entries, err := assets.VocabularyList()
	if err != nil {
		return nil, fmt.Errorf("embedded vocabulary: %w", err)
	}
	return NewVocabulary(entries)
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// Words returns a copy of the vocabulary in load order.
func (v *Vocabulary) Words() []string {
	return append([]string(nil), v.list...)
}

// Len returns the number of distinct words.
func (v *Vocabulary) Len() int { return len(v.list) }

// Contains reports whether w is in the vocabulary (case-insensitive).
func (v *Vocabulary) Contains(w string) bool {
	_, ok := v.set[strings.ToLower(w)]
	return ok
}
