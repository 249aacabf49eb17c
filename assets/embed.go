package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed vocabulary.txt sql/*.sql
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// VocabularyList returns the embedded meaningful-word list in file order.
func VocabularyList() ([]string, error) {
	return readLines("vocabulary.txt")
}

// Migrations returns the embedded SQL migrations rooted at "sql".
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		// Only possible if the embed pattern above changes.
		panic(err)
	}
	return sub
}
