// Package assets embeds the default word lists shipped with the server.
//
// Both files hold one word per line. Blank lines and "#" comments are
// skipped, and so is any line that is not exactly five ASCII letters.
package assets

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
)

//go:embed allowed.txt answers.txt
var FS embed.FS

const wordLength = 5

// wordList reads an embedded list, uppercased and stripped of malformed
// lines, in file order.
func wordList(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || !fiveLetters(line) {
			continue
		}
		words = append(words, strings.ToUpper(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("assets: read %s: %w", name, err)
	}
	return words, nil
}

func fiveLetters(s string) bool {
	if len(s) != wordLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20 // fold ASCII case
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// AnswersList is the curated pool round targets are drawn from.
func AnswersList() ([]string, error) { return wordList("answers.txt") }

// AllowedList is the larger dictionary of accepted guesses.
func AllowedList() ([]string, error) { return wordList("allowed.txt") }
