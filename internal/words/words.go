// internal/words/words.go
//
// Word source for the tournament engine.
//
// Responsibilities:
//   - Load the target pool and the guess dictionary from environment-provided
//     files or fall back to the lists embedded in the assets package.
//   - Pick a random round target (crypto/rand).
//   - Answer dictionary lookups for incoming guesses.
//
// Word Lists:
//   - "answers": curated pool of round targets.
//   - "allowed": the larger dictionary of accepted guesses. Every answer is
//     also accepted so that each round stays solvable.
//
// Environment variables:
//   WORDS_ANSWERS_FILE=/path/to/answers.txt
//   WORDS_ALLOWED_FILE=/path/to/allowed.txt
//
// Constraints:
//   • Words must be 5 alphabetic letters; anything else is dropped.
//   • Lists are normalized to uppercase.

package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"

	"github.com/robalobadob/wordle-royale/assets"
)

// Lists holds a loaded target pool and guess dictionary.
// It is read-only after construction and safe for concurrent use.
type Lists struct {
	answers    []string
	allowedSet map[string]struct{} // allowed ∪ answers
}

// New builds Lists from raw word slices, normalizing and filtering them.
// Returns an error if no valid answer remains.
func New(answers, allowed []string) (*Lists, error) {
	ans := normalize(answers)
	if len(ans) == 0 {
		return nil, errors.New("words: answers list is empty")
	}
	set := toSet(normalize(allowed))
	for _, w := range ans {
		set[w] = struct{}{}
	}
	return &Lists{answers: ans, allowedSet: set}, nil
}

// Load reads the lists named by WORDS_ANSWERS_FILE / WORDS_ALLOWED_FILE,
// using the embedded defaults for whichever is unset.
func Load() (*Lists, error) {
	answers, err := listFrom(os.Getenv("WORDS_ANSWERS_FILE"), assets.AnswersList)
	if err != nil {
		return nil, err
	}
	allowed, err := listFrom(os.Getenv("WORDS_ALLOWED_FILE"), assets.AllowedList)
	if err != nil {
		return nil, err
	}
	return New(answers, allowed)
}

func listFrom(path string, fallback func() ([]string, error)) ([]string, error) {
	if path == "" {
		return fallback()
	}
	return readWordFile(path)
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
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

// normalize uppercases and trims each word, keeping only distinct
// 5-letter alphabetic entries in their original order.
func normalize(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, line := range list {
		w := strings.ToUpper(strings.TrimSpace(line))
		if len(w) != 5 || !isAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// toSet converts a list of strings into a lookup set.
func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

// isAlpha reports whether s is all uppercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// PickTarget returns a cryptographically random word from the target pool.
func (l *Lists) PickTarget() string {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(len(l.answers))))
	if err != nil {
		return l.answers[0]
	}
	return l.answers[nBig.Int64()]
}

// IsAccepted reports whether w may be submitted as a guess.
func (l *Lists) IsAccepted(w string) bool {
	_, ok := l.allowedSet[strings.ToUpper(strings.TrimSpace(w))]
	return ok
}

// IsTarget reports whether w is in the target pool.
func (l *Lists) IsTarget(w string) bool {
	w = strings.ToUpper(strings.TrimSpace(w))
	for _, a := range l.answers {
		if a == w {
			return true
		}
	}
	return false
}

// Stats returns counts of loaded words: (answers, accepted).
func (l *Lists) Stats() (answersCount int, acceptedCount int) {
	return len(l.answers), len(l.allowedSet)
}
