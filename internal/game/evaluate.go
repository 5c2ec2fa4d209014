// internal/game/evaluate.go
//
// Guess evaluation for the tournament.
// Responsibilities:
//   - Normalize and validate guesses (exactly 5 ASCII letters).
//   - Score guesses with the two-pass, consume-on-first-match algorithm.
//
// Notes:
//   - Evaluate is pure; replaying it on stored (guess, word) pairs
//     reproduces the stored feedback.
package game

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned when a guess or target is not 5 letters.
var ErrInvalidInput = errors.New("invalid input: want exactly 5 letters")

// Normalize checks that w is exactly 5 ASCII letters and uppercases it.
// Surrounding whitespace is not removed.
func Normalize(w string) (string, error) {
	if len(w) != WordLength || !isASCIILetters(w) {
		return "", fmt.Errorf("%q: %w", w, ErrInvalidInput)
	}
	return strings.ToUpper(w), nil
}

// Evaluate compares guess against target.
//
// Pass 1:
//   - Mark exact matches as correct and consume those target positions.
//
// Pass 2:
//   - For each remaining guess position, left to right, scan the target
//     left to right and consume the first unconsumed equal letter
//     (present). With no such letter the position is absent.
//
// Duplicate letters in the guess are never credited beyond the number of
// matching letters still left in the target.
func Evaluate(guess, target string) (Feedback, error) {
	var fb Feedback
	g, err := Normalize(guess)
	if err != nil {
		return fb, err
	}
	t, err := Normalize(target)
	if err != nil {
		return fb, err
	}

	var consumed [WordLength]bool
	for i := 0; i < WordLength; i++ {
		if g[i] == t[i] {
			fb[i] = StatusCorrect
			consumed[i] = true
		}
	}

	for i := 0; i < WordLength; i++ {
		if fb[i] == StatusCorrect {
			continue
		}
		fb[i] = StatusAbsent
		for j := 0; j < WordLength; j++ {
			if !consumed[j] && g[i] == t[j] {
				fb[i] = StatusPresent
				consumed[j] = true
				break
			}
		}
	}
	return fb, nil
}

// isASCIILetters reports whether s is only ASCII letters of either case.
func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
