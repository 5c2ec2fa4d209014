// internal/game/types.go
//
// Core type definitions for the tournament word game.
// Defines:
//   - Status: per-letter result of a guess (correct/present/absent).
//   - Feedback: the five statuses for one guess.
//   - RoundConfig / RoundTable: attempt budget and time limit per round.

package game

import (
	"strings"
	"time"
)

// WordLength is the fixed number of letters in targets and guesses.
const WordLength = 5

// Status represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "correct": letter is in the target at this position.
//   - "present": letter is in the target at another, unconsumed position.
//   - "absent":  no unconsumed occurrence of the letter remains.
type Status string

const (
	StatusCorrect Status = "correct"
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// Feedback is the per-letter classification of one guess.
type Feedback [WordLength]Status

// Solved reports whether every letter is correct.
func (f Feedback) Solved() bool {
	for _, s := range f {
		if s != StatusCorrect {
			return false
		}
	}
	return true
}

// Emoji renders the feedback as a row of colored squares.
func (f Feedback) Emoji() string {
	var b strings.Builder
	for _, s := range f {
		switch s {
		case StatusCorrect:
			b.WriteString("🟩")
		case StatusPresent:
			b.WriteString("🟨")
		default:
			b.WriteString("⬜")
		}
	}
	return b.String()
}

// Strings returns the statuses as plain strings, in order.
func (f Feedback) Strings() []string {
	out := make([]string, len(f))
	for i, s := range f {
		out[i] = string(s)
	}
	return out
}

// RoundConfig holds the limits for a single elimination round.
type RoundConfig struct {
	Round       int           `json:"round"`
	MaxAttempts int           `json:"maxAttempts"`
	TimeLimit   time.Duration `json:"timeLimit"`
}
