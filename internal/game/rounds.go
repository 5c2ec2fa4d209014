package game

import (
	"errors"
	"fmt"
	"time"
)

// FinalRound is the last round of a tournament.
const FinalRound = 6

// RoundTable is the ordered round configuration, index 0 holding round 1.
type RoundTable [FinalRound]RoundConfig

// DefaultRounds is the stock 6→1 attempt ladder.
var DefaultRounds = RoundTable{
	{Round: 1, MaxAttempts: 6, TimeLimit: 10 * time.Minute},
	{Round: 2, MaxAttempts: 5, TimeLimit: 8 * time.Minute},
	{Round: 3, MaxAttempts: 4, TimeLimit: 7 * time.Minute},
	{Round: 4, MaxAttempts: 3, TimeLimit: 6 * time.Minute},
	{Round: 5, MaxAttempts: 2, TimeLimit: 5 * time.Minute},
	{Round: 6, MaxAttempts: 1, TimeLimit: 5 * time.Minute},
}

// Lookup returns the configuration for round n.
// Out-of-range rounds (0, 7, ...) get round 1's configuration.
func (t RoundTable) Lookup(n int) RoundConfig {
	if n < 1 || n > len(t) {
		return t[0]
	}
	return t[n-1]
}

// Validate checks that rounds are numbered 1..6 with positive limits.
func (t RoundTable) Validate() error {
	for i, c := range t {
		if c.Round != i+1 {
			return fmt.Errorf("round table: entry %d numbered %d", i, c.Round)
		}
		if c.MaxAttempts < 1 {
			return fmt.Errorf("round %d: max attempts must be positive", c.Round)
		}
		if c.TimeLimit <= 0 {
			return errors.New("round table: time limits must be positive")
		}
	}
	return nil
}
