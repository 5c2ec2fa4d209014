// internal/tournament/registry.go
//
// Participant registry: who joined a game, who is still in, and the
// per-round guess log.
//
// Guess recording is serialized per (game, player, round) so the attempt
// count check and the insert act as one step. Different keys never wait
// on each other.

package tournament

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/wordle-royale/internal/game"
	"github.com/robalobadob/wordle-royale/internal/store"
)

// JoinOutcome is the result of a join request.
type JoinOutcome int

const (
	Joined JoinOutcome = iota
	AlreadyJoined
	GameNotJoinable
)

// GuessOutcome is what a recorded guess produced.
type GuessOutcome struct {
	Feedback  game.Feedback
	Attempt   int
	Remaining int
}

// Registry wraps the store with participant rules.
type Registry struct {
	st    store.Store
	locks keyedMutex
}

// NewRegistry returns a registry backed by st.
func NewRegistry(st store.Store) *Registry {
	return &Registry{st: st, locks: keyedMutex{m: make(map[guessKey]*keyLock)}}
}

// Join adds a player to g. Only scheduled games accept players.
func (r *Registry) Join(ctx context.Context, g store.Game, playerID int64, name string, channel int64) (JoinOutcome, error) {
	if g.Status != store.StatusScheduled {
		return GameNotJoinable, nil
	}
	if err := r.st.UpsertPlayer(ctx, playerID, name); err != nil {
		return 0, err
	}
	err := r.st.AddParticipant(ctx, g.ID, playerID, channel)
	if errors.Is(err, store.ErrAlreadyJoined) {
		return AlreadyJoined, nil
	}
	if err != nil {
		return 0, err
	}
	return Joined, nil
}

// Active lists participants still in the game.
func (r *Registry) Active(ctx context.Context, gameID int64) ([]store.Participant, error) {
	return r.st.ListParticipants(ctx, gameID, true)
}

// All lists every participant of the game in join order.
func (r *Registry) All(ctx context.Context, gameID int64) ([]store.Participant, error) {
	return r.st.ListParticipants(ctx, gameID, false)
}

// Eliminate knocks an active participant out at round. It reports false
// when the participant was already out; the stored round is never rewritten.
func (r *Registry) Eliminate(ctx context.Context, gameID, playerID int64, round int) (bool, error) {
	return r.st.MarkEliminated(ctx, gameID, playerID, round)
}

// SolvedRound reports whether any of the player's guesses in round was
// fully correct.
func (r *Registry) SolvedRound(ctx context.Context, gameID, playerID int64, round int) (bool, error) {
	guesses, err := r.st.ListGuesses(ctx, gameID, playerID, round)
	if err != nil {
		return false, err
	}
	for _, g := range guesses {
		if g.Feedback.Solved() {
			return true, nil
		}
	}
	return false, nil
}

// RecordGuess evaluates text against word and appends it to the log with
// the next attempt number. text must already be normalized.
func (r *Registry) RecordGuess(ctx context.Context, gameID, playerID int64, cfg game.RoundConfig, text, word string) (GuessOutcome, error) {
	unlock := r.locks.lock(guessKey{gameID, playerID, cfg.Round})
	defer unlock()

	p, err := r.st.GetParticipant(ctx, gameID, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return GuessOutcome{}, ErrNotParticipant
	}
	if err != nil {
		return GuessOutcome{}, err
	}
	if p.Status != store.ParticipantActive {
		return GuessOutcome{}, ErrNotParticipant
	}

	used, err := r.st.CountGuesses(ctx, gameID, playerID, cfg.Round)
	if err != nil {
		return GuessOutcome{}, err
	}
	if used >= cfg.MaxAttempts {
		return GuessOutcome{}, ErrAttemptsExhausted
	}

	fb, err := game.Evaluate(text, word)
	if err != nil {
		return GuessOutcome{}, err
	}
	attempt := used + 1
	err = r.st.AppendGuess(ctx, store.Guess{
		GameID:   gameID,
		PlayerID: playerID,
		Round:    cfg.Round,
		Text:     text,
		Feedback: fb,
		Attempt:  attempt,
	})
	if errors.Is(err, store.ErrDuplicateAttempt) {
		// Another writer got there first; the log is the source of truth.
		return GuessOutcome{}, ErrAttemptsExhausted
	}
	if err != nil {
		return GuessOutcome{}, err
	}
	return GuessOutcome{Feedback: fb, Attempt: attempt, Remaining: cfg.MaxAttempts - attempt}, nil
}

// ------------------------------ keyed mutex --------------------------------

type guessKey struct {
	game, player int64
	round        int
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu sync.Mutex
	m  map[guessKey]*keyLock
}

func (k *keyedMutex) lock(key guessKey) (unlock func()) {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &keyLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
