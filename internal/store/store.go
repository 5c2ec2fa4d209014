// internal/store/store.go
//
// Persistence gateway for the tournament engine.
// Two implementations live in this package:
//   - memory: map-based, RWMutex guarded, lost on restart (tests, dev).
//   - sqlite: durable, sqlx over mattn/go-sqlite3.
//
// Every operation is atomic at the single-record level. RecordResult is the
// only method touching two records and runs in one transaction.

package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyJoined is returned by AddParticipant for a repeat join.
	ErrAlreadyJoined = errors.New("already joined")
	// ErrDuplicateAttempt is returned by AppendGuess when the attempt index
	// is already taken for that (game, player, round).
	ErrDuplicateAttempt = errors.New("duplicate attempt")
)

// Store defines the persistence interface used by the engine and the HTTP layer.
type Store interface {
	// CreateGame inserts a scheduled game whose registration closes at startsAt.
	CreateGame(ctx context.Context, startsAt time.Time) (int64, error)
	GetGame(ctx context.Context, id int64) (*Game, error)
	// CurrentGame returns the most recent active or scheduled game, or ErrNotFound.
	CurrentGame(ctx context.Context) (*Game, error)
	UpdateStatus(ctx context.Context, id int64, status GameStatus) error
	SetWord(ctx context.Context, id int64, word string) error
	// SetRound records the round number and when it started.
	SetRound(ctx context.Context, id int64, round int, startedAt time.Time) error
	SetTotalPlayers(ctx context.Context, id int64, n int) error
	SetWinner(ctx context.Context, id int64, playerID int64) error

	// UpsertPlayer creates the player or refreshes its display name.
	UpsertPlayer(ctx context.Context, id int64, name string) error
	GetPlayer(ctx context.Context, id int64) (*Player, error)

	// AddParticipant returns ErrAlreadyJoined when (game, player) exists.
	AddParticipant(ctx context.Context, gameID, playerID, channelID int64) error
	GetParticipant(ctx context.Context, gameID, playerID int64) (*Participant, error)
	ListParticipants(ctx context.Context, gameID int64, activeOnly bool) ([]Participant, error)
	// MarkEliminated only touches active participants and reports whether
	// the row changed.
	MarkEliminated(ctx context.Context, gameID, playerID int64, round int) (bool, error)
	// RecordResult bumps the player's totals once per participant and
	// reports whether it did so on this call. Winners also move to
	// ParticipantWon.
	RecordResult(ctx context.Context, gameID, playerID int64, won bool) (bool, error)

	AppendGuess(ctx context.Context, g Guess) error
	CountGuesses(ctx context.Context, gameID, playerID int64, round int) (int, error)
	// ListGuesses returns guesses ordered by attempt index.
	ListGuesses(ctx context.Context, gameID, playerID int64, round int) ([]Guess, error)

	RegisterChannel(ctx context.Context, id int64, title string) error
	DeactivateChannel(ctx context.Context, id int64) error
	ListChannels(ctx context.Context, activeOnly bool) ([]Channel, error)

	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
	PlayerStats(ctx context.Context, playerID int64) (*PlayerStats, error)
	PlayerHistory(ctx context.Context, playerID int64, limit int) ([]HistoryRow, error)
	SystemStats(ctx context.Context) (SystemStats, error)

	Close() error
}
