package store

import (
	"time"

	"github.com/robalobadob/wordle-royale/internal/game"
)

// GameStatus is the lifecycle state of a tournament.
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusActive    GameStatus = "active"
	StatusCompleted GameStatus = "completed"
	StatusCancelled GameStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s GameStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParticipantStatus tracks whether a participant is still playing.
type ParticipantStatus string

const (
	ParticipantActive     ParticipantStatus = "active"
	ParticipantEliminated ParticipantStatus = "eliminated"
	// ParticipantWon is set at completion on every declared winner.
	ParticipantWon ParticipantStatus = "won"
)

// Game is one tournament.
type Game struct {
	ID             int64      `json:"id"`
	Status         GameStatus `json:"status"`
	CurrentRound   int        `json:"currentRound"`
	CurrentWord    string     `json:"-"`
	WinnerID       int64      `json:"winnerId,omitempty"` // 0 when none
	TotalPlayers   int        `json:"totalPlayers"`
	StartsAt       time.Time  `json:"startsAt"`
	RoundStartedAt time.Time  `json:"roundStartedAt,omitempty"` // zero until a round starts
	CreatedAt      time.Time  `json:"createdAt"`
}

// Player is the cross-game identity supplied by the transport.
type Player struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	TotalGames int       `json:"totalGames"`
	Wins       int       `json:"wins"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Participant is a player's entry in one game.
type Participant struct {
	GameID          int64             `json:"gameId"`
	PlayerID        int64             `json:"playerId"`
	Name            string            `json:"name"`
	ChannelID       int64             `json:"channelId"`
	Status          ParticipantStatus `json:"status"`
	EliminatedRound int               `json:"eliminatedRound,omitempty"` // 0 while active
	StatsRecorded   bool              `json:"-"`
	JoinedAt        time.Time         `json:"joinedAt"`
}

// Guess is one append-only guess record.
type Guess struct {
	GameID    int64         `json:"gameId"`
	PlayerID  int64         `json:"playerId"`
	Round     int           `json:"round"`
	Text      string        `json:"text"`
	Feedback  game.Feedback `json:"feedback"`
	Attempt   int           `json:"attempt"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Channel is an origin chat that receives broadcasts.
type Channel struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title,omitempty"`
	Active  bool      `json:"active"`
	AddedAt time.Time `json:"addedAt"`
}

// PlayerStats is the per-player summary shown by /players/{id}/stats.
type PlayerStats struct {
	Player
	GamesParticipated int     `json:"gamesParticipated"`
	WinRate           float64 `json:"winRate"`
	AvgRoundReached   float64 `json:"avgRoundReached"`
}

// LeaderboardRow is one line of the all-time leaderboard.
type LeaderboardRow struct {
	PlayerID        int64   `json:"playerId"`
	Name            string  `json:"name"`
	Wins            int     `json:"wins"`
	TotalGames      int     `json:"totalGames"`
	WinRate         float64 `json:"winRate"`
	AvgRoundReached float64 `json:"avgRoundReached"`
}

// HistoryRow is one past game from a player's point of view.
type HistoryRow struct {
	GameID          int64             `json:"gameId"`
	StartsAt        time.Time         `json:"startsAt"`
	GameStatus      GameStatus        `json:"gameStatus"`
	CurrentRound    int               `json:"currentRound"`
	PlayerStatus    ParticipantStatus `json:"playerStatus"`
	EliminatedRound int               `json:"eliminatedRound,omitempty"`
	Won             bool              `json:"won"`
}

// SystemStats backs the admin statistics view.
type SystemStats struct {
	TotalPlayers   int `json:"totalPlayers"`
	NewThisWeek    int `json:"newThisWeek"`
	GamesCompleted int `json:"gamesCompleted"`
	GamesActive    int `json:"gamesActive"`
}

// reachedRound is the round a participant got to; survivors count as 7.
func reachedRound(p Participant) int {
	if p.EliminatedRound > 0 {
		return p.EliminatedRound
	}
	return game.FinalRound + 1
}

// winRate returns wins as a percentage rounded to one decimal.
func winRate(wins, total int) float64 {
	if total == 0 {
		total = 1
	}
	return float64(int(float64(wins)*1000/float64(total)+0.5)) / 10
}
