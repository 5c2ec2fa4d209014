package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle-royale/internal/game"
)

type storeFactory func(t *testing.T) Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "royale.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, mk := range factories() {
		t.Run(name, func(t *testing.T) { fn(t, mk(t)) })
	}
}

// seedGame creates a game with the given players joined.
func seedGame(t *testing.T, s Store, players ...int64) int64 {
	ctx := context.Background()
	id, err := s.CreateGame(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	for _, p := range players {
		require.NoError(t, s.UpsertPlayer(ctx, p, "p"))
		require.NoError(t, s.AddParticipant(ctx, id, p, -100))
	}
	return id
}

func TestGameLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.CurrentGame(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		start := time.Date(2026, 1, 2, 20, 30, 0, 0, time.UTC)
		id, err := s.CreateGame(ctx, start)
		require.NoError(t, err)

		g, err := s.CurrentGame(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, g.ID)
		assert.Equal(t, StatusScheduled, g.Status)
		assert.Equal(t, 1, g.CurrentRound)
		assert.True(t, g.StartsAt.Equal(start))
		assert.True(t, g.RoundStartedAt.IsZero())

		roundAt := start.Add(time.Minute)
		require.NoError(t, s.UpdateStatus(ctx, id, StatusActive))
		require.NoError(t, s.SetWord(ctx, id, "GHOST"))
		require.NoError(t, s.SetRound(ctx, id, 3, roundAt))
		require.NoError(t, s.SetTotalPlayers(ctx, id, 4))
		require.NoError(t, s.UpsertPlayer(ctx, 9, "nine"))
		require.NoError(t, s.SetWinner(ctx, id, 9))

		g, err = s.GetGame(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, g.Status)
		assert.Equal(t, "GHOST", g.CurrentWord)
		assert.Equal(t, 3, g.CurrentRound)
		assert.True(t, g.RoundStartedAt.Equal(roundAt))
		assert.Equal(t, 4, g.TotalPlayers)
		assert.Equal(t, int64(9), g.WinnerID)

		require.NoError(t, s.UpdateStatus(ctx, id, StatusCompleted))
		_, err = s.CurrentGame(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.GetGame(ctx, 12345)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.UpdateStatus(ctx, 12345, StatusActive), ErrNotFound)
	})
}

func TestCurrentGamePicksLatestStart(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now()
		_, err := s.CreateGame(ctx, now)
		require.NoError(t, err)
		later, err := s.CreateGame(ctx, now.Add(time.Hour))
		require.NoError(t, err)

		g, err := s.CurrentGame(ctx)
		require.NoError(t, err)
		assert.Equal(t, later, g.ID)
	})
}

func TestParticipants(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id := seedGame(t, s, 1, 2, 3)

		require.NoError(t, s.UpsertPlayer(ctx, 2, "two"))
		assert.ErrorIs(t, s.AddParticipant(ctx, id, 2, -100), ErrAlreadyJoined)

		all, err := s.ListParticipants(ctx, id, false)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].PlayerID, all[1].PlayerID, all[2].PlayerID})
		assert.Equal(t, "two", all[1].Name)
		assert.Equal(t, int64(-100), all[1].ChannelID)

		changed, err := s.MarkEliminated(ctx, id, 2, 1)
		require.NoError(t, err)
		assert.True(t, changed)

		// A second elimination never rewrites the round.
		changed, err = s.MarkEliminated(ctx, id, 2, 4)
		require.NoError(t, err)
		assert.False(t, changed)

		p, err := s.GetParticipant(ctx, id, 2)
		require.NoError(t, err)
		assert.Equal(t, ParticipantEliminated, p.Status)
		assert.Equal(t, 1, p.EliminatedRound)

		active, err := s.ListParticipants(ctx, id, true)
		require.NoError(t, err)
		assert.Len(t, active, 2)

		_, err = s.GetParticipant(ctx, id, 99)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.MarkEliminated(ctx, id, 99, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGuessLog(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id := seedGame(t, s, 1)
		fb, err := game.Evaluate("MOUSE", "HOUSE")
		require.NoError(t, err)

		for attempt := 2; attempt >= 1; attempt-- {
			require.NoError(t, s.AppendGuess(ctx, Guess{
				GameID: id, PlayerID: 1, Round: 1, Text: "MOUSE", Feedback: fb, Attempt: attempt,
			}))
		}
		err = s.AppendGuess(ctx, Guess{GameID: id, PlayerID: 1, Round: 1, Text: "HORSE", Feedback: fb, Attempt: 1})
		assert.ErrorIs(t, err, ErrDuplicateAttempt)

		n, err := s.CountGuesses(ctx, id, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = s.CountGuesses(ctx, id, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		list, err := s.ListGuesses(ctx, id, 1, 1)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, 1, list[0].Attempt)
		assert.Equal(t, 2, list[1].Attempt)
		assert.Equal(t, fb, list[0].Feedback)

		// Stored feedback replays identically.
		replay, err := game.Evaluate(list[0].Text, "HOUSE")
		require.NoError(t, err)
		assert.Equal(t, replay, list[0].Feedback)
	})
}

func TestRecordResultOncePerParticipant(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id := seedGame(t, s, 1, 2)

		did, err := s.RecordResult(ctx, id, 1, true)
		require.NoError(t, err)
		assert.True(t, did)
		did, err = s.RecordResult(ctx, id, 1, true)
		require.NoError(t, err)
		assert.False(t, did)
		did, err = s.RecordResult(ctx, id, 2, false)
		require.NoError(t, err)
		assert.True(t, did)

		p1, err := s.GetPlayer(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, p1.TotalGames)
		assert.Equal(t, 1, p1.Wins)
		p2, err := s.GetPlayer(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, p2.TotalGames)
		assert.Equal(t, 0, p2.Wins)

		part, err := s.GetParticipant(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, ParticipantWon, part.Status)

		_, err = s.RecordResult(ctx, id, 77, true)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStatsAndLeaderboard(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id := seedGame(t, s, 1, 2, 3)
		_, err := s.MarkEliminated(ctx, id, 2, 2)
		require.NoError(t, err)
		_, err = s.MarkEliminated(ctx, id, 3, 1)
		require.NoError(t, err)
		require.NoError(t, s.SetWinner(ctx, id, 1))
		for _, pid := range []int64{1, 2, 3} {
			_, err := s.RecordResult(ctx, id, pid, pid == 1)
			require.NoError(t, err)
		}
		require.NoError(t, s.UpdateStatus(ctx, id, StatusCompleted))

		lb, err := s.Leaderboard(ctx, 2)
		require.NoError(t, err)
		require.Len(t, lb, 2)
		assert.Equal(t, int64(1), lb[0].PlayerID)
		assert.Equal(t, 100.0, lb[0].WinRate)
		assert.Equal(t, 7.0, lb[0].AvgRoundReached)
		assert.Equal(t, int64(2), lb[1].PlayerID)
		assert.Equal(t, 2.0, lb[1].AvgRoundReached)

		st, err := s.PlayerStats(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, st.GamesParticipated)
		assert.Equal(t, 0.0, st.WinRate)
		assert.Equal(t, 1.0, st.AvgRoundReached)

		_, err = s.PlayerStats(ctx, 404)
		assert.ErrorIs(t, err, ErrNotFound)

		hist, err := s.PlayerHistory(ctx, 1, 5)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.True(t, hist[0].Won)
		assert.Equal(t, StatusCompleted, hist[0].GameStatus)

		sys, err := s.SystemStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, SystemStats{TotalPlayers: 3, NewThisWeek: 3, GamesCompleted: 1}, sys)
	})
}

func TestChannels(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.RegisterChannel(ctx, -200, "group"))
		require.NoError(t, s.RegisterChannel(ctx, 5, ""))
		require.NoError(t, s.DeactivateChannel(ctx, 5))

		active, err := s.ListChannels(ctx, true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "group", active[0].Title)

		require.NoError(t, s.RegisterChannel(ctx, 5, "dm"))
		active, err = s.ListChannels(ctx, true)
		require.NoError(t, err)
		assert.Len(t, active, 2)

		assert.ErrorIs(t, s.DeactivateChannel(ctx, 999), ErrNotFound)
	})
}

func TestConcurrentAppendKeepsAttemptsUnique(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		id := seedGame(t, s, 1)
		var fb game.Feedback

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.AppendGuess(ctx, Guess{GameID: id, PlayerID: 1, Round: 1, Text: "HOUSE", Feedback: fb, Attempt: 1})
			}()
		}
		wg.Wait()
		close(errs)

		ok := 0
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, ErrDuplicateAttempt)
		}
		assert.Equal(t, 1, ok)
	})
}
