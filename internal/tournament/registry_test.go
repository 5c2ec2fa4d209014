package tournament

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle-royale/internal/game"
	"github.com/robalobadob/wordle-royale/internal/store"
)

func TestRegistryJoin(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := NewRegistry(st)
	id, err := st.CreateGame(ctx, time.Now())
	require.NoError(t, err)
	g, err := st.GetGame(ctx, id)
	require.NoError(t, err)

	out, err := reg.Join(ctx, *g, 1, "ann", -5)
	require.NoError(t, err)
	assert.Equal(t, Joined, out)
	out, err = reg.Join(ctx, *g, 1, "ann", -5)
	require.NoError(t, err)
	assert.Equal(t, AlreadyJoined, out)

	g.Status = store.StatusActive
	out, err = reg.Join(ctx, *g, 2, "bo", -5)
	require.NoError(t, err)
	assert.Equal(t, GameNotJoinable, out)

	all, err := reg.All(ctx, id)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegistryRecordGuess(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := NewRegistry(st)
	id, err := st.CreateGame(ctx, time.Now())
	require.NoError(t, err)
	require.NoError(t, st.UpsertPlayer(ctx, 1, "ann"))
	require.NoError(t, st.AddParticipant(ctx, id, 1, 0))
	cfg := game.RoundConfig{Round: 5, MaxAttempts: 2, TimeLimit: time.Minute}

	o, err := reg.RecordGuess(ctx, id, 1, cfg, "CRANE", "HOUSE")
	require.NoError(t, err)
	assert.Equal(t, 1, o.Attempt)
	assert.Equal(t, 1, o.Remaining)

	solved, err := reg.SolvedRound(ctx, id, 1, 5)
	require.NoError(t, err)
	assert.False(t, solved)

	o, err = reg.RecordGuess(ctx, id, 1, cfg, "HOUSE", "HOUSE")
	require.NoError(t, err)
	assert.True(t, o.Feedback.Solved())
	assert.Equal(t, 0, o.Remaining)

	_, err = reg.RecordGuess(ctx, id, 1, cfg, "HOUSE", "HOUSE")
	assert.ErrorIs(t, err, ErrAttemptsExhausted)

	solved, err = reg.SolvedRound(ctx, id, 1, 5)
	require.NoError(t, err)
	assert.True(t, solved)

	_, err = reg.RecordGuess(ctx, id, 42, cfg, "HOUSE", "HOUSE")
	assert.ErrorIs(t, err, ErrNotParticipant)

	changed, err := reg.Eliminate(ctx, id, 1, 5)
	require.NoError(t, err)
	assert.True(t, changed)
	_, err = reg.RecordGuess(ctx, id, 1, game.RoundConfig{Round: 6, MaxAttempts: 1}, "HOUSE", "HOUSE")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestKeyedMutexForgetsIdleKeys(t *testing.T) {
	k := keyedMutex{m: make(map[guessKey]*keyLock)}
	unlockA := k.lock(guessKey{1, 1, 1})
	unlockB := k.lock(guessKey{1, 2, 1})
	assert.Len(t, k.m, 2)
	unlockA()
	unlockB()
	assert.Empty(t, k.m)
}
