package daily

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle-royale/internal/store"
	"github.com/robalobadob/wordle-royale/internal/tournament"
	"github.com/robalobadob/wordle-royale/internal/words"
)

type countingStarter struct{ calls int }

func (c *countingStarter) StartScheduledGame(ctx context.Context) tournament.Result {
	c.calls++
	return tournament.Result{Success: true, GameID: int64(c.calls)}
}

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2026-02-28", DateKey(time.Date(2026, 3, 1, 5, 0, 0, 0, loc)))
}

func TestSpec(t *testing.T) {
	assert.Equal(t, "0 20 * * *", Spec(20, 0))
	assert.Equal(t, "30 9 * * *", Spec(9, 30))
}

func TestSchedulerNext(t *testing.T) {
	d, err := New(&countingStarter{}, 20, 0, zerolog.Nop())
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 19, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC), d.Next(base))
	assert.Equal(t, time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC), d.Next(base.Add(time.Minute)))

	require.NoError(t, d.SetTime(7, 15))
	h, m := d.Time()
	assert.Equal(t, [2]int{7, 15}, [2]int{h, m})
	assert.Equal(t, time.Date(2026, 3, 2, 7, 15, 0, 0, time.UTC), d.Next(base))
	assert.Len(t, d.cron.Entries(), 1)
}

func TestSchedulerRejectsBadTime(t *testing.T) {
	_, err := New(&countingStarter{}, 24, 0, zerolog.Nop())
	assert.Error(t, err)

	d, err := New(&countingStarter{}, 1, 2, zerolog.Nop())
	require.NoError(t, err)
	assert.Error(t, d.SetTime(3, 60))
	h, m := d.Time()
	assert.Equal(t, [2]int{1, 2}, [2]int{h, m})
}

func TestLogLinesCarryOneComponent(t *testing.T) {
	var buf bytes.Buffer
	s := &countingStarter{}
	d, err := New(s, 20, 0, zerolog.New(&buf))
	require.NoError(t, err)
	d.run()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.Equal(t, 1, strings.Count(l, `"component":`), l)
		assert.Contains(t, l, `"component":"daily"`)
	}
}

func TestRunTriggersStarter(t *testing.T) {
	s := &countingStarter{}
	d, err := New(s, 20, 0, zerolog.Nop())
	require.NoError(t, err)
	d.run()
	d.run()
	assert.Equal(t, 2, s.calls)
}

func TestSchedulerWiresIntoEngine(t *testing.T) {
	wl, err := words.New([]string{"HOUSE"}, nil)
	require.NoError(t, err)
	e, err := tournament.New(tournament.Config{
		Store:  store.NewMemoryStore(),
		Words:  wl,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	d, err := New(e, 20, 0, zerolog.Nop())
	require.NoError(t, err)
	e.OnScheduleChange(d.SetTime)

	require.NoError(t, e.SetDailyScheduleTime(6, 45))
	h, m := d.Time()
	assert.Equal(t, [2]int{6, 45}, [2]int{h, m})

	d.run()
	snap := e.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, store.StatusScheduled, snap.Status)

	// A second trigger while a game is pending is refused by the engine.
	d.run()
	assert.Equal(t, snap.GameID, e.Snapshot().GameID)
}
