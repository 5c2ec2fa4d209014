package tournament

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimerSetReplaceAndStop(t *testing.T) {
	c := newFakeClock()
	s := newTimerSet(c, zerolog.Nop())
	k := timerKey{GameID: 1, Round: 1, Kind: timerRound}

	var fired []string
	s.arm(k, time.Minute, func() { fired = append(fired, "old") })
	s.arm(k, 2*time.Minute, func() { fired = append(fired, "new") })
	assert.Equal(t, []timerKey{k}, s.pending())

	c.Advance(time.Minute)
	assert.Empty(t, fired)
	c.Advance(time.Minute)
	assert.Equal(t, []string{"new"}, fired)
	assert.Empty(t, s.pending())

	s.arm(k, time.Minute, func() { fired = append(fired, "stopped") })
	s.stop(k)
	c.Advance(time.Hour)
	assert.Equal(t, []string{"new"}, fired)
}

func TestTimerSetClearGame(t *testing.T) {
	c := newFakeClock()
	s := newTimerSet(c, zerolog.Nop())
	s.arm(timerKey{GameID: 1, Kind: timerRegistration}, time.Minute, func() {})
	s.arm(timerKey{GameID: 1, Round: 2, Kind: timerWarning}, time.Minute, func() {})
	s.arm(timerKey{GameID: 2, Round: 1, Kind: timerRound}, time.Minute, func() {})
	s.stopKind(1, timerWarning)
	assert.Len(t, s.pending(), 2)
	s.clearGame(1)
	assert.Equal(t, []timerKey{{GameID: 2, Round: 1, Kind: timerRound}}, s.pending())
	s.clearAll()
	assert.Empty(t, s.pending())
}

func TestTimerCallbackPanicIsContained(t *testing.T) {
	c := newFakeClock()
	s := newTimerSet(c, zerolog.Nop())
	ran := false
	s.arm(timerKey{GameID: 1, Kind: timerNext}, 0, func() { panic("boom") })
	s.arm(timerKey{GameID: 1, Round: 1, Kind: timerNext}, time.Second, func() { ran = true })

	assert.NotPanics(t, func() { c.Advance(time.Second) })
	assert.True(t, ran)
}
