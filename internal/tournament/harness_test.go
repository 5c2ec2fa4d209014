package tournament

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle-royale/internal/broadcast"
	"github.com/robalobadob/wordle-royale/internal/store"
)

// ------------------------------- fake clock --------------------------------

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, running every callback that comes due
// in order on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.fired = true
		if next.when.After(c.now) {
			c.now = next.when
		}
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// -------------------------------- recorder ---------------------------------

type recorder struct {
	mu  sync.Mutex
	got []broadcast.Message
}

func (r *recorder) Broadcast(ctx context.Context, m broadcast.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
}

func (r *recorder) messages() []broadcast.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast.Message(nil), r.got...)
}

func (r *recorder) count(k broadcast.Kind) int {
	n := 0
	for _, m := range r.messages() {
		if m.Kind == k {
			n++
		}
	}
	return n
}

func (r *recorder) last(k broadcast.Kind) string {
	msgs := r.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Kind == k {
			return msgs[i].Text
		}
	}
	return ""
}

func (r *recorder) contains(sub string) bool {
	for _, m := range r.messages() {
		if strings.Contains(m.Text, sub) {
			return true
		}
	}
	return false
}

// --------------------------------- words -----------------------------------

type fixedWords struct {
	target  string
	allowed map[string]bool
}

func newFixedWords(target string, extra ...string) *fixedWords {
	w := &fixedWords{target: target, allowed: map[string]bool{target: true}}
	for _, x := range extra {
		w.allowed[x] = true
	}
	return w
}

func (w *fixedWords) PickTarget() string          { return w.target }
func (w *fixedWords) IsAccepted(word string) bool { return w.allowed[word] }

// -------------------------------- harness ----------------------------------

type harness struct {
	t     *testing.T
	ctx   context.Context
	st    store.Store
	clock *fakeClock
	out   *recorder
	e     *Engine
}

var testRetry = RetryPolicy{Attempts: 1, Defer: time.Minute}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		st:    store.NewMemoryStore(),
		clock: newFakeClock(),
		out:   &recorder{},
	}
	h.e = h.engine(h.st)
	return h
}

// engine builds another engine over st sharing the harness clock and recorder.
func (h *harness) engine(st store.Store) *Engine {
	e, err := New(Config{
		Store:       st,
		Words:       newFixedWords("HOUSE", "MOUSE", "HORSE", "CRANE"),
		Broadcaster: h.out,
		Clock:       h.clock,
		Logger:      zerolog.Nop(),
		Retry:       testRetry,
	})
	require.NoError(h.t, err)
	h.t.Cleanup(e.Close)
	return e
}

// open starts registration for one minute and joins the given players.
func (h *harness) open(players ...int64) int64 {
	res := h.e.ForceStartGame(h.ctx, 1)
	require.True(h.t, res.Success, res.Message)
	for _, p := range players {
		r := h.e.JoinGame(h.ctx, p, "player", -100)
		require.True(h.t, r.Success, r.Message)
	}
	return res.GameID
}

// start opens a game with players and closes registration.
func (h *harness) start(players ...int64) int64 {
	id := h.open(players...)
	h.clock.Advance(time.Minute)
	snap := h.e.Snapshot()
	require.NotNil(h.t, snap)
	require.Equal(h.t, store.StatusActive, snap.Status)
	require.True(h.t, snap.RoundOpen)
	return id
}

func (h *harness) guess(player int64, text string) Result {
	return h.e.ProcessGuess(h.ctx, player, text, -100)
}

// endRound runs the clock to the end of the current round.
func (h *harness) endRound() {
	snap := h.e.Snapshot()
	require.NotNil(h.t, snap)
	require.NotNil(h.t, snap.RoundEndsAt)
	h.clock.Advance(snap.RoundEndsAt.Sub(h.clock.Now()))
}

func (h *harness) participant(gameID, playerID int64) store.Participant {
	p, err := h.st.GetParticipant(h.ctx, gameID, playerID)
	require.NoError(h.t, err)
	return *p
}

func (h *harness) game(id int64) store.Game {
	g, err := h.st.GetGame(h.ctx, id)
	require.NoError(h.t, err)
	return *g
}
