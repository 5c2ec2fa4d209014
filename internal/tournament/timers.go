// internal/tournament/timers.go
//
// Scheduled callbacks for the state machine.
//
// Every pending callback lives in a map keyed by (game, round, kind) so it
// can be found and stopped on cancellation, re-armed after a failed
// transition, or replaced when a new round begins. Callbacks recover from
// panics and log them; a panicking callback never takes the process down.

package tournament

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clock abstracts time so the engine can be driven by a fake in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time                            { return time.Now().UTC() }
func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

type timerKind string

const (
	timerRegistration timerKind = "registration" // registration closes, game starts
	timerRound        timerKind = "round"        // round deadline
	timerWarning      timerKind = "warning"      // two minutes left
	timerNext         timerKind = "next"         // start of the round named in the key
	timerFinish       timerKind = "finish"       // retry of a failed completion
)

type timerKey struct {
	GameID int64
	Round  int
	Kind   timerKind
}

type armed struct {
	t   Timer
	gen uint64
}

// timerSet is the keyed map of pending callbacks.
type timerSet struct {
	mu    sync.Mutex
	clock Clock
	gen   uint64
	m     map[timerKey]armed
	log   zerolog.Logger
}

func newTimerSet(c Clock, logger zerolog.Logger) *timerSet {
	return &timerSet{clock: c, m: make(map[timerKey]armed), log: logger}
}

// arm schedules fn after d under key k, replacing whatever k held.
func (s *timerSet) arm(k timerKey, d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.m[k]; ok {
		old.t.Stop()
	}
	s.gen++
	gen := s.gen
	t := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if cur, ok := s.m[k]; ok && cur.gen == gen {
			delete(s.m, k)
		}
		s.mu.Unlock()

		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Int64("gameId", k.GameID).
					Int("round", k.Round).Str("timer", string(k.Kind)).Msg("timer callback panicked")
			}
		}()
		fn()
	})
	s.m[k] = armed{t: t, gen: gen}
}

// stop cancels the callback under k, if any.
func (s *timerSet) stop(k timerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.m[k]; ok {
		a.t.Stop()
		delete(s.m, k)
	}
}

// stopKind cancels every callback of one kind for a game.
func (s *timerSet) stopKind(gameID int64, kind timerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.m {
		if k.GameID == gameID && k.Kind == kind {
			a.t.Stop()
			delete(s.m, k)
		}
	}
}

// clearGame cancels every callback belonging to a game.
func (s *timerSet) clearGame(gameID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.m {
		if k.GameID == gameID {
			a.t.Stop()
			delete(s.m, k)
		}
	}
}

// pending lists the armed keys in a stable order.
func (s *timerSet) pending() []timerKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]timerKey, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GameID != b.GameID {
			return a.GameID < b.GameID
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.Kind < b.Kind
	})
	return out
}

// clearAll cancels every pending callback.
func (s *timerSet) clearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.m {
		a.t.Stop()
		delete(s.m, k)
	}
}
