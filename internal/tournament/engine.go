// internal/tournament/engine.go
//
// Tournament state machine.
//
// Lifecycle:
//   scheduled --(registration timer / StartNow)--> active --> rounds 1..6 --> completed
//   scheduled|active --(CancelCurrentGame)--> cancelled
//
// Concurrency:
//   - tx serializes transitions (timer callbacks and admin actions).
//   - mu guards the current-game snapshot and settings. Guess and join
//     handling hold the read lock for their whole duration, so a round
//     end (write lock) waits for in-flight guesses and then closes the
//     round; later guesses are rejected.
//   - Guess recording is additionally serialized per (game, player, round)
//     inside the Registry.
//
// Failure handling:
//   - Critical writes are retried (RetryPolicy). When they still fail the
//     transition's timer is re-armed and the step runs again later. Every
//     step is safe to repeat.

package tournament

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/wordle-royale/internal/broadcast"
	"github.com/robalobadob/wordle-royale/internal/game"
	"github.com/robalobadob/wordle-royale/internal/store"
)

const warningLead = 2 * time.Minute

// Words is the word source the engine draws from.
type Words interface {
	PickTarget() string
	IsAccepted(word string) bool
}

// Settings are the admin-tunable knobs.
type Settings struct {
	RegistrationMinutes int             `json:"registrationMinutes"`
	Prize               int             `json:"prize"`
	RoundPause          time.Duration   `json:"roundPause"`
	ScheduleHour        int             `json:"scheduleHour"`
	ScheduleMinute      int             `json:"scheduleMinute"`
	Rounds              game.RoundTable `json:"rounds"`
}

// DefaultSettings: 30 minute registration, $100, 30s pause, 20:00 UTC.
func DefaultSettings() Settings {
	return Settings{
		RegistrationMinutes: 30,
		Prize:               100,
		RoundPause:          30 * time.Second,
		ScheduleHour:        20,
		ScheduleMinute:      0,
		Rounds:              game.DefaultRounds,
	}
}

func (s Settings) validate() error {
	if s.RegistrationMinutes < 1 || s.RegistrationMinutes > 120 {
		return fmt.Errorf("%w: registration must be 1-120 minutes", ErrInvalidSetting)
	}
	if s.Prize < 0 || s.Prize > 10000 {
		return fmt.Errorf("%w: prize must be 0-10000", ErrInvalidSetting)
	}
	if s.RoundPause < 0 {
		return fmt.Errorf("%w: negative round pause", ErrInvalidSetting)
	}
	if err := validClock(s.ScheduleHour, s.ScheduleMinute); err != nil {
		return err
	}
	if err := s.Rounds.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	return nil
}

func validClock(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: hour must be 0-23 and minute 0-59", ErrInvalidSetting)
	}
	return nil
}

// Config wires an Engine to its collaborators.
type Config struct {
	Store       store.Store
	Words       Words
	Broadcaster broadcast.Broadcaster // announcements; nil discards them
	Clock       Clock                 // nil means RealClock
	Logger      zerolog.Logger
	Settings    Settings    // zero value means DefaultSettings()
	Retry       RetryPolicy // zero value means DefaultRetry
}

// Result is what callers of the engine surface get back.
type Result struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	GameID    int64          `json:"gameId,omitempty"`
	Feedback  *game.Feedback `json:"feedback,omitempty"`
	Remaining int            `json:"remaining,omitempty"`
	Solved    bool           `json:"solved,omitempty"`

	// Err is the reason for a refusal, matchable with errors.Is. Nil for
	// successes and internal failures.
	Err error `json:"-"`
}

func ok(msg string) Result   { return Result{Success: true, Message: msg} }
func fail(msg string) Result { return Result{Message: msg} }

func refuse(err error, msg string) Result { return Result{Message: msg, Err: err} }

// Snapshot is a read-only copy of the current game state.
type Snapshot struct {
	GameID       int64            `json:"gameId"`
	Status       store.GameStatus `json:"status"`
	Round        int              `json:"round"`
	RoundOpen    bool             `json:"roundOpen"`
	TotalPlayers int              `json:"totalPlayers"`
	StartsAt     time.Time        `json:"startsAt"`
	RoundEndsAt  *time.Time       `json:"roundEndsAt,omitempty"`
}

// StatusReport is the answer to a status query.
type StatusReport struct {
	Message    string    `json:"message"`
	Game       *Snapshot `json:"game,omitempty"`
	Active     int       `json:"active"`
	Eliminated int       `json:"eliminated"`
}

type current struct {
	game      store.Game
	roundOpen bool
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(context.Context, broadcast.Message) {}

// Engine runs one tournament at a time.
type Engine struct {
	st     store.Store
	words  Words
	out    broadcast.Broadcaster
	clock  Clock
	log    zerolog.Logger
	retry  RetryPolicy
	reg    *Registry
	timers *timerSet

	ctx    context.Context // timer callbacks run under this
	cancel context.CancelFunc

	tx         sync.Mutex
	mu         sync.RWMutex
	cur        *current
	settings   Settings
	onSchedule func(hour, minute int) error
}

// New builds an Engine. Call Recover before serving traffic.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil || cfg.Words == nil {
		return nil, errors.New("tournament: store and words are required")
	}
	if cfg.Settings == (Settings{}) {
		cfg.Settings = DefaultSettings()
	}
	if err := cfg.Settings.validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock
	}
	if cfg.Broadcaster == nil {
		cfg.Broadcaster = nopBroadcaster{}
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetry
	}
	logger := cfg.Logger.With().Str("component", "engine").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		st:       cfg.Store,
		words:    cfg.Words,
		out:      cfg.Broadcaster,
		clock:    cfg.Clock,
		log:      logger,
		retry:    cfg.Retry,
		reg:      NewRegistry(cfg.Store),
		timers:   newTimerSet(cfg.Clock, logger),
		ctx:      ctx,
		cancel:   cancel,
		settings: cfg.Settings,
	}, nil
}

// Close stops all pending timers. The persisted game is left as is so a
// later Recover can resume it.
func (e *Engine) Close() {
	e.cancel()
	e.timers.clearAll()
}

// OnScheduleChange registers fn to apply a new daily start time.
func (e *Engine) OnScheduleChange(fn func(hour, minute int) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSchedule = fn
}

// ------------------------------- snapshot ----------------------------------

// Snapshot returns the current game state, or nil when idle.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() *Snapshot {
	if e.cur == nil {
		return nil
	}
	g := e.cur.game
	s := &Snapshot{
		GameID:       g.ID,
		Status:       g.Status,
		Round:        g.CurrentRound,
		RoundOpen:    e.cur.roundOpen,
		TotalPlayers: g.TotalPlayers,
		StartsAt:     g.StartsAt,
	}
	if e.cur.roundOpen {
		end := g.RoundStartedAt.Add(e.settings.Rounds.Lookup(g.CurrentRound).TimeLimit)
		s.RoundEndsAt = &end
	}
	return s
}

// currentGame returns a copy of the current game if it is id.
func (e *Engine) currentGame(id int64) (store.Game, bool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cur == nil || e.cur.game.ID != id {
		return store.Game{}, false, false
	}
	return e.cur.game, e.cur.roundOpen, true
}

func (e *Engine) clearCurrent(id int64) {
	e.mu.Lock()
	if e.cur != nil && e.cur.game.ID == id {
		e.cur = nil
	}
	e.mu.Unlock()
	e.timers.clearGame(id)
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

func (e *Engine) rounds() game.RoundTable { return e.Settings().Rounds }

// Rules renders the rule sheet for the configured rounds and prize.
func (e *Engine) Rules() string {
	s := e.Settings()
	return RulesText(s.Rounds, s.Prize)
}

// ----------------------------- participants --------------------------------

// JoinGame registers a player for the scheduled game.
func (e *Engine) JoinGame(ctx context.Context, playerID int64, name string, channel int64) Result {
	e.noteChannel(ctx, channel)
	name = displayName(name)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cur == nil {
		return refuse(ErrNoGame, "No upcoming games. Next game will be announced soon!")
	}
	g := e.cur.game
	outcome, err := e.reg.Join(ctx, g, playerID, name, channel)
	if err != nil {
		e.log.Error().Err(err).Int64("gameId", g.ID).Int64("playerId", playerID).Msg("join")
		return fail("Error joining game. Please try again.")
	}
	switch outcome {
	case GameNotJoinable:
		return refuse(ErrNotJoinable, "Game already in progress! Wait for the next one.")
	case AlreadyJoined:
		return refuse(store.ErrAlreadyJoined, "You're already registered for this game!")
	}

	total := 0
	if all, err := e.reg.All(ctx, g.ID); err == nil {
		total = len(all)
	}
	e.log.Info().Int64("gameId", g.ID).Int64("playerId", playerID).Int("total", total).Msg("player joined")
	e.out.Broadcast(ctx, msgJoined(name, total))
	r := ok(fmt.Sprintf("✅ You're in! The game starts at %s UTC.", g.StartsAt.UTC().Format("15:04")))
	r.GameID = g.ID
	return r
}

// ProcessGuess records a guess for the open round.
//
// Rejections, checked in order: malformed word, no open round, word not in
// the dictionary, caller not an active participant, attempts used up.
func (e *Engine) ProcessGuess(ctx context.Context, playerID int64, text string, channel int64) Result {
	e.noteChannel(ctx, channel)
	word, err := game.Normalize(strings.TrimSpace(text))
	if err != nil {
		return refuse(game.ErrInvalidInput, "Invalid word! Please enter a valid 5-letter word.")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cur == nil || e.cur.game.Status != store.StatusActive || !e.cur.roundOpen {
		return refuse(ErrNoActiveRound, "No active round right now.")
	}
	if !e.words.IsAccepted(word) {
		return refuse(ErrNotInDictionary, fmt.Sprintf("*%s* is not in the word list.", word))
	}
	g := e.cur.game
	cfg := e.settings.Rounds.Lookup(g.CurrentRound)

	o, err := e.reg.RecordGuess(ctx, g.ID, playerID, cfg, word, g.CurrentWord)
	switch {
	case errors.Is(err, ErrNotParticipant):
		return refuse(ErrNotParticipant, "You are not in this game or have been eliminated.")
	case errors.Is(err, ErrAttemptsExhausted):
		return refuse(ErrAttemptsExhausted, fmt.Sprintf("You've used all %d attempts for this round.", cfg.MaxAttempts))
	case err != nil:
		e.log.Error().Err(err).Int64("gameId", g.ID).Int("round", g.CurrentRound).
			Int64("playerId", playerID).Msg("record guess")
		return fail("Error processing your guess. Please try again.")
	}

	fb := o.Feedback
	e.log.Debug().Int64("gameId", g.ID).Int("round", g.CurrentRound).Int64("playerId", playerID).
		Int("attempt", o.Attempt).Bool("solved", fb.Solved()).Msg("guess recorded")
	return Result{
		Success:   true,
		Message:   guessReply(word, o),
		GameID:    g.ID,
		Feedback:  &fb,
		Remaining: o.Remaining,
		Solved:    fb.Solved(),
	}
}

// Status summarizes the current game.
func (e *Engine) Status(ctx context.Context) StatusReport {
	snap := e.Snapshot()
	if snap == nil {
		return StatusReport{Message: "No active game. Next game will be announced!"}
	}
	g, _, found := e.currentGame(snap.GameID)
	if !found {
		return StatusReport{Message: "No active game. Next game will be announced!"}
	}
	rep := StatusReport{Game: snap}
	if all, err := e.reg.All(ctx, snap.GameID); err == nil {
		for _, p := range all {
			if p.Status == store.ParticipantEliminated {
				rep.Eliminated++
			} else {
				rep.Active++
			}
		}
	} else {
		e.log.Warn().Err(err).Int64("gameId", snap.GameID).Msg("status: list participants")
	}
	rep.Message = statusText(g, e.rounds().Lookup(g.CurrentRound), rep.Active, rep.Eliminated)
	return rep
}

// noteChannel records the origin channel of a request.
func (e *Engine) noteChannel(ctx context.Context, channel int64) {
	if channel == 0 {
		return
	}
	if err := e.st.RegisterChannel(ctx, channel, ""); err != nil {
		e.log.Debug().Err(err).Int64("channel", channel).Msg("register channel")
	}
}

func displayName(name string) string {
	name = broadcast.StripMarkdown(name)
	if name == "" {
		return "Player"
	}
	return name
}

// -------------------------------- admin ------------------------------------

// StartScheduledGame opens registration using the configured period.
func (e *Engine) StartScheduledGame(ctx context.Context) Result {
	return e.openWithResult(ctx, e.Settings().RegistrationMinutes)
}

// ForceStartGame opens registration for the given number of minutes.
func (e *Engine) ForceStartGame(ctx context.Context, registrationMinutes int) Result {
	if registrationMinutes < 1 || registrationMinutes > 120 {
		return refuse(ErrInvalidSetting, "❌ Registration time must be between 1-120 minutes")
	}
	return e.openWithResult(ctx, registrationMinutes)
}

func (e *Engine) openWithResult(ctx context.Context, minutes int) Result {
	e.tx.Lock()
	defer e.tx.Unlock()
	g, err := e.openRegistration(ctx, minutes)
	if errors.Is(err, ErrGameInProgress) {
		return refuse(ErrGameInProgress, "❌ A game is already active. Stop it first.")
	}
	if err != nil {
		e.log.Error().Err(err).Msg("open registration")
		return fail("❌ Could not create the game. Please try again.")
	}
	r := ok(fmt.Sprintf("✅ Game scheduled! Registration closes in %d minute(s).", minutes))
	r.GameID = g.ID
	return r
}

// StartNow closes registration of the scheduled game immediately.
func (e *Engine) StartNow(ctx context.Context) Result {
	e.tx.Lock()
	defer e.tx.Unlock()
	snap := e.Snapshot()
	if snap == nil || snap.Status != store.StatusScheduled {
		return refuse(ErrNoGame, "❌ No game is waiting for players.")
	}
	if err := e.startGame(ctx, snap.GameID); err != nil {
		return fail("❌ Could not start the game; it will be retried.")
	}
	r := ok("✅ Game started.")
	r.GameID = snap.GameID
	return r
}

// CancelCurrentGame stops the scheduled or running game.
func (e *Engine) CancelCurrentGame(ctx context.Context) Result {
	e.tx.Lock()
	defer e.tx.Unlock()
	snap := e.Snapshot()
	if snap == nil {
		return refuse(ErrNoGame, "❌ No active game to stop")
	}
	id := snap.GameID
	if err := e.retry.do(ctx, func() error { return e.st.UpdateStatus(ctx, id, store.StatusCancelled) }); err != nil {
		e.log.Error().Err(err).Int64("gameId", id).Msg("cancel game")
		return fail("❌ Could not cancel the game. Please try again.")
	}
	e.mu.Lock()
	e.cur = nil
	e.mu.Unlock()
	e.timers.clearGame(id)
	e.log.Info().Int64("gameId", id).Msg("game cancelled")
	e.out.Broadcast(ctx, msgCancelled())
	r := ok("✅ Current game stopped and cancelled")
	r.GameID = id
	return r
}

// SetRegistrationMinutes changes the registration period of future games.
func (e *Engine) SetRegistrationMinutes(n int) error {
	return e.updateSettings(func(s *Settings) { s.RegistrationMinutes = n })
}

// SetPrize changes the advertised prize.
func (e *Engine) SetPrize(amount int) error {
	return e.updateSettings(func(s *Settings) { s.Prize = amount })
}

// SetRounds replaces the round table. Refused while a game is active.
func (e *Engine) SetRounds(t game.RoundTable) error {
	e.mu.RLock()
	busy := e.cur != nil && e.cur.game.Status == store.StatusActive
	e.mu.RUnlock()
	if busy {
		return ErrGameInProgress
	}
	return e.updateSettings(func(s *Settings) { s.Rounds = t })
}

// SetDailyScheduleTime moves the daily start time (UTC).
func (e *Engine) SetDailyScheduleTime(hour, minute int) error {
	if err := validClock(hour, minute); err != nil {
		return err
	}
	e.mu.RLock()
	hook := e.onSchedule
	e.mu.RUnlock()
	if hook != nil {
		if err := hook(hour, minute); err != nil {
			return err
		}
	}
	return e.updateSettings(func(s *Settings) {
		s.ScheduleHour = hour
		s.ScheduleMinute = minute
	})
}

func (e *Engine) updateSettings(fn func(s *Settings)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.settings
	fn(&next)
	if err := next.validate(); err != nil {
		return err
	}
	e.settings = next
	return nil
}

// ------------------------------ transitions --------------------------------
// Everything below runs with e.tx held.

// fire wraps a transition for use as a timer callback.
func (e *Engine) fire(name string, fn func(ctx context.Context) error) func() {
	return func() {
		e.tx.Lock()
		defer e.tx.Unlock()
		if e.ctx.Err() != nil {
			return
		}
		if err := fn(e.ctx); err != nil {
			e.log.Error().Err(err).Str("transition", name).Msg("transition failed")
		}
	}
}

// deferTransition re-arms k so fn runs again after the retry delay.
func (e *Engine) deferTransition(k timerKey, name string, fn func(ctx context.Context) error, cause error) error {
	e.log.Error().Err(cause).Int64("gameId", k.GameID).Int("round", k.Round).Str("transition", name).
		Dur("retryIn", e.retry.Defer).Msg("transition deferred")
	e.timers.arm(k, e.retry.Defer, e.fire(name, fn))
	return cause
}

func (e *Engine) openRegistration(ctx context.Context, minutes int) (store.Game, error) {
	if e.Snapshot() != nil {
		return store.Game{}, ErrGameInProgress
	}
	if _, err := e.st.CurrentGame(ctx); err == nil {
		return store.Game{}, ErrGameInProgress
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Game{}, err
	}

	now := e.clock.Now()
	startsAt := now.Add(time.Duration(minutes) * time.Minute)
	id, err := e.st.CreateGame(ctx, startsAt)
	if err != nil {
		return store.Game{}, err
	}
	g, err := e.st.GetGame(ctx, id)
	if err != nil {
		return store.Game{}, err
	}

	e.mu.Lock()
	e.cur = &current{game: *g}
	e.mu.Unlock()
	e.armRegistration(id, startsAt.Sub(now))

	s := e.Settings()
	e.log.Info().Int64("gameId", id).Time("startsAt", startsAt).Msg("registration open")
	e.out.Broadcast(ctx, msgRegistrationOpen(minutes, startsAt, s.Prize, s.Rounds))
	return *g, nil
}

func (e *Engine) armRegistration(id int64, d time.Duration) {
	e.timers.arm(timerKey{GameID: id, Kind: timerRegistration}, d,
		e.fire("start game", func(ctx context.Context) error { return e.startGame(ctx, id) }))
}

// startGame closes registration and begins round 1, or ends the game when
// nobody joined.
func (e *Engine) startGame(ctx context.Context, id int64) error {
	g, _, found := e.currentGame(id)
	if !found || g.Status != store.StatusScheduled {
		return nil
	}
	key := timerKey{GameID: id, Kind: timerRegistration}
	e.timers.stop(key)
	again := func(ctx context.Context) error { return e.startGame(ctx, id) }

	// Close joins before counting so nobody slips in unseen.
	e.setStatus(id, store.StatusActive)

	var parts []store.Participant
	err := e.retry.do(ctx, func() (err error) {
		parts, err = e.reg.All(ctx, id)
		return err
	})
	if err != nil {
		e.setStatus(id, store.StatusScheduled)
		return e.deferTransition(key, "start game", again, err)
	}

	if len(parts) == 0 {
		if err := e.retry.do(ctx, func() error { return e.st.UpdateStatus(ctx, id, store.StatusCompleted) }); err != nil {
			e.setStatus(id, store.StatusScheduled)
			return e.deferTransition(key, "start game", again, err)
		}
		e.clearCurrent(id)
		e.log.Info().Int64("gameId", id).Msg("no players joined, game closed")
		e.out.Broadcast(ctx, msgNoPlayers())
		return nil
	}

	n := len(parts)
	err = e.retry.do(ctx, func() error {
		if err := e.st.UpdateStatus(ctx, id, store.StatusActive); err != nil {
			return err
		}
		return e.st.SetTotalPlayers(ctx, id, n)
	})
	if err != nil {
		e.setStatus(id, store.StatusScheduled)
		return e.deferTransition(key, "start game", again, err)
	}
	e.mu.Lock()
	if e.cur != nil && e.cur.game.ID == id {
		e.cur.game.TotalPlayers = n
	}
	e.mu.Unlock()

	e.log.Info().Int64("gameId", id).Int("players", n).Msg("game started")
	return e.startRound(ctx, id, 1)
}

func (e *Engine) setStatus(id int64, status store.GameStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur != nil && e.cur.game.ID == id {
		e.cur.game.Status = status
	}
}

// startRound draws a word, opens round n and arms its timers.
func (e *Engine) startRound(ctx context.Context, id int64, n int) error {
	g, open, found := e.currentGame(id)
	if !found || g.Status != store.StatusActive {
		return nil
	}
	if open && g.CurrentRound == n {
		return nil
	}
	key := timerKey{GameID: id, Round: n, Kind: timerNext}
	e.timers.stop(key)

	cfg := e.rounds().Lookup(n)
	word := e.words.PickTarget()
	now := e.clock.Now()
	err := e.retry.do(ctx, func() error {
		if err := e.st.SetWord(ctx, id, word); err != nil {
			return err
		}
		return e.st.SetRound(ctx, id, n, now)
	})
	if err != nil {
		return e.deferTransition(key, "start round",
			func(ctx context.Context) error { return e.startRound(ctx, id, n) }, err)
	}

	active, err := e.reg.Active(ctx, id)
	if err != nil {
		e.log.Warn().Err(err).Int64("gameId", id).Int("round", n).Msg("count active players")
	}

	e.mu.Lock()
	if e.cur != nil && e.cur.game.ID == id {
		e.cur.game.CurrentRound = n
		e.cur.game.CurrentWord = word
		e.cur.game.RoundStartedAt = now
		e.cur.roundOpen = true
	}
	e.mu.Unlock()

	e.armRoundTimers(id, cfg, cfg.TimeLimit)
	e.log.Info().Int64("gameId", id).Int("round", n).Int("active", len(active)).
		Dur("timeLimit", cfg.TimeLimit).Msg("round started")
	e.out.Broadcast(ctx, msgRoundStart(cfg, len(active)))
	return nil
}

// armRoundTimers replaces any round timers of the game with the deadline
// and warning timers for cfg's round, remaining time left.
func (e *Engine) armRoundTimers(id int64, cfg game.RoundConfig, left time.Duration) {
	n := cfg.Round
	e.timers.stopKind(id, timerRound)
	e.timers.stopKind(id, timerWarning)
	e.timers.arm(timerKey{GameID: id, Round: n, Kind: timerRound}, left,
		e.fire("end round", func(ctx context.Context) error { return e.endRound(ctx, id, n) }))
	if left > warningLead {
		e.timers.arm(timerKey{GameID: id, Round: n, Kind: timerWarning}, left-warningLead,
			e.fire("time warning", func(ctx context.Context) error { return e.warn(ctx, id, n) }))
	}
}

func (e *Engine) warn(ctx context.Context, id int64, n int) error {
	g, open, found := e.currentGame(id)
	if !found || !open || g.CurrentRound != n {
		return nil
	}
	active, err := e.reg.Active(ctx, id)
	if err != nil {
		return err
	}
	e.out.Broadcast(ctx, msgWarning(n, len(active)))
	return nil
}

// endRound closes round n, eliminates everyone who did not solve it and
// decides what happens next.
func (e *Engine) endRound(ctx context.Context, id int64, n int) error {
	e.mu.Lock()
	c := e.cur
	if c == nil || c.game.ID != id || c.game.Status != store.StatusActive || c.game.CurrentRound != n {
		e.mu.Unlock()
		return nil
	}
	c.roundOpen = false
	e.mu.Unlock()

	e.timers.stop(timerKey{GameID: id, Round: n, Kind: timerWarning})
	key := timerKey{GameID: id, Round: n, Kind: timerRound}
	e.timers.stop(key)

	eliminated, remaining, err := e.applyEliminations(ctx, id, n)
	if err != nil {
		return e.deferTransition(key, "end round",
			func(ctx context.Context) error { return e.endRound(ctx, id, n) }, err)
	}

	final := len(remaining) <= 1 || n >= game.FinalRound
	var pause time.Duration
	next := n + 1
	if !final {
		pause = e.Settings().RoundPause
		// Persist round n+1 as pending so a restart during the pause
		// starts it instead of ending round n again.
		err := e.retry.do(ctx, func() error {
			if err := e.st.SetWord(ctx, id, ""); err != nil {
				return err
			}
			return e.st.SetRound(ctx, id, next, time.Time{})
		})
		if err != nil {
			return e.deferTransition(key, "end round",
				func(ctx context.Context) error { return e.endRound(ctx, id, n) }, err)
		}
	}
	e.log.Info().Int64("gameId", id).Int("round", n).Int("survived", len(remaining)).
		Int("eliminated", eliminated).Msg("round ended")
	summary := msgRoundSummary(n, eliminated+len(remaining), len(remaining), eliminated, pause)
	if !final && pause == 0 {
		summary.Text += "\n\nNext round starting now..."
	}
	e.out.Broadcast(ctx, summary)

	if final {
		return e.finish(ctx, id)
	}
	e.timers.arm(timerKey{GameID: id, Round: next, Kind: timerNext}, pause,
		e.fire("start round", func(ctx context.Context) error { return e.startRound(ctx, id, next) }))
	return nil
}

// applyEliminations knocks out every active participant without a solved
// guess in round n. It returns how many participants went out in round n
// and who is still in. Safe to repeat.
func (e *Engine) applyEliminations(ctx context.Context, id int64, n int) (int, []store.Participant, error) {
	var active []store.Participant
	err := e.retry.do(ctx, func() (err error) {
		active, err = e.reg.Active(ctx, id)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	for _, p := range active {
		var solved bool
		err := e.retry.do(ctx, func() (err error) {
			solved, err = e.reg.SolvedRound(ctx, id, p.PlayerID, n)
			return err
		})
		if err != nil {
			return 0, nil, err
		}
		if solved {
			continue
		}
		err = e.retry.do(ctx, func() error {
			_, err := e.reg.Eliminate(ctx, id, p.PlayerID, n)
			return err
		})
		if err != nil {
			return 0, nil, err
		}
	}

	var all []store.Participant
	err = e.retry.do(ctx, func() (err error) {
		all, err = e.reg.All(ctx, id)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	eliminated := 0
	var remaining []store.Participant
	for _, p := range all {
		switch {
		case p.Status != store.ParticipantEliminated:
			remaining = append(remaining, p)
		case p.EliminatedRound == n:
			eliminated++
		}
	}
	return eliminated, remaining, nil
}

// finish records results for everyone, declares every participant still
// in the game a winner and completes the game.
func (e *Engine) finish(ctx context.Context, id int64) error {
	g, _, found := e.currentGame(id)
	if !found {
		return nil
	}
	key := timerKey{GameID: id, Kind: timerFinish}
	e.timers.stop(key)
	again := func(ctx context.Context) error { return e.finish(ctx, id) }

	var all []store.Participant
	err := e.retry.do(ctx, func() (err error) {
		all, err = e.reg.All(ctx, id)
		return err
	})
	if err != nil {
		return e.deferTransition(key, "finish", again, err)
	}

	var winners []store.Participant
	for _, p := range all {
		won := p.Status != store.ParticipantEliminated
		if won {
			winners = append(winners, p)
		}
		err := e.retry.do(ctx, func() error {
			_, err := e.st.RecordResult(ctx, id, p.PlayerID, won)
			return err
		})
		if err != nil {
			return e.deferTransition(key, "finish", again, err)
		}
	}

	err = e.retry.do(ctx, func() error {
		if len(winners) == 1 {
			if err := e.st.SetWinner(ctx, id, winners[0].PlayerID); err != nil {
				return err
			}
		}
		return e.st.UpdateStatus(ctx, id, store.StatusCompleted)
	})
	if err != nil {
		return e.deferTransition(key, "finish", again, err)
	}
	e.clearCurrent(id)

	prize := e.Settings().Prize
	switch len(winners) {
	case 0:
		e.out.Broadcast(ctx, msgNoWinner())
	case 1:
		e.out.Broadcast(ctx, msgChampion(displayName(winners[0].Name), prize, g.CurrentWord, len(all)-1))
	default:
		names := make([]string, len(winners))
		for i, w := range winners {
			names[i] = displayName(w.Name)
		}
		e.out.Broadcast(ctx, msgChampions(names, prize, g.CurrentWord))
	}
	e.log.Info().Int64("gameId", id).Int("winners", len(winners)).Msg("game completed")
	return nil
}

// -------------------------------- recovery ---------------------------------

// Recover reloads the current game from the store and re-arms its timers.
// A scheduled game resumes its countdown; an active game resumes its round
// deadline, ending the round at once if the deadline already passed.
func (e *Engine) Recover(ctx context.Context) error {
	e.tx.Lock()
	defer e.tx.Unlock()
	if e.Snapshot() != nil {
		return nil
	}
	g, err := e.st.CurrentGame(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("recover current game: %w", err)
	}
	now := e.clock.Now()
	c := &current{game: *g}

	switch g.Status {
	case store.StatusScheduled:
		e.mu.Lock()
		e.cur = c
		e.mu.Unlock()
		e.armRegistration(g.ID, g.StartsAt.Sub(now))
		e.log.Info().Int64("gameId", g.ID).Time("startsAt", g.StartsAt).Msg("recovered scheduled game")

	case store.StatusActive:
		if g.CurrentWord == "" || g.RoundStartedAt.IsZero() {
			e.mu.Lock()
			e.cur = c
			e.mu.Unlock()
			n := g.CurrentRound
			e.timers.arm(timerKey{GameID: g.ID, Round: n, Kind: timerNext}, 0,
				e.fire("start round", func(ctx context.Context) error { return e.startRound(ctx, g.ID, n) }))
			e.log.Info().Int64("gameId", g.ID).Int("round", n).Msg("recovered game before first word")
			return nil
		}
		cfg := e.rounds().Lookup(g.CurrentRound)
		left := g.RoundStartedAt.Add(cfg.TimeLimit).Sub(now)
		// An overdue round stays closed until its end runs.
		c.roundOpen = left > 0
		e.mu.Lock()
		e.cur = c
		e.mu.Unlock()
		e.armRoundTimers(g.ID, cfg, left)
		e.log.Info().Int64("gameId", g.ID).Int("round", g.CurrentRound).Dur("left", left).Msg("recovered active round")
	}
	return nil
}
