// internal/daily/daily.go
//
// Daily game scheduler.
//
// Opens registration for the day's tournament at a fixed UTC time using a
// robfig/cron schedule. The time can be moved at runtime; the old cron
// entry is replaced atomically.

package daily

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/robalobadob/wordle-royale/internal/tournament"
)

// Starter opens registration for a scheduled game.
type Starter interface {
	StartScheduledGame(ctx context.Context) tournament.Result
}

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Spec returns the standard cron expression for hour:minute every day.
func Spec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// Scheduler triggers the daily game.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	schedule cron.Schedule
	hour     int
	minute   int
	starter  Starter
	log      zerolog.Logger
}

// New returns a Scheduler firing at hour:minute UTC. Call Start to run it.
func New(s Starter, hour, minute int, logger zerolog.Logger) (*Scheduler, error) {
	d := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		starter: s,
		log:     logger.With().Str("component", "daily").Logger(),
	}
	if err := d.SetTime(hour, minute); err != nil {
		return nil, err
	}
	return d, nil
}

// SetTime moves the daily trigger.
func (d *Scheduler) SetTime(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("daily: invalid time %02d:%02d", hour, minute)
	}
	spec := Spec(hour, minute)
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("daily: parse %q: %w", spec, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entry != 0 {
		d.cron.Remove(d.entry)
	}
	d.entry = d.cron.Schedule(sched, cron.FuncJob(d.run))
	d.schedule = sched
	d.hour, d.minute = hour, minute
	d.log.Info().Str("cron", spec).Msg("daily schedule set")
	return nil
}

// Time returns the configured hour and minute.
func (d *Scheduler) Time() (hour, minute int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hour, d.minute
}

// Next returns the first trigger strictly after t.
func (d *Scheduler) Next(t time.Time) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.schedule.Next(t.UTC())
}

// Start runs the cron loop in its own goroutine.
func (d *Scheduler) Start() { d.cron.Start() }

// Stop halts the scheduler and waits for a running trigger to finish.
func (d *Scheduler) Stop() { <-d.cron.Stop().Done() }

func (d *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res := d.starter.StartScheduledGame(ctx)
	ev := d.log.Info()
	if !res.Success {
		ev = d.log.Warn()
	}
	ev.Str("date", DateKey(time.Now())).Bool("started", res.Success).Int64("gameId", res.GameID).
		Str("result", res.Message).Msg("daily game trigger")
}
