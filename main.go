// main.go
//
// Wordle Royale server entrypoint.
// Boot order: config → logging → words → store → broadcast hub → engine
// (+ restart recovery) → daily scheduler → HTTP. SIGINT/SIGTERM shut
// everything down in reverse.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-royale/internal/broadcast"
	"github.com/robalobadob/wordle-royale/internal/daily"
	"github.com/robalobadob/wordle-royale/internal/httpserver"
	"github.com/robalobadob/wordle-royale/internal/store"
	"github.com/robalobadob/wordle-royale/internal/tournament"
	"github.com/robalobadob/wordle-royale/internal/words"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	setupLogging(cfg)

	wl, err := words.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}
	answers, accepted := wl.Stats()
	log.Info().Int("answers", answers).Int("accepted", accepted).Msg("word lists loaded")

	st, err := openStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := broadcast.NewHub(cfg.BroadcastRate, log.Logger)
	hub.OnDrop(func(r broadcast.Recipient) {
		if r.Channel() == 0 {
			return
		}
		if err := st.DeactivateChannel(context.Background(), r.Channel()); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Int64("channel", r.Channel()).Msg("deactivate channel")
		}
	})
	go hub.Run(ctx)

	engine, err := tournament.New(tournament.Config{
		Store:       st,
		Words:       wl,
		Broadcaster: broadcast.Multi(hub, broadcast.Log{Logger: log.With().Str("component", "announce").Logger()}),
		Logger:      log.Logger,
		Settings:    cfg.Settings,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid engine settings")
	}
	defer engine.Close()
	if err := engine.Recover(ctx); err != nil {
		log.Error().Err(err).Msg("restart recovery failed")
	}

	sched, err := daily.New(engine, cfg.Settings.ScheduleHour, cfg.Settings.ScheduleMinute,
		log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid daily schedule")
	}
	engine.OnScheduleChange(sched.SetTime)
	sched.Start()
	defer sched.Stop()
	log.Info().Time("next", sched.Next(time.Now())).Msg("daily game scheduled")

	srv := httpserver.New(httpserver.Options{
		Engine:    engine,
		Store:     st,
		Hub:       hub,
		Auth:      cfg.Auth,
		WordStats: wl.Stats,
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting wordle-royale")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server exited")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
}

func setupLogging(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}
