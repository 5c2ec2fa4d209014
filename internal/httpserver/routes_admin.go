// internal/httpserver/routes_admin.go
//
// Admin routes, all under /admin and all but /admin/login behind requireAdmin:
//   - POST   /admin/login                  → {token, expiresAt}
//   - POST   /admin/games                  → open a test game ({registrationMinutes}, default 2)
//   - POST   /admin/games/scheduled        → open the regular game now
//   - POST   /admin/games/current/start    → skip the rest of registration
//   - DELETE /admin/games/current          → cancel
//   - GET    /admin/settings               → settings + current game
//   - PUT    /admin/settings/registration  → {minutes}
//   - PUT    /admin/settings/schedule      → {hour, minute}
//   - PUT    /admin/settings/prize         → {amount}
//   - PUT    /admin/settings/rounds        → [{maxAttempts, minutes} × 6]
//   - GET    /admin/stats                  → system totals
//   - GET    /admin/channels               → origin channels

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-royale/internal/game"
	"github.com/robalobadob/wordle-royale/internal/tournament"
)

// mountAdmin registers /admin routes on r.
func (s *Server) mountAdmin(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleAdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/games", s.handleForceStart)
			r.Post("/games/scheduled", s.handleStartScheduled)
			r.Post("/games/current/start", s.handleStartNow)
			r.Delete("/games/current", s.handleCancel)

			r.Get("/settings", s.handleSettings)
			r.Put("/settings/registration", s.handleSetRegistration)
			r.Put("/settings/schedule", s.handleSetSchedule)
			r.Put("/settings/prize", s.handleSetPrize)
			r.Put("/settings/rounds", s.handleSetRounds)

			r.Get("/stats", s.handleSystemStats)
			r.Get("/channels", s.handleChannels)
		})
	})
}

// adminID returns the admin id placed in the context by requireAdmin.
func adminID(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxAdminKey{}).(int64)
	return id
}

// ------------------------------- games -------------------------------------

type forceStartReq struct {
	RegistrationMinutes int `json:"registrationMinutes"`
}

func (s *Server) handleForceStart(w http.ResponseWriter, r *http.Request) {
	req := forceStartReq{RegistrationMinutes: 2}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, "bad_json")
			return
		}
	}
	log.Info().Int64("admin", adminID(r)).Int("minutes", req.RegistrationMinutes).Msg("admin: test game")
	writeResult(w, s.engine.ForceStartGame(r.Context(), req.RegistrationMinutes))
}

func (s *Server) handleStartScheduled(w http.ResponseWriter, r *http.Request) {
	log.Info().Int64("admin", adminID(r)).Msg("admin: scheduled game")
	writeResult(w, s.engine.StartScheduledGame(r.Context()))
}

func (s *Server) handleStartNow(w http.ResponseWriter, r *http.Request) {
	log.Info().Int64("admin", adminID(r)).Msg("admin: start now")
	writeResult(w, s.engine.StartNow(r.Context()))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	log.Info().Int64("admin", adminID(r)).Msg("admin: cancel game")
	writeResult(w, s.engine.CancelCurrentGame(r.Context()))
}

// ------------------------------ settings -----------------------------------

// roundView is one row of the round table as minutes.
type roundView struct {
	Round       int `json:"round"`
	MaxAttempts int `json:"maxAttempts"`
	Minutes     int `json:"minutes"`
}

func roundsView(t game.RoundTable) []roundView {
	out := make([]roundView, len(t))
	for i, c := range t {
		out[i] = roundView{Round: c.Round, MaxAttempts: c.MaxAttempts, Minutes: int(c.TimeLimit / time.Minute)}
	}
	return out
}

type settingsView struct {
	RegistrationMinutes int                  `json:"registrationMinutes"`
	Prize               int                  `json:"prize"`
	RoundPauseSeconds   int                  `json:"roundPauseSeconds"`
	ScheduleHour        int                  `json:"scheduleHour"`
	ScheduleMinute      int                  `json:"scheduleMinute"`
	Rounds              []roundView          `json:"rounds"`
	CurrentGame         *tournament.Snapshot `json:"currentGame"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Settings()
	writeJSON(w, http.StatusOK, settingsView{
		RegistrationMinutes: st.RegistrationMinutes,
		Prize:               st.Prize,
		RoundPauseSeconds:   int(st.RoundPause / time.Second),
		ScheduleHour:        st.ScheduleHour,
		ScheduleMinute:      st.ScheduleMinute,
		Rounds:              roundsView(st.Rounds),
		CurrentGame:         s.engine.Snapshot(),
	})
}

// settingError maps a settings update error to a response.
func settingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tournament.ErrInvalidSetting):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_setting", "detail": err.Error()})
	case errors.Is(err, tournament.ErrGameInProgress):
		jsonError(w, http.StatusConflict, "game_in_progress")
	default:
		log.Error().Err(err).Msg("update setting")
		jsonError(w, http.StatusInternalServerError, "update_failed")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_json")
		return false
	}
	return true
}

func (s *Server) handleSetRegistration(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Minutes int `json:"minutes"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := s.engine.SetRegistrationMinutes(body.Minutes); err != nil {
		settingError(w, err)
		return
	}
	s.handleSettings(w, r)
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Hour   *int `json:"hour"`
		Minute *int `json:"minute"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Hour == nil || body.Minute == nil {
		jsonError(w, http.StatusBadRequest, "hour_and_minute_required")
		return
	}
	if err := s.engine.SetDailyScheduleTime(*body.Hour, *body.Minute); err != nil {
		settingError(w, err)
		return
	}
	s.handleSettings(w, r)
}

func (s *Server) handleSetPrize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount int `json:"amount"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := s.engine.SetPrize(body.Amount); err != nil {
		settingError(w, err)
		return
	}
	s.handleSettings(w, r)
}

func (s *Server) handleSetRounds(w http.ResponseWriter, r *http.Request) {
	var body []roundView
	if !decode(w, r, &body) {
		return
	}
	if len(body) != game.FinalRound {
		jsonError(w, http.StatusBadRequest, "six_rounds_required")
		return
	}
	var t game.RoundTable
	for i, rv := range body {
		t[i] = game.RoundConfig{Round: i + 1, MaxAttempts: rv.MaxAttempts, TimeLimit: time.Duration(rv.Minutes) * time.Minute}
	}
	if err := s.engine.SetRounds(t); err != nil {
		settingError(w, err)
		return
	}
	s.handleSettings(w, r)
}

// -------------------------------- stats ------------------------------------

func (s *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.SystemStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("system stats")
		jsonError(w, http.StatusInternalServerError, "db_error")
		return
	}
	out := map[string]any{
		"totalPlayers":   st.TotalPlayers,
		"newThisWeek":    st.NewThisWeek,
		"gamesCompleted": st.GamesCompleted,
		"gamesActive":    st.GamesActive,
	}
	if s.hub != nil {
		out["listeners"] = s.hub.Len()
	}
	if s.words != nil {
		a, g := s.words()
		out["words"] = map[string]int{"answers": a, "accepted": g}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	chans, err := s.store.ListChannels(r.Context(), r.URL.Query().Get("active") == "1")
	if err != nil {
		log.Error().Err(err).Msg("list channels")
		jsonError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, chans)
}
