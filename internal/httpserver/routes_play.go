// internal/httpserver/routes_play.go
//
// Participant-facing routes:
//   - POST /join                → register for the scheduled game
//   - POST /guess               → submit a guess for the open round
//   - GET  /status              → current game summary
//   - GET  /rules               → rule sheet
//   - GET  /leaderboard         → top players (?limit=, default 10, max 50)
//   - GET  /players/{id}/stats  → one player's totals
//   - GET  /players/{id}/games  → one player's recent games (?limit=, default 5)
//   - GET  /ws                  → websocket announcement feed
//                                 (?format=plain|markdown, ?channel=<id>)
//
// Player identity is the numeric id supplied by the caller; there is no
// participant authentication.

package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-royale/internal/broadcast"
	"github.com/robalobadob/wordle-royale/internal/store"
)

// mountPlay registers participant routes on r.
func (s *Server) mountPlay(r chi.Router) {
	r.Post("/join", s.handleJoin)
	r.Post("/guess", s.handleGuess)
	r.Get("/status", s.handleStatus)
	r.Get("/rules", s.handleRules)
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/players/{id}/stats", s.handlePlayerStats)
	r.Get("/players/{id}/games", s.handlePlayerGames)
}

// joinReq is the payload for POST /join.
type joinReq struct {
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
	Channel  int64  `json:"channel"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == 0 {
		jsonError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if !s.limits.allow(req.PlayerID) {
		jsonError(w, http.StatusTooManyRequests, "slow_down")
		return
	}
	writeResult(w, s.engine.JoinGame(r.Context(), req.PlayerID, req.Name, req.Channel))
}

// guessReq is the payload for POST /guess.
type guessReq struct {
	PlayerID int64  `json:"playerId"`
	Text     string `json:"text"`
	Channel  int64  `json:"channel"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == 0 {
		jsonError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if !s.limits.allow(req.PlayerID) {
		jsonError(w, http.StatusTooManyRequests, "slow_down")
		return
	}
	writeResult(w, s.engine.ProcessGuess(r.Context(), req.PlayerID, req.Text, req.Channel))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status(r.Context()))
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": s.engine.Rules(),
		"rounds":  roundsView(s.engine.Settings().Rounds),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}
	rows, err := s.store.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		jsonError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// playerID parses the {id} path parameter.
func playerID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id != 0
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "bad_player_id")
		return
	}
	st, err := s.store.PlayerStats(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("playerId", id).Msg("player stats")
		jsonError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePlayerGames(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "bad_player_id")
		return
	}
	limit := queryInt(r, "limit", 5)
	if limit < 1 || limit > 50 {
		limit = 5
	}
	rows, err := s.store.PlayerHistory(r.Context(), id, limit)
	if err != nil {
		log.Error().Err(err).Int64("playerId", id).Msg("player history")
		jsonError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// ------------------------------- websocket ---------------------------------

var wsSeq atomic.Int64

// handleWS upgrades to a websocket and streams announcements until the
// client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		jsonError(w, http.StatusNotFound, "not_found")
		return
	}
	plain := r.URL.Query().Get("format") == "plain"
	channel, _ := strconv.ParseInt(r.URL.Query().Get("channel"), 10, 64)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	id := fmt.Sprintf("ws-%d", wsSeq.Add(1))
	log.Debug().Str("recipient", id).Bool("plain", plain).Int64("channel", channel).Msg("listener connected")
	s.hub.Serve(r.Context(), broadcast.NewConn(id, ws, channel, plain))
	log.Debug().Str("recipient", id).Msg("listener gone")
}
