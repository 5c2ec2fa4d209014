// internal/httpserver/server.go
//
// HTTP server wiring for the Wordle Royale tournament.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/rules", "/status".
//   - Participant endpoints (rate-limited per player): POST /join, POST /guess.
//   - Stats endpoints: /leaderboard, /players/{id}/stats, /players/{id}/games.
//   - Live announcement feed over websocket: GET /ws.
//   - Admin endpoints (require admin JWT): mounted under /admin.
//
// Notes:
//   - CORS is origin-aware (CLIENT_ORIGIN).
//   - /ws is mounted outside the handler timeout so feeds stay open.
//   - Engine results map to 200 on success and 409 on a refused action.

package httpserver

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/robalobadob/wordle-royale/internal/broadcast"
	"github.com/robalobadob/wordle-royale/internal/store"
	"github.com/robalobadob/wordle-royale/internal/tournament"
)

// Options configures a Server.
type Options struct {
	Engine *tournament.Engine
	Store  store.Store
	Hub    *broadcast.Hub // nil disables /ws
	Auth   AuthConfig

	// Per-player token bucket for /join and /guess. Zero values mean 1/s, burst 5.
	PlayerRate  float64
	PlayerBurst int

	// WordStats reports (answers, accepted) dictionary sizes for /admin/stats.
	WordStats func() (int, int)
}

// Server bundles the router and its collaborators.
type Server struct {
	r        *chi.Mux
	engine   *tournament.Engine
	store    store.Store
	hub      *broadcast.Hub
	auth     *adminAuth
	limits   *playerLimiter
	upgrader websocket.Upgrader
	words    func() (int, int)
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	s := &Server{
		r:      chi.NewRouter(),
		engine: opts.Engine,
		store:  opts.Store,
		hub:    opts.Hub,
		auth:   newAdminAuth(opts.Auth),
		limits: newPlayerLimiter(opts.PlayerRate, opts.PlayerBurst),
		words:  opts.WordStats,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(corsFromEnv)

	// Live feed, no handler timeout.
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"wordle-royale","endpoints":["/health","/status","/rules","POST /join","POST /guess","/ws","/admin/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		s.mountPlay(r)
		s.mountAdmin(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			jsonError(w, http.StatusNotFound, "not_found")
		})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests and http.Server).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// clientOrigin is CLIENT_ORIGIN or http://localhost:5173.
func clientOrigin() string { return getEnv("CLIENT_ORIGIN", "http://localhost:5173") }

// corsFromEnv enables credentialed CORS for a single origin.
func corsFromEnv(next http.Handler) http.Handler {
	origin := clientOrigin()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin accepts same-origin, origin-less and CLIENT_ORIGIN upgrades.
func checkOrigin(r *http.Request) bool {
	o := r.Header.Get("Origin")
	return o == "" || o == clientOrigin() || o == "http://"+r.Host || o == "https://"+r.Host
}

// ------------------------------- helpers -----------------------------------

// jsonError writes {"error": code} with status.
func jsonError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResult maps an engine Result to a response.
func writeResult(w http.ResponseWriter, res tournament.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, res)
}

// queryInt reads an integer query parameter, returning def when absent or bad.
func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
