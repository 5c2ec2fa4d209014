// internal/httpserver/auth.go
//
// Admin authentication.
//   - POST /admin/login checks the player id against ADMIN_IDS and the
//     password against a bcrypt hash, then issues an HS256 JWT.
//   - requireAdmin validates "Authorization: Bearer <jwt>" on /admin routes.
//
// Participants are never authenticated; this guards operator actions only.

package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds admin credentials and token settings.
type AuthConfig struct {
	AdminIDs     []int64
	PasswordHash string        // bcrypt; empty disables login
	Secret       string        // HMAC key for tokens; empty means a random per-process key
	TTL          time.Duration // token lifetime; zero means 12h
}

type adminAuth struct {
	admins map[int64]bool
	hash   []byte
	secret []byte
	ttl    time.Duration
}

func newAdminAuth(c AuthConfig) *adminAuth {
	a := &adminAuth{
		admins: make(map[int64]bool, len(c.AdminIDs)),
		hash:   []byte(c.PasswordHash),
		secret: []byte(c.Secret),
		ttl:    c.TTL,
	}
	if len(a.secret) == 0 {
		// Tokens then only live as long as the process.
		a.secret = make([]byte, 32)
		if _, err := rand.Read(a.secret); err != nil {
			panic("admin auth: no randomness: " + err.Error())
		}
		log.Warn().Msg("JWT_SECRET unset; using a random per-process signing key")
	}
	if a.ttl <= 0 {
		a.ttl = 12 * time.Hour
	}
	for _, id := range c.AdminIDs {
		a.admins[id] = true
	}
	return a
}

// adminClaims is the JWT payload for admin tokens.
type adminClaims struct {
	PlayerID int64  `json:"pid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

var errBadCredentials = errors.New("invalid admin credentials")

// login verifies credentials and returns a signed token and its expiry.
func (a *adminAuth) login(playerID int64, password string) (string, time.Time, error) {
	if len(a.hash) == 0 || !a.admins[playerID] {
		return "", time.Time{}, errBadCredentials
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return "", time.Time{}, errBadCredentials
	}
	return a.sign(playerID)
}

// sign creates an admin token for playerID.
func (a *adminAuth) sign(playerID int64) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(a.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		PlayerID: playerID,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	ss, err := t.SignedString(a.secret)
	return ss, exp, err
}

// verify parses a token and checks it still names a configured admin.
func (a *adminAuth) verify(token string) (int64, error) {
	claims := &adminClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return 0, errBadCredentials
	}
	if claims.Role != "admin" || !a.admins[claims.PlayerID] {
		return 0, errBadCredentials
	}
	return claims.PlayerID, nil
}

// bearer extracts a bearer token from the Authorization header.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ctxAdminKey is the context key for the authenticated admin id.
type ctxAdminKey struct{}

// requireAdmin enforces a valid admin JWT.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearer(r)
		if tok == "" {
			jsonError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		id, err := s.auth.verify(tok)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxAdminKey{}, id)))
	})
}

// loginReq is the payload for POST /admin/login.
type loginReq struct {
	PlayerID int64  `json:"playerId"`
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	tok, exp, err := s.auth.login(body.PlayerID, body.Password)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "Invalid id or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "expiresAt": exp.UTC()})
}
