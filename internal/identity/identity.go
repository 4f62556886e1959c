// Package identity provides anonymous per-device player identity.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	PlayerCookieName      = "arena_player_id"
	SessionHeaderName     = "X-Arena-Session-ID"
	DefaultSessionIDValue = "default"
	playerCookieMaxAge    = 30 * 24 * time.Hour
)

type contextKey int

const (
	playerIDKey contextKey = iota
	playerNameKey
	sessionIDKey
)

var (
	playerIDPattern  = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// PlayerIDFromContext extracts the player ID from the request context.
func PlayerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(playerIDKey).(string); ok {
		return v
	}
	return ""
}

// PlayerNameFromContext extracts the display name derived for the player.
func PlayerNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(playerNameKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithPlayer returns ctx carrying the given player identity.
func WithPlayer(ctx context.Context, playerID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, playerIDKey, playerID)
	ctx = context.WithValue(ctx, playerNameKey, DeriveName(playerID))
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

func generatePlayerID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate player id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidPlayerID(id string) bool {
	return playerIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

// DeriveName returns the leaderboard name used when a player gives none.
func DeriveName(playerID string) string {
	if len(playerID) > 13 {
		return "debater-" + playerID[len(playerID)-8:]
	}
	return "debater"
}

func setPlayerCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     PlayerCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(playerCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(playerCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreatePlayerID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(PlayerCookieName); err == nil && isValidPlayerID(c.Value) {
		setPlayerCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generatePlayerID()
	if err != nil {
		return "", err
	}
	setPlayerCookie(w, id, isDev)
	return id, nil
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sid
}

// Middleware injects anonymous per-device identity and per-request session ID.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			playerID, err := getOrCreatePlayerID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			ctx := WithPlayer(r.Context(), playerID, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for rate limiting callers without a cookie.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
