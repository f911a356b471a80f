package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gymbot/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate returns middleware that validates the Bearer JWT and puts its
// claims into the request context.
func Authenticate(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			claims, err := svc.Parse(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin пропускает только роль admin
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r)
		if claims == nil || claims.Role != auth.RoleAdmin {
			writeError(w, http.StatusForbidden, "access denied, required role: admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTelegramUser пропускает токены, привязанные к Telegram ID
func RequireTelegramUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r)
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if _, ok := claims.UserID(); !ok {
			writeError(w, http.StatusForbidden, "this endpoint needs a Telegram login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFromContext(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}

// userIDFromContext вызывать только за RequireTelegramUser
func userIDFromContext(r *http.Request) int64 {
	id, _ := claimsFromContext(r).UserID()
	return id
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
