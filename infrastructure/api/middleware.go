package api

import (
	"log/slog"
	"net/http"
	"strings"

	"chat-relay/auth"
)

// Middleware guards the authenticated part of the REST surface.
type Middleware struct {
	tokens *auth.TokenManager
	log    *slog.Logger
}

func NewMiddleware(tokens *auth.TokenManager, log *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, log: log}
}

// RequireToken rejects requests lacking a valid Bearer token.
func (m *Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := m.tokens.Validate(tokenString)
		if err != nil {
			m.log.Debug("Token rejected", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Set("X-User-Email", claims.Email)
		next.ServeHTTP(w, r)
	})
}
