package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/rx3lixir/kanal/internal/db"
)

type contextKey string

const userContextKey contextKey = "current_user"

// AuthMiddleware decodes the bearer token and loads the user it names.
// The subject claim carries the username.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			s.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		username, err := s.tokens.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		user, err := s.users.GetUserByUsername(r.Context(), username)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user placed in the request
// context by AuthMiddleware.
func currentUser(r *http.Request) *db.User {
	user, _ := r.Context().Value(userContextKey).(*db.User)
	return user
}
