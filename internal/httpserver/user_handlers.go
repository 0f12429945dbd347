package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rx3lixir/kanal/internal/db"
)

func (s *Server) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	s.respondJSON(w, http.StatusOK, MeResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

func (s *Server) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.GetUsers(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, users)
}

func (s *Server) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	username := urlParam(r, "username")

	user, err := s.users.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleUpdateStatus writes the caller's presence status. The database
// row is authoritative; the cache update is best effort.
func (s *Server) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	req := new(StatusUpdateRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := validateStatus(req.Status); err != nil {
		s.handleError(w, err)
		return
	}

	if err := s.users.UpdateUserStatus(r.Context(), user.ID, req.Status); err != nil {
		s.handleError(w, err)
		return
	}

	if err := s.presence.SetStatus(r.Context(), user.Username, req.Status); err != nil {
		s.log.Debug("Failed to cache status", "user", user.Username, "error", err)
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleGetStatus reads a user's status through the presence cache,
// falling back to the database and backfilling on a miss.
func (s *Server) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	username := urlParam(r, "username")

	status, err := s.presence.GetStatus(r.Context(), username)
	if err != nil {
		user, dbErr := s.users.GetUserByUsername(r.Context(), username)
		if dbErr != nil {
			if errors.Is(dbErr, db.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "User not found")
				return
			}
			s.handleError(w, dbErr)
			return
		}
		status = user.Status

		if err := s.presence.SetStatus(r.Context(), username, status); err != nil {
			s.log.Debug("Failed to backfill status cache", "user", username, "error", err)
		}
	}

	online, err := s.presence.IsOnline(r.Context(), username)
	if err != nil {
		s.log.Debug("Failed to check online flag", "user", username, "error", err)
	}

	s.respondJSON(w, http.StatusOK, StatusResponse{
		Username: username,
		Status:   status,
		Online:   online,
	})
}
