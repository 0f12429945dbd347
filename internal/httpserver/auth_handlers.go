package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rx3lixir/kanal/internal/db"
	"github.com/rx3lixir/kanal/pkg/password"
)

// HandleRegister creates an unconfirmed user and mails the
// confirmation token. A failed mail delivery is logged and swallowed;
// the account exists either way and can ask for a resend.
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req := new(RegisterRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := validateRegisterRequest(req); err != nil {
		s.handleError(w, err)
		return
	}

	hashedPassword, err := password.Hash(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	token := uuid.NewString()
	newUser := &db.User{
		Username:          req.Username,
		PasswordHash:      string(hashedPassword),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		PublicKey:         req.PublicKey,
		ConfirmationToken: &token,
	}

	if err := s.users.CreateUser(r.Context(), newUser); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			s.respondError(w, http.StatusConflict, "Username or email already taken")
			return
		}
		s.log.Error("Failed to create user", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if err := s.mail.SendConfirmationEmail(newUser.Email, newUser.Username, token); err != nil {
		s.log.Error("Failed to send confirmation email",
			"user", newUser.Username,
			"error", err,
		)
	}

	s.log.Info("User registered", "user", newUser.Username)

	s.respondJSON(w, http.StatusCreated, newUser)
}

// HandleConfirmEmail marks the account confirmed and clears the token.
func (s *Server) HandleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := urlParam(r, "token")

	user, err := s.users.GetUserByConfirmationToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Token invalid")
			return
		}
		s.handleError(w, err)
		return
	}

	if err := s.users.ConfirmEmail(r.Context(), user.ID); err != nil {
		s.handleError(w, err)
		return
	}

	s.log.Info("Email confirmed", "user", user.Username)

	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Email confirmed"})
}

// HandleLogin verifies credentials and issues a bearer token. Bad
// credentials are 401 regardless of which part was wrong; an
// unconfirmed email is 403 and only checked after the password.
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req := new(LoginRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	user, err := s.users.GetUserByLogin(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.handleError(w, err)
		return
	}

	if !password.Verify(user.PasswordHash, req.Password) {
		s.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.EmailConfirmed {
		s.respondError(w, http.StatusForbidden, "Email needs confirmation")
		return
	}

	token, err := s.tokens.CreateToken(user.Username)
	if err != nil {
		s.log.Error("Failed to create token", "user", user.Username, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	if err := s.presence.MarkOnline(r.Context(), user.Username); err != nil {
		s.log.Debug("Failed to mark user online", "user", user.Username, "error", err)
	}

	s.log.Info("User logged in", "user", user.Username)

	s.respondJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// HandleEmailConfirmed reports whether the named user has confirmed.
func (s *Server) HandleEmailConfirmed(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		s.respondError(w, http.StatusBadRequest, "Missing username")
		return
	}

	user, err := s.users.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, user.EmailConfirmed)
}

// HandleResendConfirmation re-sends the existing token. The token is
// never rotated here, so links from the first mail stay valid.
func (s *Server) HandleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	req := new(ResendConfirmationRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if req.Username == "" {
		s.respondError(w, http.StatusBadRequest, "Missing username")
		return
	}

	user, err := s.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		s.handleError(w, err)
		return
	}

	if user.EmailConfirmed {
		s.respondError(w, http.StatusBadRequest, "Email already confirmed")
		return
	}

	if user.ConfirmationToken == nil {
		s.respondError(w, http.StatusBadRequest, "No confirmation pending")
		return
	}

	if err := s.mail.SendConfirmationEmail(user.Email, user.Username, *user.ConfirmationToken); err != nil {
		s.log.Error("Failed to resend confirmation email",
			"user", user.Username,
			"error", err,
		)
	}

	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Confirmation email sent"})
}
