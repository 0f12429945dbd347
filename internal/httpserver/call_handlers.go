package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rx3lixir/kanal/internal/db"
)

// HandleCallInvitations lists sessions the caller has a participant
// row in. Group-call creation materializes invitations as participant
// rows, so this doubles as the invitation inbox.
func (s *Server) HandleCallInvitations(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	parts, err := s.calls.GetParticipationsByUser(r.Context(), user.Username)
	if err != nil {
		s.handleError(w, err)
		return
	}

	callIDs := make([]string, 0, len(parts))
	for _, p := range parts {
		callIDs = append(callIDs, p.CallID)
	}

	sessions, err := s.calls.GetCallSessionsByIDs(r.Context(), callIDs)
	if err != nil {
		s.handleError(w, err)
		return
	}

	invitations := make([]CallInvitation, 0, len(sessions))
	for _, session := range sessions {
		invitations = append(invitations, CallInvitation{
			CallID:  session.ID,
			Creator: session.Creator,
		})
	}

	s.respondJSON(w, http.StatusOK, invitations)
}

// HandleJoinCall adds the caller to a call. If the session does not
// exist yet the caller becomes its creator and must supply the
// session_key; later joiners need no key. Two first-joiners can race
// here; the primary key decides and the loser sees a conflict.
func (s *Server) HandleJoinCall(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	callID := urlParam(r, "callID")

	req := new(CallJoinRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	_, err := s.calls.GetCallSession(r.Context(), callID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.handleError(w, err)
			return
		}

		if req.SessionKey == "" {
			s.respondError(w, http.StatusBadRequest, "session_key required to create session")
			return
		}

		session := &db.CallSession{
			ID:         callID,
			SessionKey: req.SessionKey,
			Creator:    user.Username,
		}
		if err := s.calls.CreateCallSession(r.Context(), session); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				s.respondError(w, http.StatusConflict, "Call session already exists")
				return
			}
			s.handleError(w, err)
			return
		}

		s.log.Info("Call session created", "call_id", callID, "creator", user.Username)
	}

	part := &db.Participant{CallID: callID, UserID: user.Username}
	if err := s.calls.AddParticipant(r.Context(), part); err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, DetailResponse{
		Detail: fmt.Sprintf("%s joined %s", user.Username, callID),
	})
}

// HandleAcceptCall clears the caller's pending participant row for the
// call, acknowledging an invitation. The caller then joins explicitly.
func (s *Server) HandleAcceptCall(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	callID := urlParam(r, "callID")

	if err := s.calls.RemoveParticipant(r.Context(), callID, user.Username); err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, DetailResponse{
		Detail: fmt.Sprintf("%s accepted %s", user.Username, callID),
	})
}

func (s *Server) HandleLeaveCall(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	callID := urlParam(r, "callID")

	if err := s.calls.RemoveParticipant(r.Context(), callID, user.Username); err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, DetailResponse{
		Detail: fmt.Sprintf("%s left %s", user.Username, callID),
	})
}

func (s *Server) HandleListParticipants(w http.ResponseWriter, r *http.Request) {
	callID := urlParam(r, "callID")

	parts, err := s.calls.GetParticipants(r.Context(), callID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, parts)
}

func (s *Server) HandleGetCallSession(w http.ResponseWriter, r *http.Request) {
	callID := urlParam(r, "callID")

	session, err := s.calls.GetCallSession(r.Context(), callID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Call not found")
			return
		}
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, session)
}

// HandleCreateGroupCall creates a session with a generated id and
// invites every listed participant by materializing participant rows.
func (s *Server) HandleCreateGroupCall(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	req := new(GroupCallRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := validateGroupCallRequest(req); err != nil {
		s.handleError(w, err)
		return
	}

	u := uuid.New()
	callID := fmt.Sprintf("group_%x", u[:4])

	session := &db.CallSession{
		ID:         callID,
		SessionKey: req.SessionKey,
		Creator:    user.Username,
	}
	if err := s.calls.CreateCallSession(r.Context(), session); err != nil {
		s.handleError(w, err)
		return
	}

	members := []string{user.Username}
	seen := map[string]bool{user.Username: true}
	for _, username := range req.Participants {
		if seen[username] {
			continue
		}
		seen[username] = true
		members = append(members, username)
	}

	for _, username := range members {
		part := &db.Participant{CallID: callID, UserID: username}
		if err := s.calls.AddParticipant(r.Context(), part); err != nil {
			s.handleError(w, err)
			return
		}
	}

	s.log.Info("Group call created",
		"call_id", callID,
		"creator", user.Username,
		"participants", len(members),
	)

	s.respondJSON(w, http.StatusOK, GroupCallResponse{
		CallID:       callID,
		Creator:      user.Username,
		Participants: members,
	})
}

// HandleGetSessionKey hands the shared key to call participants only.
func (s *Server) HandleGetSessionKey(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	callID := urlParam(r, "callID")

	session, err := s.calls.GetCallSession(r.Context(), callID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Call not found")
			return
		}
		s.handleError(w, err)
		return
	}

	if _, err := s.calls.GetParticipation(r.Context(), callID, user.Username); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusForbidden, "You are not a participant in this call")
			return
		}
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, SessionKeyResponse{SessionKey: session.SessionKey})
}
