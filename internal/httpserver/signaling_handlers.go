package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rx3lixir/kanal/internal/db"
)

// HandleSendSignal appends one signaling row tagged with the caller as
// sender. Content is an opaque blob; the relay never inspects it.
func (s *Server) HandleSendSignal(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	req := new(SignalSendRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := validateSignalSendRequest(req); err != nil {
		s.handleError(w, err)
		return
	}

	sig := &db.Signal{
		CallID:     req.CallID,
		Sender:     user.Username,
		TargetUser: req.TargetUser,
		Type:       req.Type,
		Content:    req.Content,
	}

	if err := s.signals.CreateSignal(r.Context(), sig); err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, sig)
}

// HandlePollSignals returns every stored row for call/type addressed
// to for_user. Clients re-query on an interval; nothing is consumed.
func (s *Server) HandlePollSignals(w http.ResponseWriter, r *http.Request) {
	callID := urlParam(r, "callID")
	signalType := urlParam(r, "type")

	forUser := r.URL.Query().Get("for_user")
	if forUser == "" {
		s.respondError(w, http.StatusBadRequest, "Missing for_user")
		return
	}

	signals, err := s.signals.GetSignals(r.Context(), callID, signalType, forUser)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, signals)
}

// HandleInboundOffers finds offers from calls addressed to the user
// through the call-id suffix convention.
func (s *Server) HandleInboundOffers(w http.ResponseWriter, r *http.Request) {
	username := urlParam(r, "username")

	signals, err := s.signals.GetInboundOffers(r.Context(), username)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, signals)
}

// HandleDeleteSignaling tears the call down: signaling rows,
// participants and the session itself.
func (s *Server) HandleDeleteSignaling(w http.ResponseWriter, r *http.Request) {
	callID := urlParam(r, "callID")

	if err := s.calls.DeleteCallData(r.Context(), callID); err != nil {
		s.handleError(w, err)
		return
	}

	s.log.Info("Call torn down", "call_id", callID)

	w.WriteHeader(http.StatusNoContent)
}
