package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rx3lixir/kanal/internal/db"
)

const maxAttachmentBytes = 10 << 20

const attachmentURLTTL = 15 * time.Minute

// HandleSendMessage stores one direct message. Content arrives
// pre-encrypted and is never inspected.
func (s *Server) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	req := new(MessageSendRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if req.To == "" || req.EncryptedContent == "" {
		s.respondError(w, http.StatusBadRequest, "to and encrypted_content are required")
		return
	}

	receiver, err := s.users.GetUserByUsername(r.Context(), req.To)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Receiver not found")
			return
		}
		s.handleError(w, err)
		return
	}

	msg := &db.Message{
		SenderID:   user.ID,
		ReceiverID: receiver.ID,
		Content:    req.EncryptedContent,
		Status:     db.MessageStatusSent,
	}

	if err := s.messages.CreateMessage(r.Context(), msg); err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, MessageSendResponse{
		MessageID: msg.ID,
		Status:    msg.Status,
	})
}

// HandleConversation returns the two-way history with a peer, oldest
// first, with senders collapsed to "me" or the peer's name.
func (s *Server) HandleConversation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	username := urlParam(r, "username")

	other, err := s.users.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		s.handleError(w, err)
		return
	}

	messages, err := s.messages.GetConversation(r.Context(), user.ID, other.ID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	items := make([]ConversationItem, 0, len(messages))
	for _, msg := range messages {
		from := username
		if msg.SenderID == user.ID {
			from = "me"
		}
		items = append(items, ConversationItem{
			From:      from,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			Status:    msg.Status,
		})
	}

	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	forUser := r.URL.Query().Get("for_user")
	if forUser == "" {
		s.respondError(w, http.StatusBadRequest, "Missing for_user")
		return
	}

	user, err := s.users.GetUserByUsername(r.Context(), forUser)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		s.handleError(w, err)
		return
	}

	count, err := s.messages.CountUnread(r.Context(), user.ID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, UnreadResponse{UnreadCount: count})
}

// HandleMarkSeen flips the peer's sent messages to the caller into
// seen. Messages the caller sent are left alone.
func (s *Server) HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	withUser := r.URL.Query().Get("with_user")
	if withUser == "" {
		s.respondError(w, http.StatusBadRequest, "Missing with_user")
		return
	}

	other, err := s.users.GetUserByUsername(r.Context(), withUser)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		s.handleError(w, err)
		return
	}

	marked, err := s.messages.MarkSeen(r.Context(), other.ID, user.ID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, MarkSeenResponse{Marked: marked})
}

// HandleUploadAttachment stores an opaque pre-encrypted blob and
// returns its object path plus a short-lived download URL. Clients
// reference the object from inside their encrypted message content.
func (s *Server) HandleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	body := http.MaxBytesReader(w, r.Body, maxAttachmentBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to read attachment body")
		return
	}

	if len(data) == 0 {
		s.respondError(w, http.StatusBadRequest, "Attachment body is empty")
		return
	}

	object, err := s.blobs.UploadAttachment(r.Context(), data, r.Header.Get("Content-Type"))
	if err != nil {
		s.log.Error("Failed to upload attachment", "user", user.Username, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to store attachment")
		return
	}

	url, err := s.blobs.GetPresignedURL(r.Context(), object, attachmentURLTTL)
	if err != nil {
		s.log.Error("Failed to presign attachment URL", "object", object, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to issue attachment URL")
		return
	}

	s.log.Info("Attachment stored", "user", user.Username, "object", object, "bytes", len(data))

	s.respondJSON(w, http.StatusCreated, AttachmentResponse{Object: object, URL: url})
}

// HandleGetAttachmentURL re-issues a presigned URL for a stored
// attachment object.
func (s *Server) HandleGetAttachmentURL(w http.ResponseWriter, r *http.Request) {
	object := r.URL.Query().Get("object")
	if object == "" {
		s.respondError(w, http.StatusBadRequest, "Missing object")
		return
	}

	if !strings.HasPrefix(object, "attachments/") {
		s.respondError(w, http.StatusBadRequest, "Invalid object path")
		return
	}

	url, err := s.blobs.GetPresignedURL(r.Context(), object, attachmentURLTTL)
	if err != nil {
		s.log.Error("Failed to presign attachment URL", "object", object, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to issue attachment URL")
		return
	}

	s.respondJSON(w, http.StatusOK, AttachmentResponse{Object: object, URL: url})
}
