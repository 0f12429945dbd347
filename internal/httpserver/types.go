package httpserver

import "time"

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	PublicKey string `json:"public_key"`
}

type LoginRequest struct {
	// Username also accepts the account's email address.
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ResendConfirmationRequest struct {
	Username string `json:"username"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

type StatusResponse struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	Online   bool   `json:"online"`
}

type MeResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type CallJoinRequest struct {
	SessionKey string `json:"session_key"`
}

type CallInvitation struct {
	CallID  string `json:"call_id"`
	Creator string `json:"creator"`
}

type GroupCallRequest struct {
	Participants []string `json:"participants"`
	SessionKey   string   `json:"session_key"`
}

type GroupCallResponse struct {
	CallID       string   `json:"call_id"`
	Creator      string   `json:"creator"`
	Participants []string `json:"participants"`
}

type SessionKeyResponse struct {
	SessionKey string `json:"session_key"`
}

type SignalSendRequest struct {
	CallID     string  `json:"call_id"`
	Type       string  `json:"type"`
	Content    string  `json:"content"`
	TargetUser *string `json:"target_user"`
}

type MessageSendRequest struct {
	To               string `json:"to"`
	EncryptedContent string `json:"encrypted_content"`
}

type MessageSendResponse struct {
	MessageID int64  `json:"message_id"`
	Status    string `json:"status"`
}

type ConversationItem struct {
	From      string    `json:"from"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

type UnreadResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type MarkSeenResponse struct {
	Marked int64 `json:"marked"`
}

type AttachmentResponse struct {
	Object string `json:"object"`
	URL    string `json:"url"`
}

type GroupCreateRequest struct {
	Name string `json:"name"`
}

type GroupInviteRequest struct {
	UserID int64 `json:"user_id"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
