package db

import (
	"time"
)

type User struct {
	ID                int64   `json:"id"`
	Username          string  `json:"username"`
	PasswordHash      string  `json:"-"`
	Email             string  `json:"email"`
	PublicKey         string  `json:"public_key"`
	EmailConfirmed    bool    `json:"email_confirmed"`
	ConfirmationToken *string `json:"-"`
	Status            string  `json:"status"`
}

// CallSession groups participants under a shared symmetric key.
// The id is chosen by the first joiner, so there is no serial here.
type CallSession struct {
	ID         string    `json:"call_id"`
	SessionKey string    `json:"-"`
	Creator    string    `json:"creator"`
	CreatedAt  time.Time `json:"created_at"`
}

// Participant links a user to a call session by username. Signaling
// addresses users by username too, so no FK to users here.
type Participant struct {
	ID       int64     `json:"id"`
	CallID   string    `json:"call_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Signal is one relayed signaling payload (offer/answer/candidate).
// Rows accumulate until the call is torn down.
type Signal struct {
	ID         int64   `json:"id"`
	CallID     string  `json:"call_id"`
	Sender     string  `json:"sender"`
	TargetUser *string `json:"target_user"`
	Type       string  `json:"type"`
	Content    string  `json:"content"`
}

type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
}

type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatorID int64     `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupInfo is a group row joined with its creator's username.
type GroupInfo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	CreatorID       int64  `json:"creator_id"`
	CreatorUsername string `json:"creator_username"`
}

type GroupMember struct {
	ID       int64     `json:"id"`
	GroupID  int64     `json:"group_id"`
	UserID   int64     `json:"user_id"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupMemberInfo is a membership row joined with the member's username.
type GroupMemberInfo struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Username string `json:"username"`
}

// JoinRequest is a pending membership row joined with group and user
// names, as listed for a group creator.
type JoinRequest struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status"`
	JoinedAt  time.Time `json:"joined_at"`
	GroupName string    `json:"group_name"`
	Username  string    `json:"username"`
}

const (
	MessageStatusSent = "sent"
	MessageStatusSeen = "seen"
)

// Creator-issued invites and self-initiated join requests are kept
// distinct on purpose: an invite is accepted by the member, a pending
// request is resolved by the group creator.
const (
	MemberStatusJoined  = "joined"
	MemberStatusInvited = "invited"
	MemberStatusPending = "pending"
)

const SignalTypeOffer = "offer"

const UserStatusAvailable = "available"
