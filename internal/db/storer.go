package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors stores translate pgx failures into. Handlers map
// these onto HTTP status codes.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// To abstract db methods from pgxpool api
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(pool DBTX) *PostgresStore {
	return &PostgresStore{
		db: pool,
	}
}

type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUsers(ctx context.Context) ([]*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByLogin(ctx context.Context, login string) (*User, error)
	GetUserByConfirmationToken(ctx context.Context, token string) (*User, error)
	ConfirmEmail(ctx context.Context, userID int64) error
	UpdateUserStatus(ctx context.Context, userID int64, status string) error
}

type CallStore interface {
	CreateCallSession(ctx context.Context, session *CallSession) error
	GetCallSession(ctx context.Context, callID string) (*CallSession, error)
	GetCallSessionsByIDs(ctx context.Context, callIDs []string) ([]*CallSession, error)
	AddParticipant(ctx context.Context, part *Participant) error
	RemoveParticipant(ctx context.Context, callID, username string) error
	GetParticipants(ctx context.Context, callID string) ([]*Participant, error)
	GetParticipation(ctx context.Context, callID, username string) (*Participant, error)
	GetParticipationsByUser(ctx context.Context, username string) ([]*Participant, error)
	DeleteCallData(ctx context.Context, callID string) error
}

type SignalingStore interface {
	CreateSignal(ctx context.Context, sig *Signal) error
	GetSignals(ctx context.Context, callID, signalType, forUser string) ([]*Signal, error)
	GetInboundOffers(ctx context.Context, username string) ([]*Signal, error)
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *Message) error
	GetConversation(ctx context.Context, userID, peerID int64) ([]*Message, error)
	CountUnread(ctx context.Context, receiverID int64) (int64, error)
	MarkSeen(ctx context.Context, senderID, receiverID int64) (int64, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, group *Group) error
	GetGroup(ctx context.Context, groupID int64) (*Group, error)
	GetAllGroups(ctx context.Context) ([]*GroupInfo, error)
	GetGroupsByMemberStatus(ctx context.Context, userID int64, status string) ([]*GroupInfo, error)
	DeleteGroup(ctx context.Context, groupID int64) error
	AddMember(ctx context.Context, member *GroupMember) error
	GetMember(ctx context.Context, groupID, userID int64) (*GroupMember, error)
	UpdateMemberStatus(ctx context.Context, groupID, userID int64, from, to string) error
	DeleteMember(ctx context.Context, groupID, userID int64, status string) error
	GetGroupMembers(ctx context.Context, groupID int64) ([]*GroupMemberInfo, error)
	GetJoinRequestsForCreator(ctx context.Context, creatorID int64) ([]*JoinRequest, error)
}

func CreatePostgresPool(parentCtx context.Context, dburl string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(parentCtx, time.Second*3)
	defer cancel()

	pool, err := pgxpool.New(ctx, dburl)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// isUniqueViolation reports whether err is a postgres unique-constraint
// failure (duplicate username, duplicate membership, racing call creates).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
