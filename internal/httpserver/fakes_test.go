package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rx3lixir/kanal/internal/db"
	"github.com/rx3lixir/kanal/pkg/jwt"
	"github.com/rx3lixir/kanal/pkg/password"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for the postgres store, good
// enough to drive the handlers through the real router.
type fakeStore struct {
	mu sync.Mutex

	nextUserID    int64
	nextMessageID int64
	nextGroupID   int64
	nextMemberID  int64
	nextSignalID  int64
	nextPartID    int64

	users        map[int64]*db.User
	sessions     map[string]*db.CallSession
	participants []*db.Participant
	signals      []*db.Signal
	messages     []*db.Message
	groups       map[int64]*db.Group
	members      []*db.GroupMember
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*db.User),
		sessions: make(map[string]*db.CallSession),
		groups:   make(map[int64]*db.Group),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user *db.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return db.ErrDuplicate
		}
	}

	f.nextUserID++
	user.ID = f.nextUserID
	if user.Status == "" {
		user.Status = db.UserStatusAvailable
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) GetUsers(_ context.Context) ([]*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.User, 0, len(f.users))
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetUserByLogin(_ context.Context, login string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetUserByConfirmationToken(_ context.Context, token string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.ConfirmationToken != nil && *u.ConfirmationToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ConfirmEmail(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.EmailConfirmed = true
	u.ConfirmationToken = nil
	return nil
}

func (f *fakeStore) UpdateUserStatus(_ context.Context, userID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.Status = status
	return nil
}

func (f *fakeStore) CreateCallSession(_ context.Context, session *db.CallSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.sessions[session.ID]; ok {
		return db.ErrDuplicate
	}
	session.CreatedAt = time.Now()
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeStore) GetCallSession(_ context.Context, callID string) (*db.CallSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[callID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) GetCallSessionsByIDs(_ context.Context, callIDs []string) ([]*db.CallSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.CallSession, 0, len(callIDs))
	for _, id := range callIDs {
		if s, ok := f.sessions[id]; ok {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) AddParticipant(_ context.Context, part *db.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextPartID++
	part.ID = f.nextPartID
	part.JoinedAt = time.Now()
	cp := *part
	f.participants = append(f.participants, &cp)
	return nil
}

func (f *fakeStore) RemoveParticipant(_ context.Context, callID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.participants[:0]
	for _, p := range f.participants {
		if p.CallID == callID && p.UserID == username {
			continue
		}
		kept = append(kept, p)
	}
	f.participants = kept
	return nil
}

func (f *fakeStore) GetParticipants(_ context.Context, callID string) ([]*db.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.Participant, 0)
	for _, p := range f.participants {
		if p.CallID == callID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) GetParticipation(_ context.Context, callID, username string) (*db.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.participants {
		if p.CallID == callID && p.UserID == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetParticipationsByUser(_ context.Context, username string) ([]*db.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.Participant, 0)
	for _, p := range f.participants {
		if p.UserID == username {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteCallData(_ context.Context, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keptSig := f.signals[:0]
	for _, sig := range f.signals {
		if sig.CallID != callID {
			keptSig = append(keptSig, sig)
		}
	}
	f.signals = keptSig

	keptPart := f.participants[:0]
	for _, p := range f.participants {
		if p.CallID != callID {
			keptPart = append(keptPart, p)
		}
	}
	f.participants = keptPart

	delete(f.sessions, callID)
	return nil
}

func (f *fakeStore) CreateSignal(_ context.Context, sig *db.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextSignalID++
	sig.ID = f.nextSignalID
	cp := *sig
	f.signals = append(f.signals, &cp)
	return nil
}

func (f *fakeStore) GetSignals(_ context.Context, callID, signalType, forUser string) ([]*db.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.Signal, 0)
	for _, sig := range f.signals {
		if sig.CallID != callID || sig.Type != signalType {
			continue
		}
		if sig.TargetUser == nil || *sig.TargetUser != forUser {
			continue
		}
		cp := *sig
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) GetInboundOffers(_ context.Context, username string) ([]*db.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.Signal, 0)
	for _, sig := range f.signals {
		if sig.Type == db.SignalTypeOffer && strings.HasSuffix(sig.CallID, "_"+username) {
			cp := *sig
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, msg *db.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextMessageID++
	msg.ID = f.nextMessageID
	msg.Timestamp = time.Now()
	if msg.Status == "" {
		msg.Status = db.MessageStatusSent
	}
	cp := *msg
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeStore) GetConversation(_ context.Context, userID, peerID int64) ([]*db.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.Message, 0)
	for _, m := range f.messages {
		if (m.SenderID == userID && m.ReceiverID == peerID) ||
			(m.SenderID == peerID && m.ReceiverID == userID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) CountUnread(_ context.Context, receiverID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, m := range f.messages {
		if m.ReceiverID == receiverID && m.Status == db.MessageStatusSent {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) MarkSeen(_ context.Context, senderID, receiverID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var marked int64
	for _, m := range f.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID && m.Status == db.MessageStatusSent {
			m.Status = db.MessageStatusSeen
			marked++
		}
	}
	return marked, nil
}

func (f *fakeStore) CreateGroup(_ context.Context, group *db.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextGroupID++
	group.ID = f.nextGroupID
	group.CreatedAt = time.Now()
	cp := *group
	f.groups[group.ID] = &cp
	return nil
}

func (f *fakeStore) GetGroup(_ context.Context, groupID int64) (*db.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.groups[groupID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeStore) groupInfoLocked(g *db.Group) *db.GroupInfo {
	info := &db.GroupInfo{ID: g.ID, Name: g.Name, CreatorID: g.CreatorID}
	if u, ok := f.users[g.CreatorID]; ok {
		info.CreatorUsername = u.Username
	}
	return info
}

func (f *fakeStore) GetAllGroups(_ context.Context) ([]*db.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.GroupInfo, 0, len(f.groups))
	for _, g := range f.groups {
		out = append(out, f.groupInfoLocked(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetGroupsByMemberStatus(_ context.Context, userID int64, status string) ([]*db.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.GroupInfo, 0)
	for _, m := range f.members {
		if m.UserID != userID || m.Status != status {
			continue
		}
		if g, ok := f.groups[m.GroupID]; ok {
			out = append(out, f.groupInfoLocked(g))
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteGroup(_ context.Context, groupID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.groups[groupID]; !ok {
		return db.ErrNotFound
	}
	delete(f.groups, groupID)

	kept := f.members[:0]
	for _, m := range f.members {
		if m.GroupID != groupID {
			kept = append(kept, m)
		}
	}
	f.members = kept
	return nil
}

func (f *fakeStore) AddMember(_ context.Context, member *db.GroupMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.members {
		if m.GroupID == member.GroupID && m.UserID == member.UserID {
			return db.ErrDuplicate
		}
	}

	f.nextMemberID++
	member.ID = f.nextMemberID
	member.JoinedAt = time.Now()
	cp := *member
	f.members = append(f.members, &cp)
	return nil
}

func (f *fakeStore) GetMember(_ context.Context, groupID, userID int64) (*db.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.members {
		if m.GroupID == groupID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) UpdateMemberStatus(_ context.Context, groupID, userID int64, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.members {
		if m.GroupID == groupID && m.UserID == userID && m.Status == from {
			m.Status = to
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) DeleteMember(_ context.Context, groupID, userID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, m := range f.members {
		if m.GroupID == groupID && m.UserID == userID && m.Status == status {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) GetGroupMembers(_ context.Context, groupID int64) ([]*db.GroupMemberInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.GroupMemberInfo, 0)
	for _, m := range f.members {
		if m.GroupID != groupID {
			continue
		}
		info := &db.GroupMemberInfo{ID: m.ID, Status: m.Status}
		if u, ok := f.users[m.UserID]; ok {
			info.Username = u.Username
		}
		out = append(out, info)
	}
	return out, nil
}

func (f *fakeStore) GetJoinRequestsForCreator(_ context.Context, creatorID int64) ([]*db.JoinRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*db.JoinRequest, 0)
	for _, m := range f.members {
		if m.Status != db.MemberStatusPending {
			continue
		}
		g, ok := f.groups[m.GroupID]
		if !ok || g.CreatorID != creatorID {
			continue
		}
		req := &db.JoinRequest{
			ID:        m.ID,
			GroupID:   m.GroupID,
			UserID:    m.UserID,
			Status:    m.Status,
			JoinedAt:  m.JoinedAt,
			GroupName: g.Name,
		}
		if u, ok := f.users[m.UserID]; ok {
			req.Username = u.Username
		}
		out = append(out, req)
	}
	return out, nil
}

// fakePresence remembers statuses in a map and treats every user with
// a cached status as offline unless marked otherwise.
type fakePresence struct {
	mu       sync.Mutex
	statuses map[string]string
	online   map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{
		statuses: make(map[string]string),
		online:   make(map[string]bool),
	}
}

func (f *fakePresence) SetStatus(_ context.Context, username, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[username] = status
	return nil
}

func (f *fakePresence) GetStatus(_ context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[username]
	if !ok {
		return "", fmt.Errorf("status not cached for %s", username)
	}
	return status, nil
}

func (f *fakePresence) MarkOnline(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[username] = true
	return nil
}

func (f *fakePresence) IsOnline(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[username], nil
}

type sentMail struct {
	To    string
	Token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendConfirmationEmail(to, _, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Token: token})
	return nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	nextID  int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) UploadAttachment(_ context.Context, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	object := fmt.Sprintf("attachments/test/%d", f.nextID)
	f.objects[object] = data
	return object, nil
}

func (f *fakeBlobStore) GetPresignedURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + objectName, nil
}

// testEnv bundles the server under test with the fakes behind it.
type testEnv struct {
	server   *Server
	router   http.Handler
	store    *fakeStore
	presence *fakePresence
	mail     *fakeMailer
	blobs    *fakeBlobStore
	tokens   *jwt.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	pres := newFakePresence()
	mail := &fakeMailer{}
	blobs := newFakeBlobStore()
	tokens := jwt.NewService("test-secret", time.Hour)

	s := &Server{
		users:    store,
		calls:    store,
		signals:  store,
		messages: store,
		groups:   store,
		tokens:   tokens,
		presence: pres,
		mail:     mail,
		blobs:    blobs,
		log:      log.New(io.Discard),
	}

	return &testEnv{
		server:   s,
		router:   s.setupRoutes(),
		store:    store,
		presence: pres,
		mail:     mail,
		blobs:    blobs,
		tokens:   tokens,
	}
}

// createUser seeds a confirmed account directly in the store and
// returns it together with a valid bearer token.
func (e *testEnv) createUser(t *testing.T, username string) (*db.User, string) {
	t.Helper()

	hash, err := password.Hash("password123")
	require.NoError(t, err)

	user := &db.User{
		Username:       username,
		PasswordHash:   string(hash),
		Email:          username + "@example.com",
		PublicKey:      "pk-" + username,
		EmailConfirmed: true,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))

	token, err := e.tokens.CreateToken(username)
	require.NoError(t, err)

	return user, token
}

func (e *testEnv) do(t *testing.T, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
