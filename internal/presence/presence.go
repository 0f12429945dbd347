package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const onlineTTLSeconds = 300

// Manager caches user presence in valkey: a status key per user plus
// an online_users set with a TTL'd session marker. Postgres stays the
// source of truth for status; this is a read-through cache, and
// callers must treat every failure here as non-fatal.
type Manager struct {
	client valkey.Client
}

// NewManager connects to valkey and verifies the connection.
func NewManager(addr, password string) (*Manager, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	return &Manager{client: client}, nil
}

// SetStatus caches a user's presence status.
func (m *Manager) SetStatus(ctx context.Context, username, status string) error {
	setCmd := m.client.B().Set().
		Key(statusKey(username)).
		Value(status).
		Build()

	if err := m.client.Do(ctx, setCmd).Error(); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	return nil
}

// GetStatus returns the cached status, or valkey.Nil-backed error on
// a miss; callers fall back to the database then.
func (m *Manager) GetStatus(ctx context.Context, username string) (string, error) {
	getCmd := m.client.B().Get().Key(statusKey(username)).Build()

	result := m.client.Do(ctx, getCmd)
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return "", fmt.Errorf("status not cached")
		}
		return "", fmt.Errorf("failed to get status: %w", err)
	}

	status, err := result.ToString()
	if err != nil {
		return "", fmt.Errorf("failed to parse status: %w", err)
	}

	return status, nil
}

// MarkOnline records the user as online. The session key expires on
// its own if the client goes silent.
func (m *Manager) MarkOnline(ctx context.Context, username string) error {
	setCmd := m.client.B().Set().
		Key(sessionKey(username)).
		Value(time.Now().Format(time.RFC3339)).
		Ex(onlineTTLSeconds * time.Second).
		Build()

	if err := m.client.Do(ctx, setCmd).Error(); err != nil {
		return fmt.Errorf("failed to mark online: %w", err)
	}

	saddCmd := m.client.B().Sadd().
		Key("online_users").
		Member(username).
		Build()

	if err := m.client.Do(ctx, saddCmd).Error(); err != nil {
		return fmt.Errorf("failed to add to online users: %w", err)
	}

	return nil
}

// MarkOffline removes the user's online markers.
func (m *Manager) MarkOffline(ctx context.Context, username string) error {
	delCmd := m.client.B().Del().Key(sessionKey(username)).Build()
	if err := m.client.Do(ctx, delCmd).Error(); err != nil {
		return fmt.Errorf("failed to delete session marker: %w", err)
	}

	sremCmd := m.client.B().Srem().
		Key("online_users").
		Member(username).
		Build()

	if err := m.client.Do(ctx, sremCmd).Error(); err != nil {
		return fmt.Errorf("failed to remove from online users: %w", err)
	}

	return nil
}

// IsOnline checks the TTL'd session marker, not the set, so stale
// entries read as offline.
func (m *Manager) IsOnline(ctx context.Context, username string) (bool, error) {
	existsCmd := m.client.B().Exists().Key(sessionKey(username)).Build()

	val, err := m.client.Do(ctx, existsCmd).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check online status: %w", err)
	}

	return val == 1, nil
}

// Close closes the client connection
func (m *Manager) Close() {
	m.client.Close()
}

func statusKey(username string) string {
	return fmt.Sprintf("status:%s", username)
}

func sessionKey(username string) string {
	return fmt.Sprintf("session:%s", username)
}
