package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateCallSession inserts a new session row. Concurrent joiners race
// on the primary key; the loser gets ErrDuplicate.
func (s *PostgresStore) CreateCallSession(ctx context.Context, session *CallSession) error {
	query := `
		INSERT INTO call_sessions (id, session_key, creator)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := s.db.QueryRow(ctx, query, session.ID, session.SessionKey, session.Creator).
		Scan(&session.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("call session %q: %w", session.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create call session: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetCallSession(ctx context.Context, callID string) (*CallSession, error) {
	query := `SELECT id, session_key, creator, created_at FROM call_sessions WHERE id = $1`

	session := &CallSession{}
	err := s.db.QueryRow(ctx, query, callID).Scan(
		&session.ID,
		&session.SessionKey,
		&session.Creator,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("call session %q: %w", callID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get call session: %w", err)
	}

	return session, nil
}

func (s *PostgresStore) GetCallSessionsByIDs(ctx context.Context, callIDs []string) ([]*CallSession, error) {
	if len(callIDs) == 0 {
		return []*CallSession{}, nil
	}

	query := `
		SELECT id, session_key, creator, created_at
		FROM call_sessions
		WHERE id = ANY($1)
		ORDER BY created_at
	`

	rows, err := s.db.Query(ctx, query, callIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get call sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*CallSession{}
	for rows.Next() {
		session := &CallSession{}
		err := rows.Scan(&session.ID, &session.SessionKey, &session.Creator, &session.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating call sessions: %w", err)
	}

	return sessions, nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, part *Participant) error {
	query := `
		INSERT INTO participants (call_id, user_id)
		VALUES ($1, $2)
		RETURNING id, joined_at
	`

	err := s.db.QueryRow(ctx, query, part.CallID, part.UserID).Scan(&part.ID, &part.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	return nil
}

// RemoveParticipant deletes all of the user's rows for the call. Both
// leave and invitation-accept go through here; missing rows are fine.
func (s *PostgresStore) RemoveParticipant(ctx context.Context, callID, username string) error {
	query := `DELETE FROM participants WHERE call_id = $1 AND user_id = $2`

	if _, err := s.db.Exec(ctx, query, callID, username); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetParticipants(ctx context.Context, callID string) ([]*Participant, error) {
	query := `
		SELECT id, call_id, user_id, joined_at
		FROM participants
		WHERE call_id = $1
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	return scanParticipants(rows)
}

func (s *PostgresStore) GetParticipation(ctx context.Context, callID, username string) (*Participant, error) {
	query := `
		SELECT id, call_id, user_id, joined_at
		FROM participants
		WHERE call_id = $1 AND user_id = $2
		LIMIT 1
	`

	part := &Participant{}
	err := s.db.QueryRow(ctx, query, callID, username).Scan(
		&part.ID,
		&part.CallID,
		&part.UserID,
		&part.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("participant: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return part, nil
}

func (s *PostgresStore) GetParticipationsByUser(ctx context.Context, username string) ([]*Participant, error) {
	query := `
		SELECT id, call_id, user_id, joined_at
		FROM participants
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations: %w", err)
	}
	defer rows.Close()

	return scanParticipants(rows)
}

// DeleteCallData tears down a call: signaling rows, participants and
// the session itself, in one transaction-shaped sweep.
func (s *PostgresStore) DeleteCallData(ctx context.Context, callID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM signaling_data WHERE call_id = $1`, callID); err != nil {
		return fmt.Errorf("failed to delete signaling rows: %w", err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM participants WHERE call_id = $1`, callID); err != nil {
		return fmt.Errorf("failed to delete participants: %w", err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM call_sessions WHERE id = $1`, callID); err != nil {
		return fmt.Errorf("failed to delete call session: %w", err)
	}

	return nil
}

func scanParticipants(rows pgx.Rows) ([]*Participant, error) {
	parts := []*Participant{}
	for rows.Next() {
		part := &Participant{}
		err := rows.Scan(&part.ID, &part.CallID, &part.UserID, &part.JoinedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		parts = append(parts, part)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return parts, nil
}
