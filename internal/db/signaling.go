package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) CreateSignal(ctx context.Context, sig *Signal) error {
	query := `
		INSERT INTO signaling_data (call_id, sender, target_user, type, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.db.QueryRow(
		ctx,
		query,
		sig.CallID,
		sig.Sender,
		sig.TargetUser,
		sig.Type,
		sig.Content,
	).Scan(&sig.ID)
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}

	return nil
}

// GetSignals returns every row for the call/type addressed to forUser,
// in insertion order. Clients poll this on an interval.
func (s *PostgresStore) GetSignals(ctx context.Context, callID, signalType, forUser string) ([]*Signal, error) {
	query := `
		SELECT id, call_id, sender, target_user, type, content
		FROM signaling_data
		WHERE call_id = $1 AND type = $2 AND target_user = $3
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, callID, signalType, forUser)
	if err != nil {
		return nil, fmt.Errorf("failed to get signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetInboundOffers finds offers for calls whose id ends with
// "_<username>". Direct-call ids embed the callee's name, so this is
// how a client discovers it is being rung.
func (s *PostgresStore) GetInboundOffers(ctx context.Context, username string) ([]*Signal, error) {
	query := `
		SELECT id, call_id, sender, target_user, type, content
		FROM signaling_data
		WHERE call_id LIKE '%_' || $1 AND type = $2
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, username, SignalTypeOffer)
	if err != nil {
		return nil, fmt.Errorf("failed to get inbound offers: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

func scanSignals(rows pgx.Rows) ([]*Signal, error) {
	signals := []*Signal{}
	for rows.Next() {
		sig := &Signal{}
		err := rows.Scan(&sig.ID, &sig.CallID, &sig.Sender, &sig.TargetUser, &sig.Type, &sig.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return signals, nil
}
