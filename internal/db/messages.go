package db

import (
	"context"
	"fmt"
)

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (sender_id, receiver_id, content, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, timestamp
	`

	if msg.Status == "" {
		msg.Status = MessageStatusSent
	}

	err := s.db.QueryRow(
		ctx,
		query,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content,
		msg.Status,
	).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetConversation returns the full two-way history between two users,
// oldest first.
func (s *PostgresStore) GetConversation(ctx context.Context, userID, peerID int64) ([]*Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, content, timestamp, status
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY timestamp
	`

	rows, err := s.db.Query(ctx, query, userID, peerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		msg := &Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Content,
			&msg.Timestamp,
			&msg.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, receiverID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND status = $2`

	var count int64
	err := s.db.QueryRow(ctx, query, receiverID, MessageStatusSent).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return count, nil
}

// MarkSeen flips sent messages from senderID to receiverID to seen and
// reports how many rows changed. The opposite direction is untouched,
// and seen never reverts to sent.
func (s *PostgresStore) MarkSeen(ctx context.Context, senderID, receiverID int64) (int64, error) {
	query := `
		UPDATE messages
		SET status = $3
		WHERE sender_id = $1 AND receiver_id = $2 AND status = $4
	`

	result, err := s.db.Exec(ctx, query, senderID, receiverID, MessageStatusSeen, MessageStatusSent)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages seen: %w", err)
	}

	return result.RowsAffected(), nil
}
