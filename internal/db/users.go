package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password_hash, email, public_key, email_confirmed, confirmation_token, status`

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (username, password_hash, email, public_key, confirmation_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email_confirmed, status
	`

	err := s.db.QueryRow(
		ctx,
		query,
		user.Username,
		user.PasswordHash,
		user.Email,
		user.PublicKey,
		user.ConfirmationToken,
	).Scan(&user.ID, &user.EmailConfirmed, &user.Status)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetUsers(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.getUser(ctx, query, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return s.getUser(ctx, query, username)
}

// GetUserByLogin matches either the username or the email column, for
// login forms that accept both.
func (s *PostgresStore) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	return s.getUser(ctx, query, login)
}

func (s *PostgresStore) GetUserByConfirmationToken(ctx context.Context, token string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE confirmation_token = $1`
	return s.getUser(ctx, query, token)
}

// ConfirmEmail marks the address confirmed and invalidates the token.
func (s *PostgresStore) ConfirmEmail(ctx context.Context, userID int64) error {
	query := `UPDATE users SET email_confirmed = TRUE, confirmation_token = NULL WHERE id = $1`

	result, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	return nil
}

func (s *PostgresStore) UpdateUserStatus(ctx context.Context, userID int64, status string) error {
	query := `UPDATE users SET status = $2 WHERE id = $1`

	result, err := s.db.Exec(ctx, query, userID, status)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	return nil
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.PublicKey,
		&user.EmailConfirmed,
		&user.ConfirmationToken,
		&user.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func scanUsers(rows pgx.Rows) ([]*User, error) {
	users := []*User{}
	for rows.Next() {
		user := &User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.PasswordHash,
			&user.Email,
			&user.PublicKey,
			&user.EmailConfirmed,
			&user.ConfirmationToken,
			&user.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
