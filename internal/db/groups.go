package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) CreateGroup(ctx context.Context, group *Group) error {
	query := `
		INSERT INTO groups (name, creator_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := s.db.QueryRow(ctx, query, group.Name, group.CreatorID).
		Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, groupID int64) (*Group, error) {
	query := `SELECT id, name, creator_id, created_at FROM groups WHERE id = $1`

	group := &Group{}
	err := s.db.QueryRow(ctx, query, groupID).Scan(
		&group.ID,
		&group.Name,
		&group.CreatorID,
		&group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("group %d: %w", groupID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

func (s *PostgresStore) GetAllGroups(ctx context.Context) ([]*GroupInfo, error) {
	query := `
		SELECT g.id, g.name, g.creator_id, u.username
		FROM groups g
		JOIN users u ON g.creator_id = u.id
		ORDER BY g.id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	defer rows.Close()

	return scanGroupInfos(rows)
}

// GetGroupsByMemberStatus lists groups where the user has a membership
// row in the given status, joined with the creator's username.
func (s *PostgresStore) GetGroupsByMemberStatus(ctx context.Context, userID int64, status string) ([]*GroupInfo, error) {
	query := `
		SELECT g.id, g.name, g.creator_id, u.username
		FROM groups g
		JOIN users u ON g.creator_id = u.id
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = $1 AND gm.status = $2
		ORDER BY g.id
	`

	rows, err := s.db.Query(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups by member status: %w", err)
	}
	defer rows.Close()

	return scanGroupInfos(rows)
}

// DeleteGroup removes the group; membership rows go with it via the
// FK cascade.
func (s *PostgresStore) DeleteGroup(ctx context.Context, groupID int64) error {
	result, err := s.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("group %d: %w", groupID, ErrNotFound)
	}

	return nil
}

func (s *PostgresStore) AddMember(ctx context.Context, member *GroupMember) error {
	query := `
		INSERT INTO group_members (group_id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at
	`

	err := s.db.QueryRow(ctx, query, member.GroupID, member.UserID, member.Status).
		Scan(&member.ID, &member.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("membership: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to add group member: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetMember(ctx context.Context, groupID, userID int64) (*GroupMember, error) {
	query := `
		SELECT id, group_id, user_id, status, joined_at
		FROM group_members
		WHERE group_id = $1 AND user_id = $2
	`

	member := &GroupMember{}
	err := s.db.QueryRow(ctx, query, groupID, userID).Scan(
		&member.ID,
		&member.GroupID,
		&member.UserID,
		&member.Status,
		&member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("group member: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}

	return member, nil
}

// UpdateMemberStatus transitions a membership row from one status to
// another. ErrNotFound means no row was in the expected from-status.
func (s *PostgresStore) UpdateMemberStatus(ctx context.Context, groupID, userID int64, from, to string) error {
	query := `
		UPDATE group_members
		SET status = $4
		WHERE group_id = $1 AND user_id = $2 AND status = $3
	`

	result, err := s.db.Exec(ctx, query, groupID, userID, from, to)
	if err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("group member in status %q: %w", from, ErrNotFound)
	}

	return nil
}

// DeleteMember removes a membership row that is in the given status.
func (s *PostgresStore) DeleteMember(ctx context.Context, groupID, userID int64, status string) error {
	query := `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2 AND status = $3`

	result, err := s.db.Exec(ctx, query, groupID, userID, status)
	if err != nil {
		return fmt.Errorf("failed to delete group member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("group member in status %q: %w", status, ErrNotFound)
	}

	return nil
}

func (s *PostgresStore) GetGroupMembers(ctx context.Context, groupID int64) ([]*GroupMemberInfo, error) {
	query := `
		SELECT gm.id, gm.status, u.username
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.id
	`

	rows, err := s.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	members := []*GroupMemberInfo{}
	for rows.Next() {
		m := &GroupMemberInfo{}
		if err := rows.Scan(&m.ID, &m.Status, &m.Username); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group members: %w", err)
	}

	return members, nil
}

// GetJoinRequestsForCreator lists pending join requests across every
// group the user created.
func (s *PostgresStore) GetJoinRequestsForCreator(ctx context.Context, creatorID int64) ([]*JoinRequest, error) {
	query := `
		SELECT gm.id, gm.group_id, gm.user_id, gm.status, gm.joined_at, g.name, u.username
		FROM group_members gm
		JOIN groups g ON gm.group_id = g.id
		JOIN users u ON gm.user_id = u.id
		WHERE g.creator_id = $1 AND gm.status = $2
		ORDER BY gm.id
	`

	rows, err := s.db.Query(ctx, query, creatorID, MemberStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to get join requests: %w", err)
	}
	defer rows.Close()

	requests := []*JoinRequest{}
	for rows.Next() {
		r := &JoinRequest{}
		err := rows.Scan(&r.ID, &r.GroupID, &r.UserID, &r.Status, &r.JoinedAt, &r.GroupName, &r.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		requests = append(requests, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating join requests: %w", err)
	}

	return requests, nil
}

func scanGroupInfos(rows pgx.Rows) ([]*GroupInfo, error) {
	groups := []*GroupInfo{}
	for rows.Next() {
		g := &GroupInfo{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatorID, &g.CreatorUsername); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}
