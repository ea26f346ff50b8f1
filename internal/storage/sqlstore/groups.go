package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// CreateGroup persists a new group with its members.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			s.q("INSERT INTO groups (id, name, total_expense, created_at) VALUES (?, ?, ?, ?)"),
			group.ID, group.Name, group.TotalExpense, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		return s.insertMembers(ctx, tx, group.ID, group.Members)
	})
}

func (s *Store) insertMembers(ctx context.Context, tx *sql.Tx, groupID string, members []string) error {
	for _, member := range members {
		_, err := tx.ExecContext(ctx,
			s.q("INSERT INTO group_members (group_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING"),
			groupID, member,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT id, name, total_expense, created_at FROM groups WHERE id = ?"),
		groupID,
	).Scan(&group.ID, &group.Name, &group.TotalExpense, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Members, err = s.groupMembers(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Store) groupMembers(ctx context.Context, db querier, groupID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		s.q("SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id"),
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// ListGroups returns the groups memberID belongs to, newest first.
// An empty memberID lists every group.
func (s *Store) ListGroups(ctx context.Context, memberID string) ([]*models.Group, error) {
	query := "SELECT id, name, total_expense, created_at FROM groups ORDER BY created_at DESC, id"
	var args []any
	if memberID != "" {
		query = `SELECT g.id, g.name, g.total_expense, g.created_at
			FROM groups g JOIN group_members m ON m.group_id = g.id
			WHERE m.user_id = ?
			ORDER BY g.created_at DESC, g.id`
		args = append(args, memberID)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.TotalExpense, &group.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	// Members are loaded after the cursor is closed; SQLite runs on one connection.
	for _, group := range groups {
		if group.Members, err = s.groupMembers(ctx, s.db, group.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// AddGroupMembers adds members to a group, ignoring ones already present.
func (s *Store) AddGroupMembers(ctx context.Context, groupID string, members []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockGroup(ctx, tx, groupID); err != nil {
			return err
		}
		return s.insertMembers(ctx, tx, groupID, members)
	})
}

// SetGroupTotal overwrites a group's running expense total.
func (s *Store) SetGroupTotal(ctx context.Context, groupID string, total decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, s.q("UPDATE groups SET total_expense = ? WHERE id = ?"), total, groupID)
	if err != nil {
		return fmt.Errorf("failed to set group total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return nil
}

// lockGroup checks the group exists, locking its row on dialects that support it.
func (s *Store) lockGroup(ctx context.Context, tx *sql.Tx, groupID string) error {
	var id string
	err := tx.QueryRowContext(ctx, s.q("SELECT id FROM groups WHERE id = ?"+s.forUpdate()), groupID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group: %w", err)
	}
	return nil
}

// addToGroupTotal adjusts the running total inside an open transaction.
func (s *Store) addToGroupTotal(ctx context.Context, tx *sql.Tx, groupID string, delta decimal.Decimal) error {
	var total decimal.Decimal
	err := tx.QueryRowContext(ctx,
		s.q("SELECT total_expense FROM groups WHERE id = ?"+s.forUpdate()), groupID,
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read group total: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		s.q("UPDATE groups SET total_expense = ? WHERE id = ?"),
		total.Add(delta), groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group total: %w", err)
	}
	return nil
}
