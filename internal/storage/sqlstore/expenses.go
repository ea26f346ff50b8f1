package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

const expenseColumns = "id, title, payer_id, amount, group_id, created_at"

// CreateExpense stores an expense, its participants and its obligations in one
// transaction. The group running total and the friend balance cache move with it.
// IDs are assigned in place on expense and on the obligations slice.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense, obligations []models.Obligation) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if expense.GroupID != "" {
			if err := s.addToGroupTotal(ctx, tx, expense.GroupID, expense.Amount); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO expenses (`+expenseColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)`),
			expense.ID,
			expense.Title,
			expense.PayerID,
			expense.Amount,
			nullable(expense.GroupID),
			expense.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		for _, p := range expense.Participants {
			_, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO expense_participants (expense_id, user_id, share, is_settled)
				VALUES (?, ?, ?, ?)`),
				expense.ID, p.UserID, p.Share, p.IsSettled,
			)
			if err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}

		for i := range obligations {
			ob := &obligations[i]
			ob.ExpenseID = expense.ID
			ob.GroupID = expense.GroupID
			if ob.CreatedAt == 0 {
				ob.CreatedAt = expense.CreatedAt
			}
			if err := s.insertObligation(ctx, tx, ob); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetExpense retrieves an expense with its participants.
func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, s.q("SELECT "+expenseColumns+" FROM expenses WHERE id = ?"), expenseID)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if expense.Participants, err = s.participants(ctx, expenseID); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpensesByGroup returns a group's expenses, newest first.
func (s *Store) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? ORDER BY created_at DESC, id"),
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	for _, expense := range expenses {
		if expense.Participants, err = s.participants(ctx, expense.ID); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (s *Store) participants(ctx context.Context, expenseID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT user_id, share, is_settled FROM expense_participants WHERE expense_id = ? ORDER BY user_id"),
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserID, &p.Share, &p.IsSettled); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, nil
}

func scanExpense(row scanner) (*models.Expense, error) {
	expense := &models.Expense{}
	var groupID sql.NullString
	err := row.Scan(
		&expense.ID,
		&expense.Title,
		&expense.PayerID,
		&expense.Amount,
		&groupID,
		&expense.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	expense.GroupID = groupID.String
	return expense, nil
}

// DeleteExpense removes an expense, its obligations and their settlements. The
// outstanding amounts leave the friend balance cache and the expense amount
// leaves the group total, all in one transaction.
func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			s.q("SELECT "+expenseColumns+" FROM expenses WHERE id = ?"+s.forUpdate()),
			expenseID,
		)
		expense, err := scanExpense(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get expense: %w", err)
		}

		obligations, err := s.queryObligations(ctx, tx,
			"SELECT "+obligationColumns+" FROM obligations WHERE expense_id = ?"+s.forUpdate(),
			expenseID,
		)
		if err != nil {
			return err
		}
		for i := range obligations {
			ob := &obligations[i]
			if err := s.adjustFriendBalance(ctx, tx, ob.OwerID, ob.PayerID, ob.Outstanding().Neg()); err != nil {
				return err
			}
		}

		stmts := []string{
			"DELETE FROM settlements WHERE obligation_id IN (SELECT id FROM obligations WHERE expense_id = ?)",
			"DELETE FROM obligations WHERE expense_id = ?",
			"DELETE FROM expense_participants WHERE expense_id = ?",
			"DELETE FROM expenses WHERE id = ?",
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, s.q(stmt), expenseID); err != nil {
				return fmt.Errorf("failed to delete expense: %w", err)
			}
		}

		if expense.GroupID != "" {
			return s.addToGroupTotal(ctx, tx, expense.GroupID, expense.Amount.Neg())
		}
		return nil
	})
}
