package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

const obligationColumns = `id, expense_id, payer_id, ower_id, amount, settled_amount, group_id,
	is_settled, settled_via, created_at, settled_at`

func (s *Store) insertObligation(ctx context.Context, tx *sql.Tx, ob *models.Obligation) error {
	if ob.ID == "" {
		ob.ID = uuid.New().String()
	}
	if ob.CreatedAt == 0 {
		ob.CreatedAt = time.Now().Unix()
	}
	_, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO obligations (`+obligationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		ob.ID,
		nullable(ob.ExpenseID),
		ob.PayerID,
		ob.OwerID,
		ob.Amount,
		ob.SettledAmount,
		nullable(ob.GroupID),
		ob.IsSettled,
		nullable(ob.SettledVia),
		ob.CreatedAt,
		ob.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert obligation: %w", err)
	}
	return s.adjustFriendBalance(ctx, tx, ob.OwerID, ob.PayerID, ob.Outstanding())
}

// CreateObligation stores an obligation recorded as a direct transaction.
func (s *Store) CreateObligation(ctx context.Context, ob *models.Obligation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if ob.GroupID != "" {
			if err := s.lockGroup(ctx, tx, ob.GroupID); err != nil {
				return err
			}
		}
		return s.insertObligation(ctx, tx, ob)
	})
}

// GetObligation retrieves an obligation by ID.
func (s *Store) GetObligation(ctx context.Context, obligationID string) (*models.Obligation, error) {
	return s.getObligation(ctx, s.db, obligationID, "")
}

func (s *Store) getObligation(ctx context.Context, db querier, obligationID, suffix string) (*models.Obligation, error) {
	row := db.QueryRowContext(ctx,
		s.q("SELECT "+obligationColumns+" FROM obligations WHERE id = ?"+suffix),
		obligationID,
	)
	ob, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("obligation %s: %w", obligationID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get obligation: %w", err)
	}
	return &ob, nil
}

// ListObligations returns the obligations matching filter, oldest first.
func (s *Store) ListObligations(ctx context.Context, filter storage.ObligationFilter) ([]models.Obligation, error) {
	where, args := obligationWhere(filter)
	query := "SELECT " + obligationColumns + " FROM obligations"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at, id"
	return s.queryObligations(ctx, s.db, query, args...)
}

func obligationWhere(f storage.ObligationFilter) (string, []any) {
	var conds []string
	var args []any

	switch {
	case f.UserID != "" && f.CounterpartyID != "":
		conds = append(conds, "((ower_id = ? AND payer_id = ?) OR (ower_id = ? AND payer_id = ?))")
		args = append(args, f.UserID, f.CounterpartyID, f.CounterpartyID, f.UserID)
	case f.UserID != "":
		conds = append(conds, "(ower_id = ? OR payer_id = ?)")
		args = append(args, f.UserID, f.UserID)
	}
	if f.GroupID != "" {
		conds = append(conds, "group_id = ?")
		args = append(args, f.GroupID)
	}
	if f.ExpenseID != "" {
		conds = append(conds, "expense_id = ?")
		args = append(args, f.ExpenseID)
	}
	if f.Settled != nil {
		conds = append(conds, "is_settled = ?")
		args = append(args, *f.Settled)
	}
	if f.Since != 0 {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since)
	}
	if f.Until != 0 {
		conds = append(conds, "created_at < ?")
		args = append(args, f.Until)
	}
	return strings.Join(conds, " AND "), args
}

func (s *Store) queryObligations(ctx context.Context, db querier, query string, args ...any) ([]models.Obligation, error) {
	rows, err := db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []models.Obligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		obligations = append(obligations, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating obligations: %w", err)
	}
	return obligations, nil
}

func scanObligation(row scanner) (models.Obligation, error) {
	var ob models.Obligation
	var expenseID, groupID, settledVia sql.NullString
	err := row.Scan(
		&ob.ID,
		&expenseID,
		&ob.PayerID,
		&ob.OwerID,
		&ob.Amount,
		&ob.SettledAmount,
		&groupID,
		&ob.IsSettled,
		&settledVia,
		&ob.CreatedAt,
		&ob.SettledAt,
	)
	if err != nil {
		return ob, err
	}
	ob.ExpenseID = expenseID.String
	ob.GroupID = groupID.String
	ob.SettledVia = settledVia.String
	return ob, nil
}

// ApplySettlement records settlement against its obligation as a compare-and-set
// on the obligation's settled amount. When the obligation is already settled the
// current obligation is returned together with storage.ErrAlreadySettled.
func (s *Store) ApplySettlement(ctx context.Context, settlement *models.Settlement, expectedSettled decimal.Decimal) (*models.Obligation, error) {
	var result *models.Obligation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ob, err := s.getObligation(ctx, tx, settlement.ObligationID, s.forUpdate())
		if err != nil {
			return err
		}
		if ob.IsSettled {
			result = ob
			return storage.ErrAlreadySettled
		}
		if !ob.SettledAmount.Equal(expectedSettled) {
			return fmt.Errorf("obligation %s settled amount is %s, expected %s: %w",
				ob.ID, ob.SettledAmount, expectedSettled, storage.ErrConflict)
		}
		if !settlement.Amount.IsPositive() || settlement.Amount.GreaterThan(ob.Outstanding()) {
			return fmt.Errorf("settlement amount %s outside (0, %s]", settlement.Amount, ob.Outstanding())
		}

		if settlement.ID == "" {
			settlement.ID = uuid.New().String()
		}
		if settlement.CreatedAt == 0 {
			settlement.CreatedAt = time.Now().Unix()
		}
		settlement.GroupID = ob.GroupID
		settlement.FromUserID = ob.OwerID
		settlement.ToUserID = ob.PayerID

		updated := *ob
		updated.SettledAmount = ob.SettledAmount.Add(settlement.Amount)
		updated.SettledVia = settlement.ID
		if updated.SettledAmount.GreaterThanOrEqual(ob.Amount) {
			updated.IsSettled = true
			updated.SettledAt = settlement.CreatedAt
		}

		res, err := tx.ExecContext(ctx, s.q(`
			UPDATE obligations
			SET settled_amount = ?, is_settled = ?, settled_via = ?, settled_at = ?
			WHERE id = ? AND is_settled = ? AND settled_amount = ?`),
			updated.SettledAmount, updated.IsSettled, updated.SettledVia, updated.SettledAt,
			ob.ID, false, expectedSettled,
		)
		if err != nil {
			return fmt.Errorf("failed to update obligation: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			return fmt.Errorf("obligation %s changed during settlement: %w", ob.ID, storage.ErrConflict)
		}

		if err := s.insertSettlement(ctx, tx, settlement); err != nil {
			return err
		}
		if updated.IsSettled && ob.ExpenseID != "" {
			_, err := tx.ExecContext(ctx,
				s.q("UPDATE expense_participants SET is_settled = ? WHERE expense_id = ? AND user_id = ?"),
				true, ob.ExpenseID, ob.OwerID,
			)
			if err != nil {
				return fmt.Errorf("failed to mark participant settled: %w", err)
			}
		}
		if err := s.adjustFriendBalance(ctx, tx, ob.OwerID, ob.PayerID, settlement.Amount.Neg()); err != nil {
			return err
		}
		result = &updated
		return nil
	})
	if errors.Is(err, storage.ErrAlreadySettled) {
		return result, err
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
