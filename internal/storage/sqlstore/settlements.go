package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitwiser/internal/models"
)

const settlementColumns = `id, obligation_id, group_id, from_user_id, to_user_id, amount, method,
	created_at, created_by, note`

// insertSettlement appends st to its obligation's history under the next seq.
// The caller must already hold the obligation row.
func (s *Store) insertSettlement(ctx context.Context, tx *sql.Tx, st *models.Settlement) error {
	var seq int64
	err := tx.QueryRowContext(ctx,
		s.q("SELECT COALESCE(MAX(seq), 0) + 1 FROM settlements WHERE obligation_id = ?"),
		st.ObligationID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to number settlement: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO settlements (`+settlementColumns+`, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		st.ID,
		st.ObligationID,
		nullable(st.GroupID),
		st.FromUserID,
		st.ToUserID,
		st.Amount,
		string(st.Method),
		st.CreatedAt,
		st.CreatedBy,
		st.Note,
		seq,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// ListSettlements returns the payments applied to an obligation in the order
// they were applied.
func (s *Store) ListSettlements(ctx context.Context, obligationID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+settlementColumns+" FROM settlements WHERE obligation_id = ? ORDER BY seq"),
		obligationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		st := &models.Settlement{}
		var groupID sql.NullString
		var method string
		err := rows.Scan(
			&st.ID,
			&st.ObligationID,
			&groupID,
			&st.FromUserID,
			&st.ToUserID,
			&st.Amount,
			&method,
			&st.CreatedAt,
			&st.CreatedBy,
			&st.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		st.GroupID = groupID.String
		st.Method = models.SettlementMethod(method)
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settlements: %w", err)
	}
	return settlements, nil
}
