package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// adjustFriendBalance adds amount to what ower owes payer in the cache.
// A negative amount reduces the debt.
func (s *Store) adjustFriendBalance(ctx context.Context, tx *sql.Tx, ower, payer string, amount decimal.Decimal) error {
	if amount.IsZero() || ower == payer {
		return nil
	}
	pair, flipped := calculator.NewPair(ower, payer)
	delta := amount
	if flipped {
		delta = delta.Neg()
	}

	if s.dialect == Postgres {
		// NUMERIC arithmetic is exact, so let the upsert add atomically.
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO friend_balances (user_a, user_b, net) VALUES (?, ?, ?)
			ON CONFLICT (user_a, user_b) DO UPDATE SET net = friend_balances.net + excluded.net`),
			pair.A, pair.B, delta,
		)
		if err != nil {
			return fmt.Errorf("failed to adjust friend balance: %w", err)
		}
		return nil
	}

	// SQLite keeps decimals as TEXT; add in Go. The single connection serializes writers.
	var current decimal.Decimal
	err := tx.QueryRowContext(ctx,
		s.q("SELECT net FROM friend_balances WHERE user_a = ? AND user_b = ?"),
		pair.A, pair.B,
	).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read friend balance: %w", err)
	}
	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO friend_balances (user_a, user_b, net) VALUES (?, ?, ?)
		ON CONFLICT (user_a, user_b) DO UPDATE SET net = excluded.net`),
		pair.A, pair.B, current.Add(delta),
	)
	if err != nil {
		return fmt.Errorf("failed to adjust friend balance: %w", err)
	}
	return nil
}

// GetFriendBalance returns the cached balance between two users. Users with no
// history get a zero balance rather than an error.
func (s *Store) GetFriendBalance(ctx context.Context, userA, userB string) (models.FriendBalance, error) {
	pair, _ := calculator.NewPair(userA, userB)
	fb := models.FriendBalance{UserA: pair.A, UserB: pair.B, Net: decimal.Zero}
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT net FROM friend_balances WHERE user_a = ? AND user_b = ?"),
		pair.A, pair.B,
	).Scan(&fb.Net)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fb, fmt.Errorf("failed to get friend balance: %w", err)
	}
	return fb, nil
}

// ListFriendBalances returns every non-zero cached balance involving userID.
// An empty userID lists the whole cache.
func (s *Store) ListFriendBalances(ctx context.Context, userID string) ([]models.FriendBalance, error) {
	query := "SELECT user_a, user_b, net FROM friend_balances"
	var args []any
	if userID != "" {
		query += " WHERE user_a = ? OR user_b = ?"
		args = append(args, userID, userID)
	}
	query += " ORDER BY user_a, user_b"

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend balances: %w", err)
	}
	defer rows.Close()

	var balances []models.FriendBalance
	for rows.Next() {
		var fb models.FriendBalance
		if err := rows.Scan(&fb.UserA, &fb.UserB, &fb.Net); err != nil {
			return nil, fmt.Errorf("failed to scan friend balance: %w", err)
		}
		if fb.Net.IsZero() {
			continue
		}
		balances = append(balances, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friend balances: %w", err)
	}
	return balances, nil
}

// ReplaceFriendBalances swaps the whole cache for balances in one transaction.
func (s *Store) ReplaceFriendBalances(ctx context.Context, balances []models.FriendBalance) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.replaceFriendBalances(ctx, tx, balances)
	})
}

func (s *Store) replaceFriendBalances(ctx context.Context, tx *sql.Tx, balances []models.FriendBalance) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM friend_balances"); err != nil {
		return fmt.Errorf("failed to clear friend balances: %w", err)
	}
	for _, fb := range balances {
		if fb.Net.IsZero() {
			continue
		}
		pair, flipped := calculator.NewPair(fb.UserA, fb.UserB)
		net := fb.Net
		if flipped {
			net = net.Neg()
		}
		_, err := tx.ExecContext(ctx,
			s.q("INSERT INTO friend_balances (user_a, user_b, net) VALUES (?, ?, ?)"),
			pair.A, pair.B, net,
		)
		if err != nil {
			return fmt.Errorf("failed to insert friend balance: %w", err)
		}
	}
	return nil
}

// RebuildFriendBalances recomputes the cache from open obligations and, if any
// pair drifted, replaces it. Obligation writes are blocked until it commits.
func (s *Store) RebuildFriendBalances(ctx context.Context) (storage.FriendBalanceRebuild, error) {
	var result storage.FriendBalanceRebuild
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if s.dialect == Postgres {
			if _, err := tx.ExecContext(ctx, "LOCK TABLE obligations IN SHARE MODE"); err != nil {
				return fmt.Errorf("failed to lock obligations: %w", err)
			}
		}

		obligations, err := s.queryObligations(ctx, tx,
			"SELECT "+obligationColumns+" FROM obligations WHERE is_settled = ?", false)
		if err != nil {
			return err
		}
		expected := calculator.Aggregate(obligations)

		cached, err := s.cachedFriendBalances(ctx, tx)
		if err != nil {
			return err
		}

		result = storage.FriendBalanceRebuild{Pairs: len(expected)}
		for _, pair := range expected.Pairs() {
			if got, ok := cached[pair]; !ok || !got.Equal(expected[pair]) {
				result.Drift = append(result.Drift, storage.FriendBalanceDrift{
					UserA: pair.A, UserB: pair.B, Cached: cached[pair], Expected: expected[pair],
				})
			}
		}
		for _, pair := range cached.Pairs() {
			if _, ok := expected[pair]; !ok && !cached[pair].IsZero() {
				result.Drift = append(result.Drift, storage.FriendBalanceDrift{
					UserA: pair.A, UserB: pair.B, Cached: cached[pair], Expected: decimal.Zero,
				})
			}
		}
		if len(result.Drift) == 0 {
			return nil
		}

		balances := make([]models.FriendBalance, 0, len(expected))
		for _, pair := range expected.Pairs() {
			balances = append(balances, models.FriendBalance{UserA: pair.A, UserB: pair.B, Net: expected[pair]})
		}
		return s.replaceFriendBalances(ctx, tx, balances)
	})
	if err != nil {
		return storage.FriendBalanceRebuild{}, err
	}
	return result, nil
}

func (s *Store) cachedFriendBalances(ctx context.Context, tx *sql.Tx) (calculator.BalanceMap, error) {
	rows, err := tx.QueryContext(ctx, "SELECT user_a, user_b, net FROM friend_balances")
	if err != nil {
		return nil, fmt.Errorf("failed to list friend balances: %w", err)
	}
	defer rows.Close()

	cached := make(calculator.BalanceMap)
	for rows.Next() {
		var a, b string
		var net decimal.Decimal
		if err := rows.Scan(&a, &b, &net); err != nil {
			return nil, fmt.Errorf("failed to scan friend balance: %w", err)
		}
		pair, flipped := calculator.NewPair(a, b)
		if flipped {
			net = net.Neg()
		}
		cached[pair] = cached[pair].Add(net)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friend balances: %w", err)
	}
	return cached, nil
}
