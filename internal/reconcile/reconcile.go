// Package reconcile rebuilds the denormalized caches from their source of truth:
// friend balances from open obligations and group totals from expenses.
//
// Every write path already keeps the caches in step inside its own transaction.
// The reconciler is the safety net that detects and repairs drift.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/metrics"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// Store is the storage the reconciler reads and repairs.
type Store interface {
	RebuildFriendBalances(ctx context.Context) (storage.FriendBalanceRebuild, error)
	ListGroups(ctx context.Context, memberID string) ([]*models.Group, error)
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
	SetGroupTotal(ctx context.Context, groupID string, total decimal.Decimal) error
}

// Report summarizes one reconciliation pass.
type Report struct {
	FriendPairs int
	FriendDrift int
	Groups      int
	GroupDrift  int
	FixedCaches bool
	Duration    time.Duration
}

// Reconciler compares caches against recomputed values and overwrites them.
type Reconciler struct {
	store  Store
	logger *slog.Logger
}

// New creates a Reconciler.
func New(store Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// RunOnce runs a single pass.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	var report Report

	if err := r.friendBalances(ctx, &report); err != nil {
		return report, err
	}
	if err := r.groupTotals(ctx, &report); err != nil {
		return report, err
	}

	report.FixedCaches = report.FriendDrift > 0 || report.GroupDrift > 0
	report.Duration = time.Since(start)
	r.logger.InfoContext(ctx, "Reconciliation finished",
		"friend_pairs", report.FriendPairs,
		"friend_drift", report.FriendDrift,
		"groups", report.Groups,
		"group_drift", report.GroupDrift,
		"duration", report.Duration,
	)
	return report, nil
}

func (r *Reconciler) friendBalances(ctx context.Context, report *Report) error {
	rebuild, err := r.store.RebuildFriendBalances(ctx)
	if err != nil {
		return err
	}
	report.FriendPairs = rebuild.Pairs
	report.FriendDrift = len(rebuild.Drift)
	for _, d := range rebuild.Drift {
		r.logger.WarnContext(ctx, "Friend balance drifted",
			"user_a", d.UserA,
			"user_b", d.UserB,
			"cached", d.Cached.String(),
			"expected", d.Expected.String(),
		)
	}
	if report.FriendDrift > 0 {
		metrics.ReconcileDrift.WithLabelValues("friend_balance").Add(float64(report.FriendDrift))
	}
	return nil
}

func (r *Reconciler) groupTotals(ctx context.Context, report *Report) error {
	groups, err := r.store.ListGroups(ctx, "")
	if err != nil {
		return err
	}
	report.Groups = len(groups)

	for _, group := range groups {
		expenses, err := r.store.ListExpensesByGroup(ctx, group.ID)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, e := range expenses {
			total = total.Add(e.Amount)
		}
		if total.Equal(group.TotalExpense) {
			continue
		}

		report.GroupDrift++
		metrics.ReconcileDrift.WithLabelValues("group_total").Inc()
		r.logger.WarnContext(ctx, "Group total drifted",
			"group_id", group.ID,
			"cached", group.TotalExpense.String(),
			"expected", total.String(),
		)
		if err := r.store.SetGroupTotal(ctx, group.ID, total); err != nil {
			return err
		}
	}
	return nil
}

// Run reconciles every interval until ctx is cancelled. Failed passes are
// logged and retried on the next tick.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "Reconciliation failed", "error", err)
			}
		}
	}
}
