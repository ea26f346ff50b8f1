package reconcile

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRunOnceRepairsDrift(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	group := &models.Group{Name: "Trip", Members: []string{"alice", "bob", "carol"}}
	require.NoError(t, store.CreateGroup(ctx, group))

	expense := &models.Expense{
		Title: "Cabin", PayerID: "alice", Amount: dec("300"), GroupID: group.ID,
		Participants: []models.Participant{
			{UserID: "alice", Share: dec("100")},
			{UserID: "bob", Share: dec("100")},
			{UserID: "carol", Share: dec("100")},
		},
	}
	obligations := []models.Obligation{
		{OwerID: "bob", PayerID: "alice", Amount: dec("100"), SettledAmount: decimal.Zero},
		{OwerID: "carol", PayerID: "alice", Amount: dec("100"), SettledAmount: decimal.Zero},
	}
	require.NoError(t, store.CreateExpense(ctx, expense, obligations))

	r := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	report, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, report.FixedCaches, "fresh writes should leave nothing to fix")
	assert.Equal(t, 2, report.FriendPairs)

	// Corrupt both caches.
	require.NoError(t, store.ReplaceFriendBalances(ctx, []models.FriendBalance{
		{UserA: "alice", UserB: "bob", Net: dec("-90")},
		{UserA: "dave", UserB: "erin", Net: dec("5")},
	}))
	require.NoError(t, store.SetGroupTotal(ctx, group.ID, dec("1")))

	report, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.FriendDrift, "wrong, missing and stale pairs")
	assert.Equal(t, 1, report.GroupDrift)

	fb, err := store.GetFriendBalance(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, fb.NetFor("bob").Equal(dec("100")), "bob owes alice %s", fb.NetFor("bob"))

	stale, err := store.GetFriendBalance(ctx, "dave", "erin")
	require.NoError(t, err)
	assert.True(t, stale.Net.IsZero())

	g, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.True(t, g.TotalExpense.Equal(dec("300")))

	report, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, report.FixedCaches)
}

func TestRunOnceKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	r := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	const writes = 40
	errs := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			ob := &models.Obligation{OwerID: "bob", PayerID: "alice", Amount: dec("1.25"), SettledAmount: decimal.Zero}
			if err := store.CreateObligation(ctx, ob); err != nil {
				errs <- err
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		report, err := r.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.FriendDrift, "pass %d rewrote a consistent cache", i)
	}
	wg.Wait()
	close(errs)
	require.NoError(t, <-errs)

	fb, err := store.GetFriendBalance(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, fb.NetFor("bob").Equal(dec("50")), "bob owes alice %s", fb.NetFor("bob"))
}

func TestRunStopsOnCancel(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(store, slog.New(slog.NewTextHandler(io.Discard, nil))).Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
