package settlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/events"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
	"github.com/mmynk/splitwiser/internal/storage/sqlstore"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (*sqlstore.Store, *Applier, *recordingPublisher) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &recordingPublisher{}
	return store, NewApplier(store, pub, discardLogger()), pub
}

func createObligation(t *testing.T, store *sqlstore.Store, ower, payer, amount string) *models.Obligation {
	t.Helper()
	ob := &models.Obligation{OwerID: ower, PayerID: payer, Amount: dec(amount), SettledAmount: decimal.Zero}
	require.NoError(t, store.CreateObligation(context.Background(), ob))
	return ob
}

func TestSettleFull(t *testing.T) {
	store, applier, pub := setup(t)
	ctx := context.Background()
	ob := createObligation(t, store, "alice", "bob", "30")

	got, err := applier.Settle(ctx, Request{ObligationID: ob.ID, Method: models.MethodCash, ActorID: "alice"})
	require.NoError(t, err)

	assert.True(t, got.IsSettled)
	assert.True(t, got.SettledAmount.Equal(dec("30")))
	assert.NotEmpty(t, got.SettledVia)
	assert.Equal(t, 1, pub.count(events.TopicObligationSettled))

	fb, err := store.GetFriendBalance(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, fb.Net.IsZero(), "friend balance should be cleared, got %s", fb.Net)

	// Aggregating the stored obligations no longer shows the pair.
	obs, err := store.ListObligations(ctx, storage.ObligationFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, calculator.Aggregate(obs))
}

func TestSettleTwiceIsIdempotent(t *testing.T) {
	store, applier, pub := setup(t)
	ctx := context.Background()
	ob := createObligation(t, store, "alice", "bob", "30")

	first, err := applier.Settle(ctx, Request{ObligationID: ob.ID})
	require.NoError(t, err)
	second, err := applier.Settle(ctx, Request{ObligationID: ob.ID})
	require.NoError(t, err)

	assert.Equal(t, first.SettledVia, second.SettledVia)
	assert.True(t, second.IsSettled)
	assert.Equal(t, 1, pub.count(events.TopicObligationSettled))

	history, err := store.ListSettlements(ctx, ob.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	fb, err := store.GetFriendBalance(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, fb.Net.IsZero(), "second settle must not touch the cache, got %s", fb.Net)
}

func TestSettlePartial(t *testing.T) {
	store, applier, _ := setup(t)
	ctx := context.Background()
	ob := createObligation(t, store, "alice", "bob", "50")

	got, err := applier.Settle(ctx, Request{ObligationID: ob.ID, Amount: dec("20")})
	require.NoError(t, err)
	assert.False(t, got.IsSettled)
	assert.True(t, got.Outstanding().Equal(dec("30")))

	_, err = applier.Settle(ctx, Request{ObligationID: ob.ID, Amount: dec("40")})
	var verr *calculator.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)

	// Within a cent of the remainder closes the obligation exactly.
	got, err = applier.Settle(ctx, Request{ObligationID: ob.ID, Amount: dec("29.995")})
	require.NoError(t, err)
	assert.True(t, got.IsSettled)
	assert.True(t, got.SettledAmount.Equal(dec("50")))
}

func TestSettleErrors(t *testing.T) {
	store, applier, _ := setup(t)
	ctx := context.Background()
	ob := createObligation(t, store, "alice", "bob", "10")

	tests := []struct {
		name  string
		req   Request
		check func(t *testing.T, err error)
	}{
		{
			name: "missing obligation",
			req:  Request{ObligationID: "missing"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, storage.ErrNotFound)
			},
		},
		{
			name: "empty id",
			req:  Request{},
			check: func(t *testing.T, err error) {
				var verr *calculator.ValidationError
				assert.ErrorAs(t, err, &verr)
			},
		},
		{
			name: "unknown method",
			req:  Request{ObligationID: ob.ID, Method: "barter"},
			check: func(t *testing.T, err error) {
				var verr *calculator.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "method", verr.Field)
			},
		},
		{
			name: "negative amount",
			req:  Request{ObligationID: ob.ID, Amount: dec("-1")},
			check: func(t *testing.T, err error) {
				var verr *calculator.ValidationError
				assert.ErrorAs(t, err, &verr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applier.Settle(ctx, tt.req)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestConcurrentSettleAppliesOnce(t *testing.T) {
	store, applier, pub := setup(t)
	ctx := context.Background()
	ob := createObligation(t, store, "alice", "bob", "75")

	const workers = 16
	var wg sync.WaitGroup
	results := make([]*models.Obligation, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = applier.Settle(ctx, Request{ObligationID: ob.ID, ActorID: "alice"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].IsSettled)
	}
	history, err := store.ListSettlements(ctx, ob.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 1, pub.count(events.TopicObligationSettled))
	assert.Empty(t, applier.locks, "lock entries should be released")
}

// conflictStore loses the compare-and-set a fixed number of times.
type conflictStore struct {
	ob        models.Obligation
	conflicts int
	calls     int
}

func (s *conflictStore) GetObligation(context.Context, string) (*models.Obligation, error) {
	ob := s.ob
	return &ob, nil
}

func (s *conflictStore) ApplySettlement(_ context.Context, st *models.Settlement, _ decimal.Decimal) (*models.Obligation, error) {
	s.calls++
	if s.calls <= s.conflicts {
		return nil, storage.ErrConflict
	}
	ob := s.ob
	ob.SettledAmount = ob.SettledAmount.Add(st.Amount)
	ob.IsSettled = true
	return &ob, nil
}

func TestSettleRetriesConflicts(t *testing.T) {
	ob := models.Obligation{ID: "ob", OwerID: "a", PayerID: "b", Amount: dec("5"), SettledAmount: decimal.Zero}

	store := &conflictStore{ob: ob, conflicts: maxAttempts - 1}
	applier := NewApplier(store, &recordingPublisher{}, discardLogger())
	got, err := applier.Settle(context.Background(), Request{ObligationID: "ob"})
	require.NoError(t, err)
	assert.True(t, got.IsSettled)
	assert.Equal(t, maxAttempts, store.calls)

	store = &conflictStore{ob: ob, conflicts: maxAttempts}
	applier = NewApplier(store, &recordingPublisher{}, discardLogger())
	_, err = applier.Settle(context.Background(), Request{ObligationID: "ob"})
	assert.True(t, errors.Is(err, storage.ErrConflict))
}

func TestRequestSettlement(t *testing.T) {
	store, applier, pub := setup(t)
	ctx := context.Background()
	ob := createObligation(t, store, "alice", "bob", "12")

	_, err := applier.RequestSettlement(ctx, ob.ID, "alice")
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := applier.RequestSettlement(ctx, ob.ID, "bob")
	require.NoError(t, err)
	assert.False(t, got.IsSettled, "a request must not change the obligation")
	assert.Equal(t, 1, pub.count(events.TopicSettlementRequested))

	_, err = applier.Settle(ctx, Request{ObligationID: ob.ID})
	require.NoError(t, err)
	_, err = applier.RequestSettlement(ctx, ob.ID, "bob")
	assert.ErrorIs(t, err, storage.ErrAlreadySettled)
}

func TestCanSettle(t *testing.T) {
	ob := &models.Obligation{OwerID: "alice", PayerID: "bob"}

	assert.True(t, CanSettle(ob, &models.User{ID: "alice"}))
	assert.False(t, CanSettle(ob, &models.User{ID: "bob"}))
	assert.True(t, CanSettle(ob, &models.User{ID: "carol", IsAdmin: true}))
	assert.False(t, CanSettle(ob, nil))
}
