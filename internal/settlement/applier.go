// Package settlement applies real-world payments to obligations.
//
// Settling is the only operation that mutates an obligation after it is
// created. Concurrent settles of one obligation are serialized twice: by an
// in-process lock per obligation and by a compare-and-set in storage, which
// also covers other processes sharing the database.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/events"
	"github.com/mmynk/splitwiser/internal/metrics"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// maxAttempts bounds retries after losing a compare-and-set to another process.
const maxAttempts = 3

// Store is the storage the Applier needs.
type Store interface {
	GetObligation(ctx context.Context, obligationID string) (*models.Obligation, error)
	ApplySettlement(ctx context.Context, settlement *models.Settlement, expectedSettled decimal.Decimal) (*models.Obligation, error)
}

// Request describes one settle action.
type Request struct {
	ObligationID string
	Method       models.SettlementMethod
	// Amount is the payment; zero settles the full outstanding amount.
	Amount decimal.Decimal
	// ActorID is the user recording the payment.
	ActorID string
	Note    string
}

// Applier settles obligations and publishes the resulting events.
type Applier struct {
	store     Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*obligationLock
}

type obligationLock struct {
	mu   sync.Mutex
	refs int
}

// NewApplier creates an Applier. A nil publisher logs events instead.
func NewApplier(store Store, publisher events.Publisher, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &Applier{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*obligationLock),
	}
}

// lock acquires the obligation's mutex and returns its release func. Entries are
// dropped once nobody holds or waits on them.
func (a *Applier) lock(obligationID string) func() {
	a.mu.Lock()
	l, ok := a.locks[obligationID]
	if !ok {
		l = &obligationLock{}
		a.locks[obligationID] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, obligationID)
		}
		a.mu.Unlock()
	}
}

// Settle applies a payment to one obligation and returns its new state.
//
// Settling an obligation that is already settled is a successful no-op: the
// settled obligation is returned with a nil error, so retried requests are safe.
// A missing obligation returns an error wrapping storage.ErrNotFound; a payment
// larger than the outstanding amount is a *calculator.ValidationError.
func (a *Applier) Settle(ctx context.Context, req Request) (*models.Obligation, error) {
	if req.ObligationID == "" {
		return nil, &calculator.ValidationError{Field: "obligationId", Message: "is required"}
	}
	method := req.Method
	if method == "" {
		method = models.MethodRecord
	}
	if !method.Valid() {
		return nil, &calculator.ValidationError{Field: "method", Message: fmt.Sprintf("unknown settlement method %q", method)}
	}
	if req.Amount.IsNegative() {
		metrics.Settlements.WithLabelValues("rejected").Inc()
		return nil, &calculator.ValidationError{Field: "amount", Message: "must not be negative"}
	}

	unlock := a.lock(req.ObligationID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		ob, err := a.store.GetObligation(ctx, req.ObligationID)
		if err != nil {
			return nil, err
		}
		if ob.IsSettled {
			a.alreadySettled(ctx, ob)
			return ob, nil
		}

		amount, err := paymentAmount(ob, req.Amount)
		if err != nil {
			metrics.Settlements.WithLabelValues("rejected").Inc()
			return nil, err
		}

		st := &models.Settlement{
			ObligationID: ob.ID,
			Amount:       amount,
			Method:       method,
			CreatedAt:    a.now().Unix(),
			CreatedBy:    req.ActorID,
			Note:         req.Note,
		}
		updated, err := a.store.ApplySettlement(ctx, st, ob.SettledAmount)
		switch {
		case errors.Is(err, storage.ErrAlreadySettled):
			a.alreadySettled(ctx, updated)
			if updated == nil {
				return a.store.GetObligation(ctx, req.ObligationID)
			}
			return updated, nil
		case errors.Is(err, storage.ErrConflict) && attempt < maxAttempts:
			metrics.Settlements.WithLabelValues("conflict").Inc()
			a.logger.WarnContext(ctx, "Settlement lost a race, retrying",
				"obligation_id", ob.ID,
				"attempt", attempt,
			)
			continue
		case err != nil:
			a.logger.ErrorContext(ctx, "Failed to apply settlement",
				"obligation_id", ob.ID,
				"error", err,
			)
			return nil, err
		}

		outcome := "partial"
		if updated.IsSettled {
			outcome = "settled"
		}
		metrics.Settlements.WithLabelValues(outcome).Inc()
		a.logger.InfoContext(ctx, "Settlement applied",
			"obligation_id", updated.ID,
			"settlement_id", st.ID,
			"amount", st.Amount.String(),
			"method", string(st.Method),
			"is_settled", updated.IsSettled,
		)

		a.publish(ctx, events.TopicObligationSettled, events.ObligationSettled{
			ObligationID: updated.ID,
			SettlementID: st.ID,
			GroupID:      updated.GroupID,
			FromUserID:   updated.OwerID,
			ToUserID:     updated.PayerID,
			Amount:       st.Amount,
			Outstanding:  updated.Outstanding(),
			IsSettled:    updated.IsSettled,
			Method:       string(st.Method),
			OccurredAt:   st.CreatedAt,
		})
		return updated, nil
	}
}

// paymentAmount resolves the requested amount against what is outstanding.
// Zero means "everything"; an amount within Epsilon of the outstanding one
// closes the obligation exactly.
func paymentAmount(ob *models.Obligation, requested decimal.Decimal) (decimal.Decimal, error) {
	outstanding := ob.Outstanding()
	if requested.IsZero() {
		return outstanding, nil
	}
	diff := requested.Sub(outstanding)
	if diff.Abs().LessThanOrEqual(calculator.Epsilon) {
		return outstanding, nil
	}
	if diff.IsPositive() {
		return decimal.Zero, &calculator.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("payment %s exceeds outstanding %s", requested, outstanding),
		}
	}
	return requested, nil
}

func (a *Applier) alreadySettled(ctx context.Context, ob *models.Obligation) {
	metrics.Settlements.WithLabelValues("already_settled").Inc()
	id := ""
	if ob != nil {
		id = ob.ID
	}
	a.logger.InfoContext(ctx, "Obligation already settled", "obligation_id", id)
}

// RequestSettlement lets the payer nudge the ower. It changes no state; it only
// publishes a settlement.requested event. Only the payer may request.
func (a *Applier) RequestSettlement(ctx context.Context, obligationID, actorID string) (*models.Obligation, error) {
	ob, err := a.store.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	if ob.PayerID != actorID {
		return nil, ErrForbidden
	}
	if ob.IsSettled {
		return ob, fmt.Errorf("obligation %s: %w", ob.ID, storage.ErrAlreadySettled)
	}

	a.logger.InfoContext(ctx, "Settlement requested",
		"obligation_id", ob.ID,
		"payer_id", ob.PayerID,
		"ower_id", ob.OwerID,
	)
	a.publish(ctx, events.TopicSettlementRequested, events.SettlementRequested{
		ObligationID: ob.ID,
		RequestedBy:  actorID,
		OwerID:       ob.OwerID,
		Outstanding:  ob.Outstanding(),
		OccurredAt:   a.now().Unix(),
	})
	return ob, nil
}

func (a *Applier) publish(ctx context.Context, topic string, event any) {
	events.Emit(ctx, a.publisher, a.logger, topic, event)
}
