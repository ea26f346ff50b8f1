// Package events defines the domain events the ledger emits and the publisher
// they go through. Delivery to users is someone else's job.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/metrics"
)

// Topics events are published on.
const (
	TopicExpenseCreated      = "expense.created"
	TopicObligationSettled   = "obligation.settled"
	TopicSettlementRequested = "settlement.requested"
)

// Publisher sends an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

// ExpenseCreated is published after an expense and its obligations are stored.
type ExpenseCreated struct {
	ExpenseID     string          `json:"expense_id"`
	GroupID       string          `json:"group_id,omitempty"`
	PayerID       string          `json:"payer_id"`
	Amount        decimal.Decimal `json:"amount"`
	ObligationIDs []string        `json:"obligation_ids"`
	OccurredAt    int64           `json:"occurred_at"`
}

// ObligationSettled is published after a payment is applied to an obligation,
// whether or not it closed the obligation.
type ObligationSettled struct {
	ObligationID string          `json:"obligation_id"`
	SettlementID string          `json:"settlement_id"`
	GroupID      string          `json:"group_id,omitempty"`
	FromUserID   string          `json:"from_user_id"`
	ToUserID     string          `json:"to_user_id"`
	Amount       decimal.Decimal `json:"amount"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	IsSettled    bool            `json:"is_settled"`
	Method       string          `json:"method"`
	OccurredAt   int64           `json:"occurred_at"`
}

// SettlementRequested is published when a payer asks an ower to pay up. It
// changes no state.
type SettlementRequested struct {
	ObligationID string          `json:"obligation_id"`
	RequestedBy  string          `json:"requested_by"`
	OwerID       string          `json:"ower_id"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	OccurredAt   int64           `json:"occurred_at"`
}

// LogPublisher writes events to a logger. It is used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a publisher that logs to logger, or slog.Default if nil.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "Event published", "topic", topic, "event", string(data))
	return nil
}

// Emit publishes event and records the outcome. Failures are logged, not
// returned: the state change the event describes has already committed.
func Emit(ctx context.Context, p Publisher, logger *slog.Logger, topic string, event any) {
	if err := p.Publish(ctx, topic, event); err != nil {
		metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		logger.ErrorContext(ctx, "Failed to publish event", "topic", topic, "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()
}
