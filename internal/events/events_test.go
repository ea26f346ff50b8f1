package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewLogPublisher(logger)

	err := p.Publish(context.Background(), TopicObligationSettled, ObligationSettled{
		ObligationID: "ob-1",
		Amount:       decimal.RequireFromString("12.5"),
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "topic=obligation.settled") {
		t.Errorf("expected topic in log, got %q", out)
	}
	if !strings.Contains(out, `\"amount\":\"12.5\"`) {
		t.Errorf("expected decimal amount as string in log, got %q", out)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) error {
	return errors.New("broker down")
}

func TestEmitLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	Emit(context.Background(), failingPublisher{}, logger, TopicExpenseCreated, ExpenseCreated{ExpenseID: "e"})

	if !strings.Contains(buf.String(), "broker down") {
		t.Errorf("expected publish error to be logged, got %q", buf.String())
	}
}
