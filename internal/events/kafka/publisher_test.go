package kafka

import (
	"testing"

	"github.com/mmynk/splitwiser/internal/events"
)

func TestEventKey(t *testing.T) {
	tests := []struct {
		name  string
		event any
		want  string
	}{
		{"settled", events.ObligationSettled{ObligationID: "ob-1"}, "ob-1"},
		{"requested", events.SettlementRequested{ObligationID: "ob-2"}, "ob-2"},
		{"expense", events.ExpenseCreated{ExpenseID: "exp-1"}, "exp-1"},
		{"unknown", struct{}{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eventKey(tt.event); got != tt.want {
				t.Errorf("eventKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewPublisherTopicPrefix(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "splitwiser.")
	defer p.Close()
	if p.prefix != "splitwiser." {
		t.Errorf("prefix = %q", p.prefix)
	}
	if p.writer.Topic != "" {
		t.Errorf("writer must not pin a topic, got %q", p.writer.Topic)
	}
}
