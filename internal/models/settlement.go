package models

import "github.com/shopspring/decimal"

// SettlementMethod describes how a real-world payment was made.
type SettlementMethod string

const (
	MethodRecord       SettlementMethod = "record"
	MethodCash         SettlementMethod = "cash"
	MethodBankTransfer SettlementMethod = "bank_transfer"
	MethodCard         SettlementMethod = "card"
	MethodExternal     SettlementMethod = "external"
)

// Valid reports whether m is a known method.
func (m SettlementMethod) Valid() bool {
	switch m {
	case MethodRecord, MethodCash, MethodBankTransfer, MethodCard, MethodExternal:
		return true
	}
	return false
}

// Settlement represents a payment that resolved all or part of one obligation.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// ObligationID is the obligation this payment was applied to.
	ObligationID string

	// GroupID is the group of the settled obligation, empty for friend obligations.
	GroupID string

	// FromUserID is the user who paid (the obligation's ower).
	FromUserID string

	// ToUserID is the user who received payment (the obligation's payer).
	ToUserID string

	// Amount is the payment amount.
	Amount decimal.Decimal

	// Method is how the payment was made.
	Method SettlementMethod

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string

	// Note is an optional description for the settlement.
	Note string
}
