package models

import "github.com/shopspring/decimal"

// Expense is a payment fronted by PayerID and shared among Participants.
//
// The payer may appear among the participants; that entry is the payer's own
// portion and never becomes an obligation. The shares of all participants must
// add up to Amount.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Title is the human-readable description (e.g., "Groceries").
	Title string

	// PayerID is the user who paid.
	PayerID string

	// Amount is the full amount paid.
	Amount decimal.Decimal

	// GroupID is the group this expense belongs to, empty for friend expenses.
	GroupID string

	// Participants are the people sharing the expense and their shares.
	Participants []Participant

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Participant is one person's share of an expense.
type Participant struct {
	UserID    string
	Share     decimal.Decimal
	IsSettled bool
}
