package models

import "github.com/shopspring/decimal"

// Obligation is a single directed debt: OwerID owes PayerID Amount.
// It is produced by normalizing an expense share or a direct transaction.
//
// Invariants (enforced at construction in the calculator):
//   - PayerID != OwerID
//   - Amount > 0
//   - 0 <= SettledAmount <= Amount, and IsSettled iff SettledAmount == Amount
type Obligation struct {
	// ID is the unique identifier for the obligation (UUID format).
	ID string

	// ExpenseID is the expense this obligation came from.
	// Empty for obligations recorded as direct transactions.
	ExpenseID string

	// PayerID is the user who is owed money (fronted the payment).
	PayerID string

	// OwerID is the user who owes money.
	OwerID string

	// Amount is the portion owed by OwerID to PayerID.
	Amount decimal.Decimal

	// SettledAmount is how much of Amount has been paid back so far.
	SettledAmount decimal.Decimal

	// GroupID is the scope of the obligation, empty for friend obligations.
	GroupID string

	// IsSettled is true once the obligation is fully resolved.
	IsSettled bool

	// SettledVia is the ID of the last Settlement applied to this obligation.
	SettledVia string

	// CreatedAt is the Unix timestamp when the obligation was recorded.
	CreatedAt int64

	// SettledAt is the Unix timestamp when IsSettled flipped, zero while open.
	SettledAt int64
}

// Outstanding returns the amount still owed. Settled obligations owe nothing.
func (o *Obligation) Outstanding() decimal.Decimal {
	if o.IsSettled {
		return decimal.Zero
	}
	return o.Amount.Sub(o.SettledAmount)
}

// Involves reports whether userID is either side of the obligation.
func (o *Obligation) Involves(userID string) bool {
	return o.PayerID == userID || o.OwerID == userID
}
