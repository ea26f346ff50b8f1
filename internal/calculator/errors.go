package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance, in currency units, for comparing money amounts that
// went through division or came from clients.
var Epsilon = decimal.New(1, -2)

// ValidationError reports input that cannot be turned into obligations.
// No retry helps; the caller must fix the input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvariantViolation reports internally inconsistent input, such as balances whose
// creditor and debtor totals differ. It indicates a bug in the caller.
type InvariantViolation struct {
	Check  string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Check, e.Detail)
}

// withinEpsilon reports whether a and b differ by no more than Epsilon.
func withinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}
