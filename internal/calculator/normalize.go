package calculator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what clients sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the struct tag rules and converts the first failure into a
// ValidationError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Tag() == "required" {
			return invalid(field, "is required")
		}
		return invalid(field, "failed %q rule", fe.Tag())
	}
	return invalid("", "%s", err)
}

// ParseExpense converts a loosely shaped expense record into a strict Expense and
// validates it. It is the only place that looks at ExpenseRecord.
func ParseExpense(rec models.ExpenseRecord) (*models.Expense, error) {
	if err := ValidateStruct(rec); err != nil {
		return nil, err
	}

	exp := &models.Expense{
		ID:           rec.ID,
		Title:        rec.Title,
		PayerID:      rec.PayerID.String(),
		Amount:       rec.Amount,
		GroupID:      rec.GroupID.String(),
		Participants: make([]models.Participant, len(rec.Participants)),
		CreatedAt:    rec.CreatedAt,
	}
	for i, p := range rec.Participants {
		exp.Participants[i] = models.Participant{
			UserID:    p.UserID.String(),
			Share:     p.Share,
			IsSettled: p.IsSettled,
		}
	}

	if err := ValidateExpense(exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// ValidateExpense checks the expense invariants: positive amount, non-negative
// shares, no duplicate participants, and shares adding up to the amount.
func ValidateExpense(exp *models.Expense) error {
	if exp.PayerID == "" {
		return invalid("payerId", "is required")
	}
	if !exp.Amount.IsPositive() {
		return invalid("amount", "must be positive, got %s", exp.Amount)
	}
	if len(exp.Participants) == 0 {
		return invalid("participants", "at least one participant is required")
	}

	seen := make(map[string]bool, len(exp.Participants))
	sum := decimal.Zero
	for _, p := range exp.Participants {
		if p.UserID == "" {
			return invalid("participants.userId", "is required")
		}
		if seen[p.UserID] {
			return invalid("participants", "duplicate participant %s", p.UserID)
		}
		seen[p.UserID] = true
		if p.Share.IsNegative() {
			return invalid("participants.share", "share of %s is negative", p.UserID)
		}
		sum = sum.Add(p.Share)
	}

	if !withinEpsilon(sum, exp.Amount) {
		return invalid("participants", "shares sum to %s, expense amount is %s", sum, exp.Amount)
	}
	return nil
}

// ExpenseObligations decomposes a validated expense into one obligation per
// non-payer participant with a positive share. The payer's own entry and
// zero-share entries produce nothing. The expense is rejected as a whole if it
// fails validation.
func ExpenseObligations(exp *models.Expense) ([]models.Obligation, error) {
	if err := ValidateExpense(exp); err != nil {
		return nil, err
	}

	obligations := make([]models.Obligation, 0, len(exp.Participants))
	for _, p := range exp.Participants {
		if p.UserID == exp.PayerID || !p.Share.IsPositive() {
			continue
		}
		ob := models.Obligation{
			ExpenseID:     exp.ID,
			PayerID:       exp.PayerID,
			OwerID:        p.UserID,
			Amount:        p.Share,
			SettledAmount: decimal.Zero,
			GroupID:       exp.GroupID,
			CreatedAt:     exp.CreatedAt,
		}
		if p.IsSettled {
			ob.IsSettled = true
			ob.SettledAmount = p.Share
			ob.SettledAt = exp.CreatedAt
		}
		obligations = append(obligations, ob)
	}
	return obligations, nil
}

// NormalizeExpense parses an expense record and returns its obligations.
func NormalizeExpense(rec models.ExpenseRecord) ([]models.Obligation, error) {
	exp, err := ParseExpense(rec)
	if err != nil {
		return nil, err
	}
	return ExpenseObligations(exp)
}

// NormalizeTransaction turns a direct transaction into its single obligation.
// The sender is the one who owes, the receiver is owed.
func NormalizeTransaction(rec models.TransactionRecord) (models.Obligation, error) {
	if err := ValidateStruct(rec); err != nil {
		return models.Obligation{}, err
	}
	if rec.SenderID == rec.ReceiverID {
		return models.Obligation{}, invalid("receiverId", "sender and receiver must differ")
	}
	if !rec.Amount.IsPositive() {
		return models.Obligation{}, invalid("amount", "must be positive, got %s", rec.Amount)
	}

	ob := models.Obligation{
		ID:            rec.ID,
		PayerID:       rec.ReceiverID.String(),
		OwerID:        rec.SenderID.String(),
		Amount:        rec.Amount,
		SettledAmount: decimal.Zero,
		GroupID:       rec.GroupID.String(),
		CreatedAt:     rec.CreatedAt,
	}
	if rec.IsSettled {
		ob.IsSettled = true
		ob.SettledAmount = rec.Amount
		ob.SettledAt = rec.CreatedAt
	}
	return ob, nil
}
