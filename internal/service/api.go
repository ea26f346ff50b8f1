package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/models"
)

// Wire messages. Money travels as decimal strings ("12.50").

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	Password    string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User User `json:"user"`
}

type Group struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Members      []string        `json:"members"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	CreatedAt    int64           `json:"createdAt"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Members []string `json:"members" validate:"dive,required"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

// GroupResponse is returned by CreateGroup, GetGroup and AddMembers.
type GroupResponse struct {
	Group Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID string   `json:"groupId" validate:"required"`
	Members []string `json:"members" validate:"required,min=1,dive,required"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

// PairBalance is a net balance between two users: OwerID owes PayerID Amount.
type PairBalance struct {
	OwerID  string          `json:"owerId"`
	PayerID string          `json:"payerId"`
	Amount  decimal.Decimal `json:"amount"`
}

// UserBalance is one user's dashboard totals.
type UserBalance struct {
	UserID string          `json:"userId"`
	Owed   decimal.Decimal `json:"owed"`
	Owes   decimal.Decimal `json:"owes"`
	Net    decimal.Decimal `json:"net"`
}

// Payment is a suggested transfer. Suggestions are never stored.
type Payment struct {
	FromID string          `json:"fromId"`
	ToID   string          `json:"toId"`
	Amount decimal.Decimal `json:"amount"`
}

// BalancesResponse is returned by GetGroupBalances and GetBalances.
type BalancesResponse struct {
	Balances    []PairBalance `json:"balances"`
	Totals      []UserBalance `json:"totals"`
	Suggestions []Payment     `json:"suggestions,omitempty"`
}

type Participant struct {
	UserID    string          `json:"userId"`
	Share     decimal.Decimal `json:"share"`
	IsSettled bool            `json:"isSettled,omitempty"`
}

type Expense struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	PayerID      string          `json:"payerId"`
	Amount       decimal.Decimal `json:"amount"`
	GroupID      string          `json:"groupId,omitempty"`
	Participants []Participant   `json:"participants"`
	CreatedAt    int64           `json:"createdAt"`
}

type Obligation struct {
	ID            string          `json:"id"`
	ExpenseID     string          `json:"expenseId,omitempty"`
	PayerID       string          `json:"payerId"`
	OwerID        string          `json:"owerId"`
	Amount        decimal.Decimal `json:"amount"`
	SettledAmount decimal.Decimal `json:"settledAmount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	GroupID       string          `json:"groupId,omitempty"`
	IsSettled     bool            `json:"isSettled"`
	SettledVia    string          `json:"settledVia,omitempty"`
	CreatedAt     int64           `json:"createdAt"`
	SettledAt     int64           `json:"settledAt,omitempty"`
}

// Split methods accepted by CreateExpense.
const (
	SplitExact    = "exact"
	SplitEqual    = "equal"
	SplitPercent  = "percent"
	SplitItemized = "itemized"
)

type Item struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	AssignedTo  []string        `json:"assignedTo" validate:"required,min=1"`
}

// CreateExpenseRequest records an expense. Participants carry exact shares for
// the exact method (default), percentages for percent, and only ids for equal
// and itemized. Itemized expenses also need Items and the pre-tax Subtotal.
type CreateExpenseRequest struct {
	Title        string                     `json:"title"`
	PayerID      models.UserRef             `json:"payerId"`
	Amount       decimal.Decimal            `json:"amount"`
	GroupID      string                     `json:"groupId"`
	SplitMethod  string                     `json:"splitMethod" validate:"omitempty,oneof=exact equal percent itemized"`
	Participants []models.ParticipantRecord `json:"participants" validate:"required,min=1,dive"`
	Items        []Item                     `json:"items" validate:"dive"`
	Subtotal     decimal.Decimal            `json:"subtotal"`
}

type CreateExpenseResponse struct {
	Expense     Expense      `json:"expense"`
	Obligations []Obligation `json:"obligations"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId" validate:"required"`
}

type GetExpenseResponse struct {
	Expense     Expense      `json:"expense"`
	Obligations []Obligation `json:"obligations"`
}

type ListExpensesRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expenseId" validate:"required"`
}

type DeleteExpenseResponse struct{}

// RecordTransactionRequest records a direct debt: the sender owes the receiver.
type RecordTransactionRequest struct {
	Transaction models.TransactionRecord `json:"transaction"`
}

type ObligationResponse struct {
	Obligation Obligation `json:"obligation"`
}

// ListObligationsRequest lists the caller's obligations, optionally narrowed.
type ListObligationsRequest struct {
	GroupID        string `json:"groupId"`
	CounterpartyID string `json:"counterpartyId"`
	Settled        *bool  `json:"settled"`
	Since          int64  `json:"since"`
	Until          int64  `json:"until"`
}

type ListObligationsResponse struct {
	Obligations []Obligation `json:"obligations"`
}

// GetBalancesRequest computes the caller's balances from open obligations:
// everything by default, one group, or one friend.
type GetBalancesRequest struct {
	GroupID  string `json:"groupId"`
	FriendID string `json:"friendId"`
}

type GetFriendBalanceRequest struct {
	FriendID string `json:"friendId" validate:"required"`
}

// GetFriendBalanceResponse reports the cached balance with one friend.
// A positive Net means the caller owes the friend.
type GetFriendBalanceResponse struct {
	FriendID string          `json:"friendId"`
	Net      decimal.Decimal `json:"net"`
}

type ListFriendBalancesRequest struct{}

type ListFriendBalancesResponse struct {
	Friends []GetFriendBalanceResponse `json:"friends"`
}

// SimplifyDebtsRequest suggests payments for one group, or for the caller's
// friend obligations when GroupID is empty.
type SimplifyDebtsRequest struct {
	GroupID string `json:"groupId"`
}

type SimplifyDebtsResponse struct {
	Payments []Payment `json:"payments"`
}

type SettleRequest struct {
	ObligationID string                  `json:"obligationId" validate:"required"`
	Method       models.SettlementMethod `json:"method"`
	// Amount is optional; zero pays the full outstanding amount.
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" validate:"max=500"`
}

type RequestSettlementRequest struct {
	ObligationID string `json:"obligationId" validate:"required"`
}

func toUser(u *models.User) User {
	return User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
	}
}

func toGroup(g *models.Group) Group {
	members := g.Members
	if members == nil {
		members = []string{}
	}
	return Group{
		ID:           g.ID,
		Name:         g.Name,
		Members:      members,
		TotalExpense: g.TotalExpense,
		CreatedAt:    g.CreatedAt,
	}
}

func toExpense(e *models.Expense) Expense {
	participants := make([]Participant, len(e.Participants))
	for i, p := range e.Participants {
		participants[i] = Participant{UserID: p.UserID, Share: p.Share, IsSettled: p.IsSettled}
	}
	return Expense{
		ID:           e.ID,
		Title:        e.Title,
		PayerID:      e.PayerID,
		Amount:       e.Amount,
		GroupID:      e.GroupID,
		Participants: participants,
		CreatedAt:    e.CreatedAt,
	}
}

func toObligation(o *models.Obligation) Obligation {
	return Obligation{
		ID:            o.ID,
		ExpenseID:     o.ExpenseID,
		PayerID:       o.PayerID,
		OwerID:        o.OwerID,
		Amount:        o.Amount,
		SettledAmount: o.SettledAmount,
		Outstanding:   o.Outstanding(),
		GroupID:       o.GroupID,
		IsSettled:     o.IsSettled,
		SettledVia:    o.SettledVia,
		CreatedAt:     o.CreatedAt,
		SettledAt:     o.SettledAt,
	}
}

func toObligations(obs []models.Obligation) []Obligation {
	out := make([]Obligation, len(obs))
	for i := range obs {
		out[i] = toObligation(&obs[i])
	}
	return out
}

// toPairBalances orients every pair so the amount is positive.
func toPairBalances(balances calculator.BalanceMap) []PairBalance {
	out := make([]PairBalance, 0, len(balances))
	for _, pair := range balances.Pairs() {
		v := balances[pair]
		ower, payer := pair.A, pair.B
		if v.IsNegative() {
			ower, payer = pair.B, pair.A
			v = v.Neg()
		}
		out = append(out, PairBalance{OwerID: ower, PayerID: payer, Amount: v})
	}
	return out
}

func toUserBalances(totals map[string]calculator.UserTotals) []UserBalance {
	out := make([]UserBalance, 0, len(totals))
	for id, t := range totals {
		out = append(out, UserBalance{UserID: id, Owed: t.Owed, Owes: t.Owes, Net: t.Net()})
	}
	sortUserBalances(out)
	return out
}

func toPayments(payments []calculator.Payment) []Payment {
	out := make([]Payment, len(payments))
	for i, p := range payments {
		out[i] = Payment{FromID: p.FromID, ToID: p.ToID, Amount: p.Amount}
	}
	return out
}
