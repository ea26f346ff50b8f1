// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadySettled is returned by ApplySettlement when the obligation was
	// already fully settled.
	ErrAlreadySettled = errors.New("obligation already settled")

	// ErrConflict is returned when a compare-and-set lost against a concurrent
	// change to the same record.
	ErrConflict = errors.New("concurrent modification")
)

// ObligationFilter narrows ListObligations. Zero values mean "no restriction".
type ObligationFilter struct {
	// UserID keeps obligations where the user is either side.
	UserID string
	// CounterpartyID, together with UserID, keeps only obligations between the two.
	CounterpartyID string
	// GroupID keeps obligations in one group.
	GroupID string
	// ExpenseID keeps obligations derived from one expense.
	ExpenseID string
	// Settled, when set, keeps only settled or only open obligations.
	Settled *bool
	// Since and Until bound CreatedAt (Since inclusive, Until exclusive).
	Since int64
	Until int64
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUsersByIDs returns the users that exist, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore persists groups and their membership.
type GroupStore interface {
	// CreateGroup persists a new group. The group.ID field will be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	// ListGroups returns the groups memberID belongs to, or all groups if memberID is empty.
	ListGroups(ctx context.Context, memberID string) ([]*models.Group, error)
	AddGroupMembers(ctx context.Context, groupID string, members []string) error
	// SetGroupTotal overwrites the running expense total (used by reconciliation).
	SetGroupTotal(ctx context.Context, groupID string, total decimal.Decimal) error
}

// LedgerStore persists expenses, obligations and settlements.
//
// Every method that changes obligations also updates the friend balance cache
// and the group running total in the same transaction.
type LedgerStore interface {
	// CreateExpense stores the expense with its obligations, adds its amount to the
	// group total and its open obligations to the friend balance cache.
	CreateExpense(ctx context.Context, expense *models.Expense, obligations []models.Obligation) error
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
	// DeleteExpense removes the expense and its obligations and reverts the group
	// total and friend balance cache.
	DeleteExpense(ctx context.Context, expenseID string) error

	// CreateObligation stores a direct transaction obligation.
	CreateObligation(ctx context.Context, obligation *models.Obligation) error
	GetObligation(ctx context.Context, obligationID string) (*models.Obligation, error)
	ListObligations(ctx context.Context, filter ObligationFilter) ([]models.Obligation, error)

	// ApplySettlement records the settlement and advances the obligation's settled
	// amount, provided it still equals expectedSettled. It returns ErrAlreadySettled
	// if the obligation is closed and ErrConflict if it changed in between.
	ApplySettlement(ctx context.Context, settlement *models.Settlement, expectedSettled decimal.Decimal) (*models.Obligation, error)
	ListSettlements(ctx context.Context, obligationID string) ([]*models.Settlement, error)

	GetFriendBalance(ctx context.Context, userA, userB string) (models.FriendBalance, error)
	ListFriendBalances(ctx context.Context, userID string) ([]models.FriendBalance, error)
	// ReplaceFriendBalances swaps the whole cache for the given balances.
	ReplaceFriendBalances(ctx context.Context, balances []models.FriendBalance) error
	// RebuildFriendBalances recomputes the cache from open obligations and
	// repairs any drift in one transaction that excludes obligation writers.
	RebuildFriendBalances(ctx context.Context) (FriendBalanceRebuild, error)
}

// FriendBalanceDrift is a cached pair balance that disagreed with the
// obligations. Both values are what UserA owes UserB.
type FriendBalanceDrift struct {
	UserA    string
	UserB    string
	Cached   decimal.Decimal
	Expected decimal.Decimal
}

// FriendBalanceRebuild reports a RebuildFriendBalances pass.
type FriendBalanceRebuild struct {
	// Pairs is the number of pairs with a non-zero balance.
	Pairs int
	Drift []FriendBalanceDrift
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	LedgerStore

	// Close releases any resources held by the store.
	Close() error
}
