package models

import "github.com/shopspring/decimal"

// Group represents a set of users who share expenses.
// Obligations carrying the group's ID are aggregated together for group settlement.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string

	// Members is the list of user IDs in this group.
	Members []string

	// TotalExpense is the running sum of the group's expense amounts.
	// It is updated in the same transaction as every expense insert and delete.
	TotalExpense decimal.Decimal

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
