package models

import "github.com/shopspring/decimal"

// FriendBalance is the cached net balance between two users across all scopes.
// UserA always sorts before UserB; a positive Net means UserA owes UserB.
//
// The cache is derived from obligations. Storage updates it atomically with every
// obligation mutation and the reconciler rebuilds it from scratch.
type FriendBalance struct {
	UserA string
	UserB string
	Net   decimal.Decimal
}

// NetFor returns the balance from userID's point of view: positive means
// userID owes the other user.
func (f FriendBalance) NetFor(userID string) decimal.Decimal {
	if userID == f.UserB {
		return f.Net.Neg()
	}
	return f.Net
}

// Other returns the user in the pair that is not userID.
func (f FriendBalance) Other(userID string) string {
	if userID == f.UserA {
		return f.UserB
	}
	return f.UserA
}
