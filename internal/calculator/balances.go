package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

// Pair is an unordered pair of users stored in canonical order (A < B).
type Pair struct {
	A string
	B string
}

// NewPair returns the canonical pair for x and y, and whether x ended up as B.
func NewPair(x, y string) (Pair, bool) {
	if x <= y {
		return Pair{A: x, B: y}, false
	}
	return Pair{A: y, B: x}, true
}

// BalanceMap holds the net balance of every pair with a non-zero balance.
// A positive value means Pair.A owes Pair.B.
type BalanceMap map[Pair]decimal.Decimal

// Net returns how much ower owes payer; negative when payer owes ower.
func (m BalanceMap) Net(ower, payer string) decimal.Decimal {
	pair, flipped := NewPair(ower, payer)
	v := m[pair]
	if flipped {
		return v.Neg()
	}
	return v
}

// Equal reports whether both maps hold the same balances.
func (m BalanceMap) Equal(other BalanceMap) bool {
	if len(m) != len(other) {
		return false
	}
	for pair, v := range m {
		ov, ok := other[pair]
		if !ok || !ov.Equal(v) {
			return false
		}
	}
	return true
}

// Pairs returns the pairs sorted by A then B.
func (m BalanceMap) Pairs() []Pair {
	pairs := make([]Pair, 0, len(m))
	for p := range m {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// Aggregate folds obligations into net balances per unordered pair.
//
// Only the outstanding amount of unsettled obligations counts; settled
// obligations are history. The result does not depend on input order and pairs
// that net to exactly zero are omitted.
func Aggregate(obligations []models.Obligation) BalanceMap {
	balances := make(BalanceMap)
	for i := range obligations {
		ob := &obligations[i]
		if ob.IsSettled || ob.OwerID == ob.PayerID {
			continue
		}
		outstanding := ob.Outstanding()
		if outstanding.IsZero() {
			continue
		}
		pair, flipped := NewPair(ob.OwerID, ob.PayerID)
		if flipped {
			outstanding = outstanding.Neg()
		}
		balances[pair] = balances[pair].Add(outstanding)
	}
	for pair, v := range balances {
		if v.IsZero() {
			delete(balances, pair)
		}
	}
	return balances
}

// UserTotals is a user's dashboard view: how much others owe them and how much
// they owe others, across all pairs.
type UserTotals struct {
	Owed decimal.Decimal
	Owes decimal.Decimal
}

// Net returns Owed - Owes; positive means the user is a creditor.
func (t UserTotals) Net() decimal.Decimal {
	return t.Owed.Sub(t.Owes)
}

// PerUserTotals sums, for each user, the positive pair balances owed to them and
// the ones they owe. Users listed in include always appear, with zero totals if
// they have no balances.
func PerUserTotals(balances BalanceMap, include ...string) map[string]UserTotals {
	totals := make(map[string]UserTotals)
	for _, id := range include {
		totals[id] = UserTotals{Owed: decimal.Zero, Owes: decimal.Zero}
	}

	add := func(id string, owed, owes decimal.Decimal) {
		t, ok := totals[id]
		if !ok {
			t = UserTotals{Owed: decimal.Zero, Owes: decimal.Zero}
		}
		t.Owed = t.Owed.Add(owed)
		t.Owes = t.Owes.Add(owes)
		totals[id] = t
	}

	for pair, v := range balances {
		ower, payer := pair.A, pair.B
		if v.IsNegative() {
			ower, payer = pair.B, pair.A
			v = v.Neg()
		}
		add(ower, decimal.Zero, v)
		add(payer, v, decimal.Zero)
	}
	return totals
}

// NetPositions collapses pair balances into one signed position per user.
// Positive means the user is owed money overall, negative means they owe.
func NetPositions(balances BalanceMap) map[string]decimal.Decimal {
	nets := make(map[string]decimal.Decimal)
	for pair, v := range balances {
		// A owes B v
		nets[pair.A] = nets[pair.A].Sub(v)
		nets[pair.B] = nets[pair.B].Add(v)
	}
	return nets
}
