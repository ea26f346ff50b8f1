package calculator

import (
	"container/heap"

	"github.com/shopspring/decimal"
)

// Payment is a suggested transfer that, together with the other suggestions,
// settles every balance in a scope. Suggestions are transient and never stored.
type Payment struct {
	FromID string
	ToID   string
	Amount decimal.Decimal
}

// dust is the smallest position the simplifier still routes a payment for.
var dust = decimal.New(5, -3)

// SimplifyDebts proposes the payments that settle balances, routing money
// directly from debtors to creditors even when they share no obligation.
// A owes B 50 and B owes C 50 becomes a single payment A -> C 50.
func SimplifyDebts(balances BalanceMap) ([]Payment, error) {
	return SimplifyNets(NetPositions(balances))
}

// SimplifyNets runs greedy max-debtor/max-creditor matching over per-user net
// positions (positive = owed money). Users within half a cent of zero are ignored,
// so a one-cent position is always settled.
//
// Each step pays min(largest debt, largest credit) from the largest debtor to
// the largest creditor, so at least one of them is cleared per step and at most
// n-1 payments are produced. Ties on amount are broken by user id ascending.
// Creditor and debtor totals that differ by half a cent or more are reported as an
// InvariantViolation instead of producing an unbalanced plan.
func SimplifyNets(nets map[string]decimal.Decimal) ([]Payment, error) {
	creditors := &partyHeap{}
	debtors := &partyHeap{}
	credit, debt := decimal.Zero, decimal.Zero

	for id, net := range nets {
		switch {
		case net.GreaterThanOrEqual(dust):
			heap.Push(creditors, &party{id: id, remaining: net})
			credit = credit.Add(net)
		case net.LessThanOrEqual(dust.Neg()):
			heap.Push(debtors, &party{id: id, remaining: net.Neg()})
			debt = debt.Add(net.Neg())
		}
	}

	if credit.Sub(debt).Abs().GreaterThanOrEqual(dust) {
		return nil, &InvariantViolation{
			Check:  "balanced nets",
			Detail: "creditors are owed " + credit.String() + " but debtors owe " + debt.String(),
		}
	}

	var payments []Payment
	for creditors.Len() > 0 && debtors.Len() > 0 {
		d := heap.Pop(debtors).(*party)
		c := heap.Pop(creditors).(*party)

		amount := decimal.Min(d.remaining, c.remaining)
		payments = append(payments, Payment{FromID: d.id, ToID: c.id, Amount: amount})

		d.remaining = d.remaining.Sub(amount)
		c.remaining = c.remaining.Sub(amount)
		if d.remaining.GreaterThanOrEqual(dust) {
			heap.Push(debtors, d)
		}
		if c.remaining.GreaterThanOrEqual(dust) {
			heap.Push(creditors, c)
		}
	}
	return payments, nil
}

type party struct {
	id        string
	remaining decimal.Decimal
}

// partyHeap pops the largest remaining amount first, then the smallest id.
type partyHeap []*party

func (h partyHeap) Len() int { return len(h) }

func (h partyHeap) Less(i, j int) bool {
	if !h[i].remaining.Equal(h[j].remaining) {
		return h[i].remaining.GreaterThan(h[j].remaining)
	}
	return h[i].id < h[j].id
}

func (h partyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *partyHeap) Push(x any) { *h = append(*h, x.(*party)) }

func (h *partyHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}
