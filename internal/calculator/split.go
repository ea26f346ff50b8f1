package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

var cent = decimal.New(1, -2)

// PersonSplit represents the calculated split for one person
type PersonSplit struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Item represents a single item on the bill
type Item struct {
	Description string
	Amount      decimal.Decimal
	AssignedTo  []string
}

// SplitEqual divides amount equally among userIDs, rounded to cents. Leftover
// cents go to participants in id order, so the shares always add up to amount.
func SplitEqual(amount decimal.Decimal, userIDs []string) ([]models.Participant, error) {
	if len(userIDs) == 0 {
		return nil, invalid("participants", "must have at least one participant")
	}
	weights := make(map[string]decimal.Decimal, len(userIDs))
	for _, id := range userIDs {
		if _, dup := weights[id]; dup {
			return nil, invalid("participants", "duplicate participant %s", id)
		}
		weights[id] = decimal.NewFromInt(1)
	}
	return allocate(amount, weights)
}

// SplitExact uses the given shares as-is after checking they add up to amount.
func SplitExact(amount decimal.Decimal, shares map[string]decimal.Decimal) ([]models.Participant, error) {
	if len(shares) == 0 {
		return nil, invalid("participants", "must have at least one participant")
	}
	sum := decimal.Zero
	for id, s := range shares {
		if s.IsNegative() {
			return nil, invalid("participants.share", "share of %s is negative", id)
		}
		sum = sum.Add(s)
	}
	if !withinEpsilon(sum, amount) {
		return nil, invalid("participants", "shares sum to %s, expense amount is %s", sum, amount)
	}
	participants := make([]models.Participant, 0, len(shares))
	for _, id := range sortedKeys(shares) {
		participants = append(participants, models.Participant{UserID: id, Share: shares[id]})
	}
	return participants, nil
}

// SplitPercent splits amount by percentages that must add up to 100.
func SplitPercent(amount decimal.Decimal, percents map[string]decimal.Decimal) ([]models.Participant, error) {
	if len(percents) == 0 {
		return nil, invalid("participants", "must have at least one participant")
	}
	sum := decimal.Zero
	for id, p := range percents {
		if p.IsNegative() {
			return nil, invalid("participants.percent", "percent of %s is negative", id)
		}
		sum = sum.Add(p)
	}
	if !withinEpsilon(sum, decimal.NewFromInt(100)) {
		return nil, invalid("participants", "percentages sum to %s, want 100", sum)
	}
	return allocate(amount, percents)
}

// CalculateSplit computes how much each person owes including proportional tax
// Based on the algorithm: person_total = person_subtotal × (1 + (total_tax / bill_subtotal))
func CalculateSplit(items []Item, billTotal, billSubtotal decimal.Decimal, participants []string) (map[string]*PersonSplit, error) {
	if billSubtotal.IsZero() {
		return nil, invalid("subtotal", "cannot be zero")
	}
	if len(participants) == 0 {
		return nil, invalid("participants", "must have at least one participant")
	}

	tax := billTotal.Sub(billSubtotal)
	splits := make(map[string]*PersonSplit, len(participants))
	for _, p := range participants {
		splits[p] = &PersonSplit{}
	}

	// If no items, split total equally among all participants
	if len(items) == 0 {
		n := decimal.NewFromInt(int64(len(participants)))
		for _, split := range splits {
			split.Subtotal = billSubtotal.Div(n)
			split.Tax = tax.Div(n)
			split.Total = billTotal.Div(n)
		}
		return splits, nil
	}

	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			continue
		}
		perPerson := item.Amount.Div(decimal.NewFromInt(int64(len(item.AssignedTo))))
		for _, person := range item.AssignedTo {
			if split, exists := splits[person]; exists {
				split.Subtotal = split.Subtotal.Add(perPerson)
			}
		}
	}

	rate := tax.Div(billSubtotal)
	for _, split := range splits {
		split.Tax = split.Subtotal.Mul(rate)
		split.Total = split.Subtotal.Add(split.Tax)
	}
	return splits, nil
}

// SplitItemized turns an itemized bill into cent-exact participant shares whose
// sum is billTotal. Tax is spread in proportion to each person's item subtotal.
func SplitItemized(items []Item, billTotal, billSubtotal decimal.Decimal, participants []string) ([]models.Participant, error) {
	splits, err := CalculateSplit(items, billTotal, billSubtotal, participants)
	if err != nil {
		return nil, err
	}
	weights := make(map[string]decimal.Decimal, len(splits))
	for id, s := range splits {
		weights[id] = s.Total
	}
	return allocate(billTotal, weights)
}

// allocate splits amount in proportion to weights, truncating each share to
// cents and handing the leftover cents out in id order.
func allocate(amount decimal.Decimal, weights map[string]decimal.Decimal) ([]models.Participant, error) {
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(w)
	}
	if !total.IsPositive() {
		return nil, invalid("participants", "no participant has a positive share")
	}

	ids := sortedKeys(weights)
	participants := make([]models.Participant, len(ids))
	assigned := decimal.Zero
	for i, id := range ids {
		share := amount.Mul(weights[id]).Div(total).Truncate(2)
		participants[i] = models.Participant{UserID: id, Share: share}
		assigned = assigned.Add(share)
	}

	remainder := amount.Sub(assigned)
	for i := 0; remainder.GreaterThanOrEqual(cent) && len(ids) > 0; i = (i + 1) % len(ids) {
		if weights[ids[i]].IsZero() {
			continue
		}
		participants[i].Share = participants[i].Share.Add(cent)
		remainder = remainder.Sub(cent)
	}
	// Sub-cent amounts only appear when amount itself is not in cents.
	if !remainder.IsZero() {
		participants[0].Share = participants[0].Share.Add(remainder)
	}
	return participants, nil
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
