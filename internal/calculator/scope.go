package calculator

import "github.com/mmynk/splitwiser/internal/models"

// ScopeKind selects which obligations are aggregated together.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeGroup
	ScopeFriend
)

// Scope is the boundary within which obligations are aggregated.
type Scope struct {
	Kind    ScopeKind
	GroupID string
	Pair    Pair
}

// GlobalScope covers every obligation.
func GlobalScope() Scope { return Scope{Kind: ScopeGlobal} }

// GroupScope covers obligations recorded in groupID.
func GroupScope(groupID string) Scope { return Scope{Kind: ScopeGroup, GroupID: groupID} }

// FriendScope covers every obligation between a and b, in any group.
func FriendScope(a, b string) Scope {
	pair, _ := NewPair(a, b)
	return Scope{Kind: ScopeFriend, Pair: pair}
}

// Contains reports whether ob falls inside the scope.
func (s Scope) Contains(ob *models.Obligation) bool {
	switch s.Kind {
	case ScopeGroup:
		return ob.GroupID == s.GroupID
	case ScopeFriend:
		pair, _ := NewPair(ob.OwerID, ob.PayerID)
		return pair == s.Pair
	default:
		return true
	}
}

// FilterScope returns the obligations inside s, preserving order.
func FilterScope(obligations []models.Obligation, s Scope) []models.Obligation {
	out := make([]models.Obligation, 0, len(obligations))
	for i := range obligations {
		if s.Contains(&obligations[i]) {
			out = append(out, obligations[i])
		}
	}
	return out
}
