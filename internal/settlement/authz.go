package settlement

import (
	"errors"

	"github.com/mmynk/splitwiser/internal/models"
)

// ErrForbidden is returned when the actor may not perform the action on an
// obligation.
var ErrForbidden = errors.New("not allowed to act on this obligation")

// CanSettle reports whether actor may mark ob as paid: the ower always can, and
// so can an admin recording a payment on someone's behalf.
func CanSettle(ob *models.Obligation, actor *models.User) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin || actor.ID == ob.OwerID
}
