package dispatch

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrOrganizationBanned means the tenant is deactivated. The dispatcher
// fails every pending recipient and finalizes the message without touching
// any provider.
var ErrOrganizationBanned = errors.New("organization is banned")

// InsufficientBalanceError is a preflight rejection: either the tenant
// credit or the sender gateway float cannot cover the whole batch. Nothing
// is sent and nothing is debited; the message stays unsent for a later
// cycle after a top-up.
type InsufficientBalanceError struct {
	Scope     string // "organization" or "gateway"
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: need %s, have %s",
		e.Scope, e.Required.String(), e.Available.String())
}
