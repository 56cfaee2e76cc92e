package subscription

import (
	"github.com/drip-pay/drip/errors"
)

var (
	// ErrNotDue is returned when a payment execution is attempted
	// before the next scheduled payment time, or on a subscription
	// that is not active.
	ErrNotDue = errors.Register(1300, "payment not due")

	// ErrInsufficientBalance is returned when the escrow balance does
	// not cover a single payment interval.
	ErrInsufficientBalance = errors.Register(1301, "insufficient escrow balance")
)
