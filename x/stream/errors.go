package stream

import (
	"github.com/drip-pay/drip/errors"
)

var (
	// ErrNotActive is returned when an operation requires the stream
	// to be in a state it is not in.
	ErrNotActive = errors.Register(1200, "stream not active")

	// ErrRateLocked is returned when a structural change is attempted
	// while the stream rates are locked.
	ErrRateLocked = errors.Register(1201, "stream rate is locked")

	// ErrInsufficientAccrued is returned when a withdrawal asks for
	// more than the recipient has accrued so far.
	ErrInsufficientAccrued = errors.Register(1202, "insufficient accrued balance")

	// ErrInsufficientDeposit is returned when the net deposit does not
	// cover the payment obligation it must fund.
	ErrInsufficientDeposit = errors.Register(1203, "insufficient deposit")
)
