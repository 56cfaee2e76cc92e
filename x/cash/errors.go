package cash

import (
	"github.com/drip-pay/drip/errors"
)

var (
	// ErrInsufficientFunds is returned when the source account does
	// not hold enough to cover a transfer.
	ErrInsufficientFunds = errors.Register(1100, "insufficient funds")
)
