// Package fee implements the protocol fee engine.
//
// Fees are expressed in basis points, one hundredth of a percent. A
// fee is always computed on the gross amount with floor division, so
// the protocol never rounds in its own favor at the payer's expense.
// Both the streaming and the subscription ledger charge their deposits
// through this package, against a single shared configuration.
package fee

import (
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
)

const (
	// BpsDenominator converts basis points to a fraction.
	BpsDenominator = 10000

	// MaxFeeBps is the highest fee the configuration accepts, 10%.
	MaxFeeBps = 1000

	// DefaultFeeBps is the fee used unless the configuration says
	// otherwise.
	DefaultFeeBps = 50
)

// Apply splits a gross amount into the net part and the fee part.
// The fee is floor(gross * bps / 10000), so net + fee always equals
// gross and any rounding remainder stays with the payer.
func Apply(gross coin.Coin, bps uint32) (net coin.Coin, fee coin.Coin, err error) {
	if bps > MaxFeeBps {
		return coin.Coin{}, coin.Coin{}, errors.Wrapf(errors.ErrInput, "fee of %d bps above maximum of %d", bps, MaxFeeBps)
	}
	if !gross.IsNonNegative() {
		return coin.Coin{}, coin.Coin{}, errors.Wrap(errors.ErrAmount, "gross amount must not be negative")
	}

	scaled, err := gross.Multiply(int64(bps))
	if err != nil {
		return coin.Coin{}, coin.Coin{}, errors.Wrap(err, "fee computation")
	}
	fee, _, err = scaled.Divide(BpsDenominator)
	if err != nil {
		return coin.Coin{}, coin.Coin{}, err
	}
	net, err = gross.Subtract(fee)
	if err != nil {
		return coin.Coin{}, coin.Coin{}, err
	}
	return net, fee, nil
}
