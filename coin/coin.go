// Package coin provides an integer token amount representation and
// checked arithmetic for it.
//
// All amounts are whole numbers of the smallest token unit. There is
// no fractional part and no floating point anywhere. Every operation
// that could exceed the int64 range returns ErrOverflow instead of
// silently wrapping.
package coin

import (
	"math"
	"regexp"

	"github.com/drip-pay/drip/errors"
)

// IsCC determines if a ticker is a valid currency code, 3-4 upper
// case letters.
var IsCC = regexp.MustCompile(`^[A-Z]{3,4}$`).MatchString

// Coin is an amount of a single currency.
type Coin struct {
	// Ticker is the currency code.
	Ticker string
	// Amount is a whole number of the smallest unit.
	Amount int64
}

// NewCoin creates a new coin object.
func NewCoin(amount int64, ticker string) Coin {
	return Coin{
		Ticker: ticker,
		Amount: amount,
	}
}

// Add combines two coins of the same currency.
func (c Coin) Add(o Coin) (Coin, error) {
	if !c.SameType(o) {
		return Coin{}, errors.Wrapf(errors.ErrCurrency, "%s vs %s", c.Ticker, o.Ticker)
	}
	amount, err := safeAdd(c.Amount, o.Amount)
	if err != nil {
		return Coin{}, err
	}
	return Coin{Ticker: c.Ticker, Amount: amount}, nil
}

// Subtract removes the value of o from this coin.
func (c Coin) Subtract(o Coin) (Coin, error) {
	return c.Add(o.Negative())
}

// Multiply scales the coin amount by the given factor.
func (c Coin) Multiply(times int64) (Coin, error) {
	if times == 0 || c.Amount == 0 {
		return Coin{Ticker: c.Ticker}, nil
	}
	amount := c.Amount * times
	if amount/times != c.Amount {
		return Coin{}, errors.Wrapf(errors.ErrOverflow, "%d times %d", c.Amount, times)
	}
	return Coin{Ticker: c.Ticker, Amount: amount}, nil
}

// Divide returns the whole part of dividing the amount by the given
// pieces, rounding towards zero, together with the remainder.
func (c Coin) Divide(pieces int64) (Coin, Coin, error) {
	if pieces == 0 {
		return Coin{}, Coin{}, errors.Wrap(errors.ErrInput, "pieces must not be zero")
	}
	return Coin{Ticker: c.Ticker, Amount: c.Amount / pieces},
		Coin{Ticker: c.Ticker, Amount: c.Amount % pieces},
		nil
}

// Negative returns the same coin value with the opposite sign.
func (c Coin) Negative() Coin {
	return Coin{
		Ticker: c.Ticker,
		Amount: -c.Amount,
	}
}

// Compare returns -1, 0 or 1 when this coin is respectively less
// than, equal to or greater than the other. Panics on a currency
// mismatch, compare only after checking SameType.
func (c Coin) Compare(o Coin) int {
	if !c.SameType(o) {
		panic("comparing different currencies")
	}
	switch {
	case c.Amount < o.Amount:
		return -1
	case c.Amount > o.Amount:
		return 1
	default:
		return 0
	}
}

// Equals returns true if both coins are the same currency and amount.
func (c Coin) Equals(o Coin) bool {
	return c.SameType(o) && c.Amount == o.Amount
}

// SameType returns true if both coins use the same currency.
func (c Coin) SameType(o Coin) bool {
	return c.Ticker == o.Ticker
}

// IsZero returns true if the amount is zero.
func (c Coin) IsZero() bool {
	return c.Amount == 0
}

// IsPositive returns true if the amount is greater than zero.
func (c Coin) IsPositive() bool {
	return c.Amount > 0
}

// IsNonNegative returns true if the amount is zero or greater.
func (c Coin) IsNonNegative() bool {
	return c.Amount >= 0
}

// IsGTE returns true if the coin amount is at least as big as the
// other. Coins must be of the same currency.
func (c Coin) IsGTE(o Coin) bool {
	return c.SameType(o) && c.Amount >= o.Amount
}

// Validate ensures the coin is in a well-formed state.
func (c Coin) Validate() error {
	if !IsCC(c.Ticker) {
		return errors.Wrapf(errors.ErrCurrency, "invalid ticker: %q", c.Ticker)
	}
	return nil
}

func safeAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d + %d", a, b)
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d + %d", a, b)
	}
	return a + b, nil
}
