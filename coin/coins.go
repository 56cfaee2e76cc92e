package coin

import (
	"sort"

	"github.com/drip-pay/drip/errors"
)

// Coins is a set of coins, one per currency, sorted by ticker.
type Coins []Coin

// NormalizeCoins combines any coins of the same currency, removes zero
// amounts and sorts the result. The input is not modified.
func NormalizeCoins(raw []Coin) (Coins, error) {
	byTicker := make(map[string]int64)
	for _, c := range raw {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		sum, err := safeAdd(byTicker[c.Ticker], c.Amount)
		if err != nil {
			return nil, err
		}
		byTicker[c.Ticker] = sum
	}
	res := make(Coins, 0, len(byTicker))
	for ticker, amount := range byTicker {
		if amount == 0 {
			continue
		}
		res = append(res, Coin{Ticker: ticker, Amount: amount})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Ticker < res[j].Ticker
	})
	return res, nil
}

// Add returns a new set with the given coin included. A negative coin
// lowers the balance of its currency, possibly below zero.
func (cs Coins) Add(c Coin) (Coins, error) {
	return NormalizeCoins(append(append([]Coin{}, cs...), c))
}

// Amount returns the balance of the given currency, zero when absent.
func (cs Coins) Amount(ticker string) Coin {
	for _, c := range cs {
		if c.Ticker == ticker {
			return c
		}
	}
	return Coin{Ticker: ticker}
}

// Contains returns true if there is at least as much of the given
// coin in the set.
func (cs Coins) Contains(c Coin) bool {
	return cs.Amount(c.Ticker).IsGTE(c)
}

// IsNonNegative returns true if no balance in the set is below zero.
func (cs Coins) IsNonNegative() bool {
	for _, c := range cs {
		if !c.IsNonNegative() {
			return false
		}
	}
	return true
}

// Validate ensures the set is sorted, unique per currency and has no
// zero entries.
func (cs Coins) Validate() error {
	last := ""
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.IsZero() {
			return errors.Wrapf(errors.ErrAmount, "zero entry for %s", c.Ticker)
		}
		if c.Ticker <= last {
			return errors.Wrap(errors.ErrState, "coins not sorted by ticker")
		}
		last = c.Ticker
	}
	return nil
}
