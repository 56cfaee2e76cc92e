// Package cash defines a simple wallet implementation and a
// controller that moves funds between accounts.
//
// Every account is addressed by a drip.Address. Derived accounts, like
// the ones holding escrowed deposits, are regular wallets whose
// address is computed from a condition, so no private key can ever
// spend them directly.
package cash

import (
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
)

// Set is the model of a wallet, the set of coins one address holds.
type Set struct {
	Coins coin.Coins
}

var _ orm.Model = (*Set)(nil)

func (s *Set) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(s)
}

func (s *Set) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, s)
}

func (s *Set) Validate() error {
	return errors.Wrap(s.Coins.Validate(), "coins")
}

// NewWalletBucket returns a bucket for keeping track of balances,
// keyed by the account address.
func NewWalletBucket() orm.ModelBucket {
	return orm.NewModelBucket("cash", &Set{})
}
