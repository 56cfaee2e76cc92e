package cash

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
)

// Controller is the functionality needed by other extensions to move
// funds around. This is implemented by CashController and may be
// mocked in tests.
type Controller interface {
	// MoveCoins removes funds from the source account and adds them to
	// the destination account.
	MoveCoins(db drip.KVStore, source, destination drip.Address, amount coin.Coin) error

	// CoinMint adds the given amount to the destination account,
	// creating new funds. Used to provision accounts at genesis and in
	// tests.
	CoinMint(db drip.KVStore, destination drip.Address, amount coin.Coin) error

	// Balance returns the full balance of an account. An account that
	// never received funds has an empty balance, not an error.
	Balance(db drip.ReadOnlyKVStore, account drip.Address) (coin.Coins, error)
}

// CashController is the standard implementation of the Controller
// interface, backed by a wallet bucket.
type CashController struct {
	bucket orm.ModelBucket
}

var _ Controller = CashController{}

// NewController returns a base Controller implementation.
func NewController(bucket orm.ModelBucket) CashController {
	return CashController{bucket: bucket}
}

// MoveCoins moves the given amount from source to destination. It
// fails if the source account does not hold enough.
func (c CashController) MoveCoins(db drip.KVStore, source, destination drip.Address, amount coin.Coin) error {
	if err := amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "must be positive, got %d", amount.Amount)
	}

	src, err := c.wallet(db, source)
	if err != nil {
		return errors.Wrap(err, "source")
	}
	if !src.Coins.Contains(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "wallet %s", source)
	}
	if src.Coins, err = src.Coins.Add(amount.Negative()); err != nil {
		return errors.Wrap(err, "source")
	}
	if _, err := c.bucket.Put(db, source, src); err != nil {
		return errors.Wrap(err, "cannot store source wallet")
	}

	dst, err := c.wallet(db, destination)
	if err != nil {
		return errors.Wrap(err, "destination")
	}
	if dst.Coins, err = dst.Coins.Add(amount); err != nil {
		return errors.Wrap(err, "destination")
	}
	if _, err := c.bucket.Put(db, destination, dst); err != nil {
		return errors.Wrap(err, "cannot store destination wallet")
	}
	return nil
}

// CoinMint creates the given amount in the destination account.
func (c CashController) CoinMint(db drip.KVStore, destination drip.Address, amount coin.Coin) error {
	wallet, err := c.wallet(db, destination)
	if err != nil {
		return err
	}
	if wallet.Coins, err = wallet.Coins.Add(amount); err != nil {
		return err
	}
	_, err = c.bucket.Put(db, destination, wallet)
	return err
}

// Balance returns all coins this account holds.
func (c CashController) Balance(db drip.ReadOnlyKVStore, account drip.Address) (coin.Coins, error) {
	wallet, err := c.wallet(db, account)
	if err != nil {
		return nil, err
	}
	return wallet.Coins, nil
}

// wallet loads the account state, returning an empty wallet when the
// account was never used before.
func (c CashController) wallet(db drip.ReadOnlyKVStore, account drip.Address) (*Set, error) {
	if err := account.Validate(); err != nil {
		return nil, errors.Wrap(err, "account")
	}
	var wallet Set
	switch err := c.bucket.One(db, account, &wallet); {
	case err == nil:
		return &wallet, nil
	case errors.ErrNotFound.Is(err):
		return &Set{}, nil
	default:
		return nil, errors.Wrap(err, "cannot load wallet")
	}
}
