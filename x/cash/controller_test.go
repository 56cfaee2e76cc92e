package cash

import (
	"testing"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/driptest"
	"github.com/drip-pay/drip/driptest/assert"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/store"
)

func TestMoveCoins(t *testing.T) {
	var (
		alice = driptest.NewCondition().Address()
		bob   = driptest.NewCondition().Address()
	)
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	assert.Nil(t, control.CoinMint(db, alice, coin.NewCoin(100, "DRIP")))

	assert.Nil(t, control.MoveCoins(db, alice, bob, coin.NewCoin(40, "DRIP")))

	assertBalance(t, control, db, alice, coin.NewCoin(60, "DRIP"))
	assertBalance(t, control, db, bob, coin.NewCoin(40, "DRIP"))
}

func TestMoveCoinsInsufficientFunds(t *testing.T) {
	var (
		alice = driptest.NewCondition().Address()
		bob   = driptest.NewCondition().Address()
	)
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	assert.Nil(t, control.CoinMint(db, alice, coin.NewCoin(10, "DRIP")))

	err := control.MoveCoins(db, alice, bob, coin.NewCoin(11, "DRIP"))
	assert.IsErr(t, ErrInsufficientFunds, err)

	// Nothing moved.
	assertBalance(t, control, db, alice, coin.NewCoin(10, "DRIP"))
	assertBalance(t, control, db, bob, coin.NewCoin(0, "DRIP"))
}

func TestMoveCoinsCurrencyIsSeparate(t *testing.T) {
	var (
		alice = driptest.NewCondition().Address()
		bob   = driptest.NewCondition().Address()
	)
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	assert.Nil(t, control.CoinMint(db, alice, coin.NewCoin(10, "DRIP")))
	assert.Nil(t, control.CoinMint(db, alice, coin.NewCoin(5, "IOV")))

	err := control.MoveCoins(db, alice, bob, coin.NewCoin(7, "IOV"))
	assert.IsErr(t, ErrInsufficientFunds, err)

	assert.Nil(t, control.MoveCoins(db, alice, bob, coin.NewCoin(5, "IOV")))
	assertBalance(t, control, db, alice, coin.NewCoin(10, "DRIP"))
	assertBalance(t, control, db, bob, coin.NewCoin(5, "IOV"))
}

func TestMoveCoinsRejectsNonPositive(t *testing.T) {
	var (
		alice = driptest.NewCondition().Address()
		bob   = driptest.NewCondition().Address()
	)
	db := store.MemStore()
	control := NewController(NewWalletBucket())

	err := control.MoveCoins(db, alice, bob, coin.NewCoin(0, "DRIP"))
	assert.IsErr(t, errors.ErrAmount, err)
	err = control.MoveCoins(db, alice, bob, coin.NewCoin(-4, "DRIP"))
	assert.IsErr(t, errors.ErrAmount, err)
}

func assertBalance(t testing.TB, control Controller, db drip.ReadOnlyKVStore, account drip.Address, want coin.Coin) {
	t.Helper()
	balance, err := control.Balance(db, account)
	assert.Nil(t, err)
	assert.Equal(t, want, balance.Amount(want.Ticker))
}
