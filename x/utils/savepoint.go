// Package utils holds decorators useful to any handler stack.
package utils

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
)

// Savepoint will isolate all data inside of the call, and commit or
// roll back to the underlying store based on the result. An operation
// that errors out leaves no partial writes behind.
type Savepoint struct {
	onCheck   bool
	onDeliver bool
}

var _ drip.Decorator = Savepoint{}

// NewSavepoint creates a Savepoint decorator, but you must call
// OnCheck or OnDeliver (or both) so it triggers.
func NewSavepoint() Savepoint {
	return Savepoint{}
}

// OnCheck returns a savepoint that isolates all checks.
func (s Savepoint) OnCheck() Savepoint {
	return Savepoint{
		onCheck:   true,
		onDeliver: s.onDeliver,
	}
}

// OnDeliver returns a savepoint that isolates all deliveries.
func (s Savepoint) OnDeliver() Savepoint {
	return Savepoint{
		onCheck:   s.onCheck,
		onDeliver: true,
	}
}

// Check verifies the transaction and commits the cache iff it
// succeeds.
func (s Savepoint) Check(ctx drip.Context, store drip.KVStore, tx drip.Tx, next drip.Checker) (*drip.CheckResult, error) {
	if !s.onCheck {
		return next.Check(ctx, store, tx)
	}
	cstore, ok := store.(drip.CacheableKVStore)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "need cachable kvstore")
	}
	cache := cstore.CacheWrap()

	res, err := next.Check(ctx, cache, tx)
	if err == nil {
		err = cache.Write()
	} else {
		cache.Discard()
	}
	return res, err
}

// Deliver executes the transaction and commits the cache iff it
// succeeds.
func (s Savepoint) Deliver(ctx drip.Context, store drip.KVStore, tx drip.Tx, next drip.Deliverer) (*drip.DeliverResult, error) {
	if !s.onDeliver {
		return next.Deliver(ctx, store, tx)
	}
	cstore, ok := store.(drip.CacheableKVStore)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "need cachable kvstore")
	}
	cache := cstore.CacheWrap()

	res, err := next.Deliver(ctx, cache, tx)
	if err == nil {
		err = cache.Write()
	} else {
		cache.Discard()
	}
	return res, err
}
