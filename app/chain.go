package app

import (
	"github.com/drip-pay/drip"
)

// Decorators holds a chain of decorators, not yet resolved by a
// Handler.
type Decorators struct {
	chain []drip.Decorator
}

// ChainDecorators takes a chain of decorators. The first decorator
// wraps all the rest.
func ChainDecorators(chain ...drip.Decorator) Decorators {
	return Decorators{chain: chain}
}

// Chain appends more decorators to an existing chain.
func (d Decorators) Chain(next ...drip.Decorator) Decorators {
	return Decorators{chain: append(d.chain, next...)}
}

// WithHandler resolves the stack into a real Handler.
func (d Decorators) WithHandler(h drip.Handler) drip.Handler {
	for i := len(d.chain) - 1; i >= 0; i-- {
		h = chainedHandler{
			mid:  d.chain[i],
			next: h,
		}
	}
	return h
}

type chainedHandler struct {
	mid  drip.Decorator
	next drip.Handler
}

var _ drip.Handler = chainedHandler{}

func (h chainedHandler) Check(ctx drip.Context, store drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	return h.mid.Check(ctx, store, tx, h.next)
}

func (h chainedHandler) Deliver(ctx drip.Context, store drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	return h.mid.Deliver(ctx, store, tx, h.next)
}
