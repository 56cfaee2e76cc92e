package drip

import (
	"context"
	"time"

	"github.com/drip-pay/drip/errors"
)

// Context is a context.Context that flows through the handler stack.
// Extensions may enrich it with their own keys; the framework only
// stores the current time of the operation being processed.
type Context = context.Context

type contextKey int

const (
	contextKeyTime contextKey = iota
)

// WithBlockTime sets the current time for the duration of one
// operation. The clock is queried once per operation and must be
// monotonically non-decreasing across operations; equal timestamps on
// consecutive calls are valid.
func WithBlockTime(ctx Context, t time.Time) Context {
	return context.WithValue(ctx, contextKeyTime, t)
}

// BlockTime returns the current time as declared for this operation.
// An error is returned when no time was bound to the context.
func BlockTime(ctx Context) (time.Time, error) {
	val, ok := ctx.Value(contextKeyTime).(time.Time)
	if !ok {
		return time.Time{}, errors.Wrap(errors.ErrHuman, "block time not present in the context")
	}
	return val, nil
}

// IsExpired returns true if given time is in the past as compared to
// the "now" declared for the context. Expiration is inclusive, meaning
// that if current time is equal to the expiration time then this
// function returns true.
func IsExpired(ctx Context, t UnixTime) bool {
	now, err := BlockTime(ctx)
	if err != nil {
		panic("block time is not present in the context")
	}
	return t <= AsUnixTime(now)
}

// InThePast returns true if given time is strictly before the current
// time as declared in the context.
func InThePast(ctx Context, t time.Time) bool {
	now, err := BlockTime(ctx)
	if err != nil {
		panic("block time is not present in the context")
	}
	return t.Before(now)
}

// InTheFuture returns true if given time is strictly after the current
// time as declared in the context.
func InTheFuture(ctx Context, t time.Time) bool {
	now, err := BlockTime(ctx)
	if err != nil {
		panic("block time is not present in the context")
	}
	return t.After(now)
}
