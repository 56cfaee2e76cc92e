// Package driptest provides common helpers for testing handlers and
// extensions without wiring a full application.
package driptest

import (
	"context"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
)

// Auth is a mock implementing x.Authenticator interface.
type Auth struct {
	// Signer is returned for all calls to GetConditions unless Signers
	// is set.
	Signer drip.Condition

	// Signers is returned for all calls to GetConditions if set.
	Signers []drip.Condition
}

func (a *Auth) GetConditions(drip.Context) []drip.Condition {
	if len(a.Signers) > 0 {
		return a.Signers
	}
	if a.Signer != nil {
		return []drip.Condition{a.Signer}
	}
	return nil
}

func (a *Auth) HasAddress(ctx drip.Context, addr drip.Address) bool {
	for _, s := range a.Signers {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return a.Signer != nil && addr.Equals(a.Signer.Address())
}

// CtxAuth is an x.Authenticator implementation that reads conditions
// from the context, stored there under a given key.
type CtxAuth struct {
	Key string
}

func (a *CtxAuth) SetConditions(ctx drip.Context, conds ...drip.Condition) drip.Context {
	return context.WithValue(ctx, ctxAuthKey(a.Key), conds)
}

func (a *CtxAuth) GetConditions(ctx drip.Context) []drip.Condition {
	val := ctx.Value(ctxAuthKey(a.Key))
	if val == nil {
		return nil
	}
	conds, ok := val.([]drip.Condition)
	if !ok {
		panic(errors.Wrapf(errors.ErrType, "%T", val))
	}
	return conds
}

func (a *CtxAuth) HasAddress(ctx drip.Context, addr drip.Address) bool {
	for _, cond := range a.GetConditions(ctx) {
		if addr.Equals(cond.Address()) {
			return true
		}
	}
	return false
}

type ctxAuthKey string
