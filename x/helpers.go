// Package x contains the domain extensions and the glue they share.
//
// Every extension lives in its own subpackage with a model, messages,
// a handler and errors. This package itself only holds helpers common
// to all of them.
package x

import (
	"github.com/drip-pay/drip"
)

// Authenticator is an interface for processing authentication of the
// signers of a transaction. The conditions are placed in the context
// by decorators before the handlers run.
type Authenticator interface {
	// GetConditions reveals all currently authenticated conditions.
	GetConditions(drip.Context) []drip.Condition

	// HasAddress checks if any condition matches this address.
	HasAddress(drip.Context, drip.Address) bool
}

// MultiAuth chains together many authenticators into one.
type MultiAuth struct {
	impls []Authenticator
}

var _ Authenticator = MultiAuth{}

// ChainAuth groups together a series of authenticators.
func ChainAuth(impls ...Authenticator) MultiAuth {
	return MultiAuth{impls: impls}
}

// GetConditions combines the conditions of all chained authenticators.
func (m MultiAuth) GetConditions(ctx drip.Context) []drip.Condition {
	var res []drip.Condition
	for _, impl := range m.impls {
		add := impl.GetConditions(ctx)
		if len(add) > 0 {
			res = append(res, add...)
		}
	}
	// TODO: remove duplicates
	return res
}

// HasAddress returns true iff any of the chained authenticators
// matches the address.
func (m MultiAuth) HasAddress(ctx drip.Context, addr drip.Address) bool {
	for _, impl := range m.impls {
		if impl.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// MainSigner returns the first condition, which is the primary signer
// of a transaction, or nil when there are no conditions.
func MainSigner(ctx drip.Context, auth Authenticator) drip.Condition {
	signers := auth.GetConditions(ctx)
	if len(signers) == 0 {
		return nil
	}
	return signers[0]
}

// HasAllAddresses returns true if all given addresses are
// authenticated.
func HasAllAddresses(ctx drip.Context, auth Authenticator, required []drip.Address) bool {
	for _, addr := range required {
		if !auth.HasAddress(ctx, addr) {
			return false
		}
	}
	return true
}
