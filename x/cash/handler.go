package cash

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/x"
)

const sendCost int64 = 100

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r drip.Registry, auth x.Authenticator, control Controller) {
	r.Handle(&SendMsg{}, SendHandler{auth: auth, control: control})
}

// SendHandler moves funds between two accounts on behalf of an
// authenticated source.
type SendHandler struct {
	auth    x.Authenticator
	control Controller
}

var _ drip.Handler = SendHandler{}

func (h SendHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: sendCost}, nil
}

func (h SendHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := h.control.MoveCoins(db, msg.Source, msg.Destination, msg.Amount); err != nil {
		return nil, err
	}
	return &drip.DeliverResult{}, nil
}

func (h SendHandler) validate(ctx drip.Context, tx drip.Tx) (*SendMsg, error) {
	var msg SendMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source must sign the transfer")
	}
	return &msg, nil
}
