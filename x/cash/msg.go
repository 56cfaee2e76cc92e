package cash

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
)

const maxMemoSize = 128

// SendMsg is a direct transfer between two accounts.
type SendMsg struct {
	Source      drip.Address
	Destination drip.Address
	Amount      coin.Coin
	// Memo is a free-form note attached to the transfer.
	Memo string
}

var _ drip.Msg = (*SendMsg)(nil)

func (SendMsg) Path() string {
	return "cash/send"
}

func (m *SendMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *SendMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *SendMsg) Validate() error {
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if err := m.Amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !m.Amount.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "must be positive")
	}
	if len(m.Memo) > maxMemoSize {
		return errors.Wrap(errors.ErrInput, "memo too long")
	}
	return nil
}
