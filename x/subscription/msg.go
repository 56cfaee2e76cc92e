package subscription

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
)

// maxBatchSize limits how many subscriptions one batch execution may
// touch.
const maxBatchSize = 50

// CreateMsg opens a new subscription. No money moves: the escrow
// starts empty and is funded with DepositMsg. The amount is gross,
// the platform fee is netted out of it.
type CreateMsg struct {
	Subscriber drip.Address
	Recipient  drip.Address
	// Amount is the gross amount subscribed per interval.
	Amount  coin.Coin
	Cadence Cadence
	// Interval is required for CadenceCustom, ignored otherwise.
	Interval drip.UnixDuration
	// FirstPaymentTime schedules the first charge. Zero means one
	// interval after creation.
	FirstPaymentTime drip.UnixTime
	Title            string
	Description      string
}

var _ drip.Msg = (*CreateMsg)(nil)

func (CreateMsg) Path() string {
	return "subscription/create"
}

func (m *CreateMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *CreateMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *CreateMsg) Validate() error {
	if err := m.Subscriber.Validate(); err != nil {
		return errors.Wrap(err, "subscriber")
	}
	if err := m.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if m.Recipient.Equals(m.Subscriber) {
		return errors.Wrap(errors.ErrInput, "subscriber cannot be the recipient")
	}
	if err := m.Amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !m.Amount.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	switch m.Cadence {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
	case CadenceCustom:
		if m.Interval < MinCustomInterval {
			return errors.Wrapf(errors.ErrInput, "custom interval below %s", MinCustomInterval)
		}
	default:
		return errors.Wrapf(errors.ErrInput, "invalid cadence %d", m.Cadence)
	}
	if len(m.Title) > maxTitleSize {
		return errors.Wrapf(errors.ErrInput, "title longer than %d characters", maxTitleSize)
	}
	if len(m.Description) > maxDescriptionSize {
		return errors.Wrapf(errors.ErrInput, "description longer than %d characters", maxDescriptionSize)
	}
	return nil
}

// DepositMsg adds funds to the subscription escrow.
type DepositMsg struct {
	SubscriptionID []byte
	Amount         coin.Coin
}

var _ drip.Msg = (*DepositMsg)(nil)

func (DepositMsg) Path() string {
	return "subscription/deposit"
}

func (m *DepositMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *DepositMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *DepositMsg) Validate() error {
	if err := validateSubscriptionID(m.SubscriptionID); err != nil {
		return err
	}
	if err := m.Amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !m.Amount.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	return nil
}

// ExecutePaymentMsg settles all due intervals of one subscription.
// Anyone may execute a due payment.
type ExecutePaymentMsg struct {
	SubscriptionID []byte
}

var _ drip.Msg = (*ExecutePaymentMsg)(nil)

func (ExecutePaymentMsg) Path() string {
	return "subscription/execute"
}

func (m *ExecutePaymentMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *ExecutePaymentMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *ExecutePaymentMsg) Validate() error {
	return validateSubscriptionID(m.SubscriptionID)
}

// ExecuteBatchMsg settles many subscriptions at once. Each one is
// isolated: a failing item is recorded and skipped, the rest still
// goes through.
type ExecuteBatchMsg struct {
	SubscriptionIDs [][]byte
}

var _ drip.Msg = (*ExecuteBatchMsg)(nil)

func (ExecuteBatchMsg) Path() string {
	return "subscription/execute_batch"
}

func (m *ExecuteBatchMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *ExecuteBatchMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *ExecuteBatchMsg) Validate() error {
	if len(m.SubscriptionIDs) == 0 {
		return errors.Wrap(errors.ErrEmpty, "subscription ids")
	}
	if len(m.SubscriptionIDs) > maxBatchSize {
		return errors.Wrapf(errors.ErrInput, "batch larger than %d", maxBatchSize)
	}
	for _, id := range m.SubscriptionIDs {
		if err := validateSubscriptionID(id); err != nil {
			return err
		}
	}
	return nil
}

// PauseMsg stops payment execution. A paused subscription is never
// due and accumulates no backlog.
type PauseMsg struct {
	SubscriptionID []byte
}

var _ drip.Msg = (*PauseMsg)(nil)

func (PauseMsg) Path() string {
	return "subscription/pause"
}

func (m *PauseMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *PauseMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *PauseMsg) Validate() error {
	return validateSubscriptionID(m.SubscriptionID)
}

// ResumeMsg reactivates a paused subscription. The schedule advances
// past the current time in whole intervals, so the pause never
// creates a retroactive backlog.
type ResumeMsg struct {
	SubscriptionID []byte
}

var _ drip.Msg = (*ResumeMsg)(nil)

func (ResumeMsg) Path() string {
	return "subscription/resume"
}

func (m *ResumeMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *ResumeMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *ResumeMsg) Validate() error {
	return validateSubscriptionID(m.SubscriptionID)
}

// CancelMsg terminates a subscription and refunds the whole escrow
// balance to the subscriber.
type CancelMsg struct {
	SubscriptionID []byte
}

var _ drip.Msg = (*CancelMsg)(nil)

func (CancelMsg) Path() string {
	return "subscription/cancel"
}

func (m *CancelMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *CancelMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *CancelMsg) Validate() error {
	return validateSubscriptionID(m.SubscriptionID)
}

// ModifyMsg changes the subscribed amount or the cadence. Already
// executed payments are untouched, the next payment time stays as
// scheduled.
type ModifyMsg struct {
	SubscriptionID []byte
	// Amount of zero keeps the current amount. Gross, like in
	// CreateMsg.
	Amount coin.Coin
	// Cadence of zero keeps the current cadence.
	Cadence  Cadence
	Interval drip.UnixDuration
}

var _ drip.Msg = (*ModifyMsg)(nil)

func (ModifyMsg) Path() string {
	return "subscription/modify"
}

func (m *ModifyMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *ModifyMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *ModifyMsg) Validate() error {
	if err := validateSubscriptionID(m.SubscriptionID); err != nil {
		return err
	}
	if m.Amount.Amount < 0 {
		return errors.Wrap(errors.ErrAmount, "amount must not be negative")
	}
	if !m.Amount.IsZero() {
		if err := m.Amount.Validate(); err != nil {
			return errors.Wrap(err, "amount")
		}
	}
	switch m.Cadence {
	case CadenceInvalid, CadenceDaily, CadenceWeekly, CadenceMonthly:
	case CadenceCustom:
		if m.Interval < MinCustomInterval {
			return errors.Wrapf(errors.ErrInput, "custom interval below %s", MinCustomInterval)
		}
	default:
		return errors.Wrapf(errors.ErrInput, "invalid cadence %d", m.Cadence)
	}
	if m.Amount.IsZero() && m.Cadence == CadenceInvalid {
		return errors.Wrap(errors.ErrEmpty, "nothing to modify")
	}
	return nil
}

func validateSubscriptionID(id []byte) error {
	if len(id) == 0 {
		return errors.Wrap(errors.ErrEmpty, "subscription id")
	}
	if len(id) != 8 {
		return errors.Wrapf(errors.ErrInput, "subscription id must be 8 bytes, got %d", len(id))
	}
	return nil
}
