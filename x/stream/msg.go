package stream

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
)

// RecipientAmount pairs a recipient address with the amount it should
// receive per accounting period. Used in messages only, the persisted
// state is RecipientAllocation with the derived per-second rate.
type RecipientAmount struct {
	Recipient       drip.Address
	AmountPerPeriod int64
}

// CreateMsg opens a new stream. Every per-period amount is converted
// to a per-second rate with floor division; an amount too small for
// one unit per second is rejected rather than silently rounded. The
// deposit is charged the platform fee and the remaining net amount
// must fund every recipient rate for the whole streaming period.
type CreateMsg struct {
	Source     drip.Address
	Recipients []RecipientAmount
	// PeriodSeconds is the accounting period all the recipient
	// amounts are expressed over.
	PeriodSeconds drip.UnixDuration
	// Deposit is the gross amount, fee included.
	Deposit coin.Coin
	// StartTime of zero means the stream starts immediately.
	StartTime   drip.UnixTime
	EndTime     drip.UnixTime
	Title       string
	Description string
}

var _ drip.Msg = (*CreateMsg)(nil)

func (CreateMsg) Path() string {
	return "stream/create"
}

func (m *CreateMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *CreateMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *CreateMsg) Validate() error {
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if len(m.Recipients) == 0 {
		return errors.Wrap(errors.ErrEmpty, "recipients")
	}
	if m.PeriodSeconds <= 0 {
		return errors.Wrap(errors.ErrInput, "period must be positive")
	}
	for _, r := range m.Recipients {
		if err := r.Recipient.Validate(); err != nil {
			return errors.Wrap(err, "recipient")
		}
		if r.Recipient.Equals(m.Source) {
			return errors.Wrap(errors.ErrInput, "source cannot be a recipient")
		}
		if r.AmountPerPeriod <= 0 {
			return errors.Wrap(errors.ErrAmount, "amount per period must be positive")
		}
	}
	if err := m.Deposit.Validate(); err != nil {
		return errors.Wrap(err, "deposit")
	}
	if !m.Deposit.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "deposit must be positive")
	}
	if m.EndTime == 0 {
		return errors.Wrap(errors.ErrEmpty, "end time")
	}
	if len(m.Title) > maxTitleSize {
		return errors.Wrapf(errors.ErrInput, "title longer than %d characters", maxTitleSize)
	}
	if len(m.Description) > maxDescriptionSize {
		return errors.Wrapf(errors.ErrInput, "description longer than %d characters", maxDescriptionSize)
	}
	return nil
}

// WithdrawMsg claims accrued funds. The signer must be one of the
// stream recipients.
type WithdrawMsg struct {
	StreamID []byte
	// Amount of zero withdraws everything accrued.
	Amount int64
}

var _ drip.Msg = (*WithdrawMsg)(nil)

func (WithdrawMsg) Path() string {
	return "stream/withdraw"
}

func (m *WithdrawMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *WithdrawMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *WithdrawMsg) Validate() error {
	if err := validateStreamID(m.StreamID); err != nil {
		return err
	}
	if m.Amount < 0 {
		return errors.Wrap(errors.ErrAmount, "amount must not be negative")
	}
	return nil
}

// PauseMsg suspends accrual on an active stream.
type PauseMsg struct {
	StreamID []byte
}

var _ drip.Msg = (*PauseMsg)(nil)

func (PauseMsg) Path() string {
	return "stream/pause"
}

func (m *PauseMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *PauseMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *PauseMsg) Validate() error {
	return validateStreamID(m.StreamID)
}

// ResumeMsg restarts a paused stream. The end time shifts by the
// paused duration so no streaming time is lost.
type ResumeMsg struct {
	StreamID []byte
}

var _ drip.Msg = (*ResumeMsg)(nil)

func (ResumeMsg) Path() string {
	return "stream/resume"
}

func (m *ResumeMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *ResumeMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *ResumeMsg) Validate() error {
	return validateStreamID(m.StreamID)
}

// CancelMsg terminates a stream. Accrual freezes, the unearned rest
// of the deposit returns to the source and recipients keep the right
// to withdraw what they earned.
type CancelMsg struct {
	StreamID []byte
}

var _ drip.Msg = (*CancelMsg)(nil)

func (CancelMsg) Path() string {
	return "stream/cancel"
}

func (m *CancelMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *CancelMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *CancelMsg) Validate() error {
	return validateStreamID(m.StreamID)
}

// AddRecipientMsg adds a recipient to a running stream. The deposit
// is charged the platform fee and the net remainder must cover the
// new rate for the remaining streaming time.
type AddRecipientMsg struct {
	StreamID      []byte
	Recipient     drip.Address
	RatePerSecond int64
	Deposit       coin.Coin
}

var _ drip.Msg = (*AddRecipientMsg)(nil)

func (AddRecipientMsg) Path() string {
	return "stream/add_recipient"
}

func (m *AddRecipientMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *AddRecipientMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *AddRecipientMsg) Validate() error {
	if err := validateStreamID(m.StreamID); err != nil {
		return err
	}
	if err := m.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if m.RatePerSecond <= 0 {
		return errors.Wrap(errors.ErrAmount, "rate must be positive")
	}
	if err := m.Deposit.Validate(); err != nil {
		return errors.Wrap(err, "deposit")
	}
	if !m.Deposit.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "deposit must be positive")
	}
	return nil
}

// RemoveRecipientMsg stops a recipient's accrual. The earned balance
// stays claimable, the unearned remainder returns to the source.
type RemoveRecipientMsg struct {
	StreamID  []byte
	Recipient drip.Address
}

var _ drip.Msg = (*RemoveRecipientMsg)(nil)

func (RemoveRecipientMsg) Path() string {
	return "stream/remove_recipient"
}

func (m *RemoveRecipientMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *RemoveRecipientMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *RemoveRecipientMsg) Validate() error {
	if err := validateStreamID(m.StreamID); err != nil {
		return err
	}
	return errors.Wrap(m.Recipient.Validate(), "recipient")
}

// UpdateRecipientRateMsg changes a recipient rate for the remaining
// streaming time. A rate increase must be funded with a deposit, a
// decrease refunds the freed amount to the source.
type UpdateRecipientRateMsg struct {
	StreamID      []byte
	Recipient     drip.Address
	RatePerSecond int64
	// Deposit funds a rate increase. May be left empty for decreases.
	Deposit coin.Coin
}

var _ drip.Msg = (*UpdateRecipientRateMsg)(nil)

func (UpdateRecipientRateMsg) Path() string {
	return "stream/update_rate"
}

func (m *UpdateRecipientRateMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *UpdateRecipientRateMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *UpdateRecipientRateMsg) Validate() error {
	if err := validateStreamID(m.StreamID); err != nil {
		return err
	}
	if err := m.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if m.RatePerSecond <= 0 {
		return errors.Wrap(errors.ErrAmount, "rate must be positive")
	}
	if m.Deposit.Amount < 0 {
		return errors.Wrap(errors.ErrAmount, "deposit must not be negative")
	}
	if !m.Deposit.IsZero() {
		if err := m.Deposit.Validate(); err != nil {
			return errors.Wrap(err, "deposit")
		}
	}
	return nil
}

// LockRateMsg guarantees recipients that no structural change will
// happen before the given time. Withdrawals, pausing, resuming and
// cancellation stay possible while locked.
type LockRateMsg struct {
	StreamID  []byte
	LockUntil drip.UnixTime
}

var _ drip.Msg = (*LockRateMsg)(nil)

func (LockRateMsg) Path() string {
	return "stream/lock_rate"
}

func (m *LockRateMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *LockRateMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *LockRateMsg) Validate() error {
	if err := validateStreamID(m.StreamID); err != nil {
		return err
	}
	if m.LockUntil == 0 {
		return errors.Wrap(errors.ErrEmpty, "lock until")
	}
	return nil
}

// ExtendMsg pushes the end time further out, funded at the combined
// rate for the added duration. A zero NewEndTime keeps the schedule
// and only tops up the deposit.
type ExtendMsg struct {
	StreamID   []byte
	NewEndTime drip.UnixTime
	Deposit    coin.Coin
}

var _ drip.Msg = (*ExtendMsg)(nil)

func (ExtendMsg) Path() string {
	return "stream/extend"
}

func (m *ExtendMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *ExtendMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *ExtendMsg) Validate() error {
	if err := validateStreamID(m.StreamID); err != nil {
		return err
	}
	if err := m.Deposit.Validate(); err != nil {
		return errors.Wrap(err, "deposit")
	}
	if !m.Deposit.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "deposit must be positive")
	}
	return nil
}

func validateStreamID(id []byte) error {
	if len(id) == 0 {
		return errors.Wrap(errors.ErrEmpty, "stream id")
	}
	if len(id) != 8 {
		return errors.Wrapf(errors.ErrInput, "stream id must be 8 bytes, got %d", len(id))
	}
	return nil
}
