// Package subscription implements the recurring billing ledger.
//
// A subscription schedules a fixed payment from a subscriber to a
// recipient at a regular cadence. Payments are pulled from an escrow
// balance the subscriber funds separately, so a creation never moves
// money. When executions are late the backlog catches up: as many
// missed intervals are paid at once as the escrow can afford.
package subscription

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
)

// Status describes the lifecycle state of a subscription.
type Status int32

const (
	StatusInvalid Status = iota
	StatusActive
	StatusPaused
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Cadence describes how often a payment happens.
type Cadence int32

const (
	CadenceInvalid Cadence = iota
	CadenceDaily
	CadenceWeekly
	CadenceMonthly
	CadenceCustom
)

const (
	dayInterval   drip.UnixDuration = 86400
	weekInterval  drip.UnixDuration = 604800
	monthInterval drip.UnixDuration = 2592000

	// MinCustomInterval is the shortest allowed custom cadence.
	MinCustomInterval drip.UnixDuration = 3600

	maxTitleSize       = 120
	maxDescriptionSize = 1024
)

func (c Cadence) String() string {
	switch c {
	case CadenceDaily:
		return "daily"
	case CadenceWeekly:
		return "weekly"
	case CadenceMonthly:
		return "monthly"
	case CadenceCustom:
		return "custom"
	default:
		return "invalid"
	}
}

// Subscription is a recurring payment plan.
type Subscription struct {
	// Subscriber funds the escrow and controls the subscription.
	Subscriber drip.Address
	// Recipient receives every payment.
	Recipient drip.Address
	// Ticker is the currency all amounts are expressed in.
	Ticker string
	// AmountNet is what the recipient receives per interval, after
	// the platform fee was netted out of the subscribed amount.
	AmountNet int64
	// Cadence determines the payment interval.
	Cadence Cadence
	// Interval is the custom payment interval. Only used when Cadence
	// is CadenceCustom.
	Interval drip.UnixDuration
	// NextPaymentTime is when the next payment becomes due.
	NextPaymentTime drip.UnixTime
	// LastPaymentTime is when a payment was last executed.
	LastPaymentTime drip.UnixTime
	// Balance is the escrow amount available for future payments.
	Balance int64
	// PaymentCount is the number of successfully paid intervals.
	PaymentCount int64
	// TotalPaid is the total net amount ever paid to the recipient.
	TotalPaid int64
	// Status is the lifecycle state.
	Status Status

	Title       string
	Description string
}

var _ orm.Model = (*Subscription)(nil)

func (s *Subscription) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(s)
}

func (s *Subscription) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, s)
}

func (s *Subscription) Validate() error {
	if err := s.Subscriber.Validate(); err != nil {
		return errors.Wrap(err, "subscriber")
	}
	if err := s.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if s.AmountNet <= 0 {
		return errors.Wrap(errors.ErrAmount, "net amount must be positive")
	}
	if _, err := s.PaymentInterval(); err != nil {
		return err
	}
	if s.NextPaymentTime == 0 {
		return errors.Wrap(errors.ErrEmpty, "next payment time")
	}
	if s.Balance < 0 || s.PaymentCount < 0 || s.TotalPaid < 0 {
		return errors.Wrap(errors.ErrAmount, "payment accounting must not be negative")
	}
	if s.Status < StatusActive || s.Status > StatusCancelled {
		return errors.Wrapf(errors.ErrState, "invalid status %d", s.Status)
	}
	if len(s.Title) > maxTitleSize {
		return errors.Wrapf(errors.ErrInput, "title longer than %d characters", maxTitleSize)
	}
	if len(s.Description) > maxDescriptionSize {
		return errors.Wrapf(errors.ErrInput, "description longer than %d characters", maxDescriptionSize)
	}
	return nil
}

// PaymentInterval resolves the cadence into a duration in seconds.
func (s *Subscription) PaymentInterval() (drip.UnixDuration, error) {
	switch s.Cadence {
	case CadenceDaily:
		return dayInterval, nil
	case CadenceWeekly:
		return weekInterval, nil
	case CadenceMonthly:
		return monthInterval, nil
	case CadenceCustom:
		if s.Interval < MinCustomInterval {
			return 0, errors.Wrapf(errors.ErrInput, "custom interval below %s", MinCustomInterval)
		}
		return s.Interval, nil
	default:
		return 0, errors.Wrapf(errors.ErrInput, "invalid cadence %d", s.Cadence)
	}
}

// IsDue returns true if an active subscription has a payment pending.
func (s *Subscription) IsDue(now drip.UnixTime) bool {
	return s.Status == StatusActive && now >= s.NextPaymentTime
}

// Condition returns the condition the subscription's derived account
// is built from.
func Condition(id []byte) drip.Condition {
	return drip.NewCondition("subscr", "seq", id)
}

// SubscriptionAccount returns the address of the account holding this
// subscription's escrow.
func SubscriptionAccount(id []byte) drip.Address {
	return Condition(id).Address()
}

// NewBucket returns a bucket for storing subscriptions, with
// secondary indexes on the subscriber and the recipient.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket("subscr", &Subscription{},
		orm.WithIDSequence(orm.NewSequence("subscr", "id")),
		orm.WithIndex("subscriber", func(m orm.Model) ([]byte, error) {
			s, ok := m.(*Subscription)
			if !ok {
				return nil, errors.WithType(errors.ErrType, m)
			}
			return s.Subscriber, nil
		}, false),
		orm.WithIndex("recipient", func(m orm.Model) ([]byte, error) {
			s, ok := m.(*Subscription)
			if !ok {
				return nil, errors.WithType(errors.ErrType, m)
			}
			return s.Recipient, nil
		}, false),
	)
}
