// Package stream implements the continuous payout ledger.
//
// A stream locks a deposit in a derived account and lets every
// recipient accrue a share of it at a per-second rate, from the start
// time until the end time. Withdrawals, pauses and structural changes
// (recipients added, removed, rate updates, extensions) all preserve
// already earned balances: accrual history is folded into a base
// amount whenever the rate changes, so past earnings are never
// recomputed.
package stream

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
)

// Status describes the lifecycle state of a stream.
type Status int32

const (
	StatusInvalid Status = iota
	StatusActive
	StatusPaused
	StatusCancelled
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusCancelled:
		return "cancelled"
	case StatusCompleted:
		return "completed"
	default:
		return "invalid"
	}
}

const (
	// MinDuration is the shortest allowed streaming period.
	MinDuration drip.UnixDuration = 3600

	maxTitleSize       = 120
	maxDescriptionSize = 1024
)

// RecipientAllocation is the accrual state of a single recipient
// within a stream.
type RecipientAllocation struct {
	// Recipient is the account earning this allocation.
	Recipient drip.Address
	// RatePerSecond is the net amount earned every second. Zero for a
	// removed recipient whose earned balance is still claimable.
	RatePerSecond int64
	// BaseTime is the moment accrual at the current rate began.
	BaseTime drip.UnixTime
	// AccruedBase is the gross amount earned before BaseTime, under
	// previous rates.
	AccruedBase int64
	// TotalWithdrawn is the gross amount already paid out.
	TotalWithdrawn int64
}

// Stream is a continuous payout from one source to many recipients.
type Stream struct {
	// Source is the account that funded the stream and controls it.
	Source drip.Address
	// Ticker is the currency all amounts are expressed in.
	Ticker string
	// Recipients are the accrual states, one per recipient address.
	Recipients []*RecipientAllocation
	// DepositNet is the total net amount ever deposited, after fees.
	DepositNet int64
	// Refunded is the total amount returned to the source.
	Refunded int64
	// StartTime is when accrual begins.
	StartTime drip.UnixTime
	// EndTime is when accrual stops. Shifted on resume and extension.
	EndTime drip.UnixTime
	// Status is the lifecycle state.
	Status Status
	// PausedAt freezes accrual while the stream is paused or
	// cancelled.
	PausedAt drip.UnixTime
	// RateLockUntil forbids structural changes until this time. Zero
	// means unlocked.
	RateLockUntil drip.UnixTime

	Title       string
	Description string
}

var _ orm.Model = (*Stream)(nil)

func (s *Stream) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(s)
}

func (s *Stream) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, s)
}

func (s *Stream) Validate() error {
	if err := s.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if len(s.Recipients) == 0 {
		return errors.Wrap(errors.ErrEmpty, "recipients")
	}
	seen := make(map[string]struct{}, len(s.Recipients))
	for _, r := range s.Recipients {
		if err := r.Recipient.Validate(); err != nil {
			return errors.Wrap(err, "recipient")
		}
		if r.RatePerSecond < 0 {
			return errors.Wrap(errors.ErrAmount, "rate must not be negative")
		}
		if _, ok := seen[string(r.Recipient)]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "recipient %s", r.Recipient)
		}
		seen[string(r.Recipient)] = struct{}{}
	}
	if s.DepositNet < 0 || s.Refunded < 0 {
		return errors.Wrap(errors.ErrAmount, "deposit accounting must not be negative")
	}
	if s.EndTime <= s.StartTime {
		return errors.Wrap(errors.ErrInput, "end time must be after start time")
	}
	if s.Status < StatusActive || s.Status > StatusCompleted {
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

// freezeTime returns the moment up to which accrual counts. For a
// paused or cancelled stream this is the freeze point, otherwise the
// given current time.
func (s *Stream) freezeTime(now drip.UnixTime) drip.UnixTime {
	if s.Status == StatusPaused || s.Status == StatusCancelled {
		return s.PausedAt
	}
	return now
}

// Allocation returns the accrual state of the given recipient or
// ErrNotFound.
func (s *Stream) Allocation(recipient drip.Address) (*RecipientAllocation, error) {
	for _, r := range s.Recipients {
		if r.Recipient.Equals(recipient) {
			return r, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "no allocation for %s", recipient)
}

// EarnedGross returns the total amount the allocation has earned up to
// now, withdrawn or not.
func (s *Stream) EarnedGross(a *RecipientAllocation, now drip.UnixTime) (int64, error) {
	until := s.freezeTime(now)
	if until > s.EndTime {
		until = s.EndTime
	}
	if until < a.BaseTime {
		until = a.BaseTime
	}
	earned, err := mulAdd(a.AccruedBase, a.RatePerSecond, int64(until-a.BaseTime))
	if err != nil {
		return 0, errors.Wrap(err, "accrual")
	}
	return earned, nil
}

// Withdrawable returns the amount the allocation can withdraw now.
func (s *Stream) Withdrawable(a *RecipientAllocation, now drip.UnixTime) (int64, error) {
	earned, err := s.EarnedGross(a, now)
	if err != nil {
		return 0, err
	}
	return earned - a.TotalWithdrawn, nil
}

// Outstanding returns the sum of all withdrawable balances.
func (s *Stream) Outstanding(now drip.UnixTime) (int64, error) {
	var total int64
	for _, a := range s.Recipients {
		w, err := s.Withdrawable(a, now)
		if err != nil {
			return 0, err
		}
		if total, err = add(total, w); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// TotalRate returns the combined per-second rate of all recipients.
func (s *Stream) TotalRate() (int64, error) {
	var total int64
	var err error
	for _, a := range s.Recipients {
		if total, err = add(total, a.RatePerSecond); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// EscrowBalance returns the amount that must currently sit in the
// stream's derived account.
func (s *Stream) EscrowBalance() (int64, error) {
	balance := s.DepositNet - s.Refunded
	for _, a := range s.Recipients {
		var err error
		if balance, err = add(balance, -a.TotalWithdrawn); err != nil {
			return 0, err
		}
	}
	return balance, nil
}

// foldAccrual absorbs everything earned until now into AccruedBase so
// the rate can change without touching history.
func (s *Stream) foldAccrual(a *RecipientAllocation, now drip.UnixTime) error {
	earned, err := s.EarnedGross(a, now)
	if err != nil {
		return err
	}
	a.AccruedBase = earned
	a.BaseTime = now
	if a.BaseTime > s.EndTime {
		a.BaseTime = s.EndTime
	}
	return nil
}

// Condition returns the condition the stream's derived account is
// built from.
func Condition(id []byte) drip.Condition {
	return drip.NewCondition("stream", "seq", id)
}

// StreamAccount returns the address of the account holding this
// stream's deposit.
func StreamAccount(id []byte) drip.Address {
	return Condition(id).Address()
}

// newStreamID reserves the next stream identifier. It draws from the
// same sequence the bucket uses for nil-key inserts.
func newStreamID(db drip.KVStore) ([]byte, error) {
	return orm.NewSequence("stream", "id").NextVal(db)
}

// NewBucket returns a bucket for storing streams, with secondary
// indexes on the source and on every recipient address.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket("stream", &Stream{},
		orm.WithIDSequence(orm.NewSequence("stream", "id")),
		orm.WithIndex("source", func(m orm.Model) ([]byte, error) {
			s, ok := m.(*Stream)
			if !ok {
				return nil, errors.WithType(errors.ErrType, m)
			}
			return s.Source, nil
		}, false),
		orm.WithMultiKeyIndex("recipient", func(m orm.Model) ([][]byte, error) {
			s, ok := m.(*Stream)
			if !ok {
				return nil, errors.WithType(errors.ErrType, m)
			}
			keys := make([][]byte, 0, len(s.Recipients))
			for _, r := range s.Recipients {
				keys = append(keys, r.Recipient)
			}
			return keys, nil
		}, false),
	)
}

func add(a, b int64) (int64, error) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d + %d", a, b)
	}
	return c, nil
}

// mulAdd returns base + rate*duration with overflow checks.
func mulAdd(base, rate, duration int64) (int64, error) {
	if rate != 0 && duration != 0 {
		p := rate * duration
		if p/duration != rate {
			return 0, errors.Wrapf(errors.ErrOverflow, "%d * %d", rate, duration)
		}
		return add(base, p)
	}
	return base, nil
}
