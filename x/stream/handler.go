package stream

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
	"github.com/drip-pay/drip/x"
	"github.com/drip-pay/drip/x/cash"
	"github.com/drip-pay/drip/x/fee"
)

const (
	createCost   int64 = 300
	withdrawCost int64 = 150
	updateCost   int64 = 100
)

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r drip.Registry, auth x.Authenticator, control cash.Controller) {
	bucket := NewBucket()
	base := baseHandler{auth: auth, bucket: bucket, control: control}
	r.Handle(&CreateMsg{}, CreateHandler{base})
	r.Handle(&WithdrawMsg{}, WithdrawHandler{base})
	r.Handle(&PauseMsg{}, PauseHandler{base})
	r.Handle(&ResumeMsg{}, ResumeHandler{base})
	r.Handle(&CancelMsg{}, CancelHandler{base})
	r.Handle(&AddRecipientMsg{}, AddRecipientHandler{base})
	r.Handle(&RemoveRecipientMsg{}, RemoveRecipientHandler{base})
	r.Handle(&UpdateRecipientRateMsg{}, UpdateRateHandler{base})
	r.Handle(&LockRateMsg{}, LockRateHandler{base})
	r.Handle(&ExtendMsg{}, ExtendHandler{base})
}

type baseHandler struct {
	auth    x.Authenticator
	bucket  orm.ModelBucket
	control cash.Controller
}

func (h baseHandler) loadStream(db drip.ReadOnlyKVStore, id []byte) (*Stream, error) {
	var s Stream
	if err := h.bucket.One(db, id, &s); err != nil {
		return nil, errors.Wrap(err, "cannot load stream")
	}
	return &s, nil
}

// ownedStream loads the stream and ensures the source signed the
// transaction.
func (h baseHandler) ownedStream(ctx drip.Context, db drip.ReadOnlyKVStore, id []byte) (*Stream, error) {
	s, err := h.loadStream(db, id)
	if err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, s.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "only the source can do this")
	}
	return s, nil
}

// chargeDeposit collects a gross deposit from the payer: the platform
// fee goes to the fee collector, the net rest into the stream account.
// Returns the net amount. All checks happen before any coin moves, so
// a rejected deposit leaves both wallets untouched.
func (h baseHandler) chargeDeposit(db drip.KVStore, payer drip.Address, id []byte, gross coin.Coin, ticker string, obligation int64) (int64, error) {
	if gross.Ticker != ticker {
		return 0, errors.Wrapf(errors.ErrCurrency, "stream is in %s, deposit in %s", ticker, gross.Ticker)
	}
	conf, err := fee.LoadConfig(db)
	if err != nil {
		return 0, err
	}
	net, feeCoin, err := fee.Apply(gross, conf.Bps)
	if err != nil {
		return 0, err
	}
	if net.Amount < obligation {
		return 0, errors.Wrapf(ErrInsufficientDeposit, "net deposit %d below obligation %d", net.Amount, obligation)
	}
	held, err := h.control.Balance(db, payer)
	if err != nil {
		return 0, err
	}
	if held.Amount(gross.Ticker).Amount < gross.Amount {
		return 0, errors.Wrapf(cash.ErrInsufficientFunds, "deposit of %d", gross.Amount)
	}
	if feeCoin.IsPositive() {
		if err := h.control.MoveCoins(db, payer, conf.Recipient, feeCoin); err != nil {
			return 0, errors.Wrap(err, "cannot collect fee")
		}
	}
	if net.IsPositive() {
		if err := h.control.MoveCoins(db, payer, StreamAccount(id), net); err != nil {
			return 0, errors.Wrap(err, "cannot fund stream account")
		}
	}
	return net.Amount, nil
}

func blockNow(ctx drip.Context) (drip.UnixTime, error) {
	t, err := drip.BlockTime(ctx)
	if err != nil {
		return 0, err
	}
	return drip.AsUnixTime(t), nil
}

// CreateHandler opens new streams.
type CreateHandler struct {
	baseHandler
}

var _ drip.Handler = CreateHandler{}

func (h CreateHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: createCost}, nil
}

func (h CreateHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, now, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}

	start := msg.StartTime
	if start == 0 {
		start = now
	}
	if start < now {
		return nil, errors.Wrap(errors.ErrInput, "start time in the past")
	}
	if msg.EndTime < start.Add(MinDuration.Duration()) {
		return nil, errors.Wrapf(errors.ErrInput, "streaming period shorter than %s", MinDuration)
	}

	recipients := make([]*RecipientAllocation, 0, len(msg.Recipients))
	var obligation int64
	for _, r := range msg.Recipients {
		// The per-period amount converts to a per-second rate with
		// floor division. An amount below one unit per second is
		// rejected, never silently rounded to zero.
		rate := r.AmountPerPeriod / int64(msg.PeriodSeconds)
		if rate == 0 {
			return nil, errors.Wrapf(errors.ErrAmount, "amount %d over %s truncates to a zero rate", r.AmountPerPeriod, msg.PeriodSeconds)
		}
		recipients = append(recipients, &RecipientAllocation{
			Recipient:     r.Recipient,
			RatePerSecond: rate,
			BaseTime:      start,
		})
		if obligation, err = mulAdd(obligation, rate, int64(msg.EndTime-start)); err != nil {
			return nil, err
		}
	}

	s := &Stream{
		Source:      msg.Source,
		Ticker:      msg.Deposit.Ticker,
		Recipients:  recipients,
		StartTime:   start,
		EndTime:     msg.EndTime,
		Status:      StatusActive,
		Title:       msg.Title,
		Description: msg.Description,
	}
	// The ID is reserved before any coin moves because the escrow
	// account address is derived from it. The record itself is stored
	// only once the deposit went through.
	id, err := newStreamID(db)
	if err != nil {
		return nil, errors.Wrap(err, "cannot allocate stream id")
	}
	net, err := h.chargeDeposit(db, msg.Source, id, msg.Deposit, s.Ticker, obligation)
	if err != nil {
		return nil, err
	}
	s.DepositNet = net
	if _, err := h.bucket.Put(db, id, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{Data: id}, nil
}

func (h CreateHandler) validate(ctx drip.Context, tx drip.Tx) (*CreateMsg, drip.UnixTime, error) {
	var msg CreateMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, 0, err
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, 0, errors.Wrap(errors.ErrUnauthorized, "source must sign the stream creation")
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, 0, err
	}
	return &msg, now, nil
}

// WithdrawHandler pays out accrued funds to a recipient.
type WithdrawHandler struct {
	baseHandler
}

var _ drip.Handler = WithdrawHandler{}

func (h WithdrawHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: withdrawCost}, nil
}

func (h WithdrawHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, alloc, now, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	withdrawable, err := s.Withdrawable(alloc, now)
	if err != nil {
		return nil, err
	}
	amount := msg.Amount
	if amount == 0 {
		amount = withdrawable
	}
	if amount <= 0 || amount > withdrawable {
		return nil, errors.Wrapf(ErrInsufficientAccrued, "withdrawable %d, requested %d", withdrawable, amount)
	}

	alloc.TotalWithdrawn += amount
	if err := h.control.MoveCoins(db, StreamAccount(msg.StreamID), alloc.Recipient, coin.NewCoin(amount, s.Ticker)); err != nil {
		return nil, errors.Wrap(err, "cannot pay out")
	}

	if err := h.maybeComplete(s, now); err != nil {
		return nil, err
	}
	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

// maybeComplete flips the stream to Completed once the streaming
// period is over and every earned balance was paid out.
func (h WithdrawHandler) maybeComplete(s *Stream, now drip.UnixTime) error {
	if s.Status != StatusActive && s.Status != StatusPaused {
		return nil
	}
	if s.freezeTime(now) < s.EndTime {
		return nil
	}
	outstanding, err := s.Outstanding(now)
	if err != nil {
		return err
	}
	if outstanding == 0 {
		s.Status = StatusCompleted
	}
	return nil
}

func (h WithdrawHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*WithdrawMsg, *Stream, *RecipientAllocation, drip.UnixTime, error) {
	var msg WithdrawMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, 0, err
	}
	s, err := h.loadStream(db, msg.StreamID)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	if s.Status == StatusCompleted || s.Status == StatusInvalid {
		return nil, nil, nil, 0, errors.Wrapf(ErrNotActive, "stream is %s", s.Status)
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	for _, alloc := range s.Recipients {
		if h.auth.HasAddress(ctx, alloc.Recipient) {
			return &msg, s, alloc, now, nil
		}
	}
	return nil, nil, nil, 0, errors.Wrap(errors.ErrUnauthorized, "signer is not a stream recipient")
}

// PauseHandler suspends accrual.
type PauseHandler struct {
	baseHandler
}

var _ drip.Handler = PauseHandler{}

func (h PauseHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h PauseHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, now, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	s.Status = StatusPaused
	s.PausedAt = now
	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

func (h PauseHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*PauseMsg, *Stream, drip.UnixTime, error) {
	var msg PauseMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, err
	}
	s, err := h.ownedStream(ctx, db, msg.StreamID)
	if err != nil {
		return nil, nil, 0, err
	}
	if s.Status != StatusActive {
		return nil, nil, 0, errors.Wrapf(ErrNotActive, "stream is %s", s.Status)
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	return &msg, s, now, nil
}

// ResumeHandler restarts a paused stream, shifting the schedule by
// the paused duration.
type ResumeHandler struct {
	baseHandler
}

var _ drip.Handler = ResumeHandler{}

func (h ResumeHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h ResumeHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, now, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	paused := now - s.PausedAt
	s.EndTime += paused
	for _, alloc := range s.Recipients {
		alloc.BaseTime += paused
	}
	s.Status = StatusActive
	s.PausedAt = 0

	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

func (h ResumeHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*ResumeMsg, *Stream, drip.UnixTime, error) {
	var msg ResumeMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, err
	}
	s, err := h.ownedStream(ctx, db, msg.StreamID)
	if err != nil {
		return nil, nil, 0, err
	}
	if s.Status != StatusPaused {
		return nil, nil, 0, errors.Wrapf(ErrNotActive, "stream is %s", s.Status)
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	return &msg, s, now, nil
}

// CancelHandler terminates a stream, freezing accrual and refunding
// the unearned deposit to the source.
type CancelHandler struct {
	baseHandler
}

var _ drip.Handler = CancelHandler{}

func (h CancelHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h CancelHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, now, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	if s.Status == StatusActive {
		s.PausedAt = now
	}
	s.Status = StatusCancelled

	outstanding, err := s.Outstanding(now)
	if err != nil {
		return nil, err
	}
	escrow, err := s.EscrowBalance()
	if err != nil {
		return nil, err
	}
	refund := escrow - outstanding
	if refund > 0 {
		if err := h.control.MoveCoins(db, StreamAccount(msg.StreamID), s.Source, coin.NewCoin(refund, s.Ticker)); err != nil {
			return nil, errors.Wrap(err, "cannot refund")
		}
		s.Refunded += refund
	}

	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

func (h CancelHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*CancelMsg, *Stream, drip.UnixTime, error) {
	var msg CancelMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, err
	}
	s, err := h.ownedStream(ctx, db, msg.StreamID)
	if err != nil {
		return nil, nil, 0, err
	}
	if s.Status != StatusActive && s.Status != StatusPaused {
		return nil, nil, 0, errors.Wrapf(ErrNotActive, "stream is %s", s.Status)
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	return &msg, s, now, nil
}

// AddRecipientHandler adds a recipient to a running stream.
type AddRecipientHandler struct {
	baseHandler
}

var _ drip.Handler = AddRecipientHandler{}

func (h AddRecipientHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h AddRecipientHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, now, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	obligation, err := mulAdd(0, msg.RatePerSecond, int64(s.EndTime-now))
	if err != nil {
		return nil, err
	}
	net, err := h.chargeDeposit(db, s.Source, msg.StreamID, msg.Deposit, s.Ticker, obligation)
	if err != nil {
		return nil, err
	}
	s.DepositNet += net
	s.Recipients = append(s.Recipients, &RecipientAllocation{
		Recipient:     msg.Recipient,
		RatePerSecond: msg.RatePerSecond,
		BaseTime:      now,
	})

	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

func (h AddRecipientHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*AddRecipientMsg, *Stream, drip.UnixTime, error) {
	var msg AddRecipientMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, err
	}
	s, now, err := h.structuralChange(ctx, db, msg.StreamID)
	if err != nil {
		return nil, nil, 0, err
	}
	if msg.Recipient.Equals(s.Source) {
		return nil, nil, 0, errors.Wrap(errors.ErrInput, "source cannot be a recipient")
	}
	if _, err := s.Allocation(msg.Recipient); err == nil {
		return nil, nil, 0, errors.Wrapf(errors.ErrDuplicate, "recipient %s", msg.Recipient)
	}
	return &msg, s, now, nil
}

// structuralChange loads the stream and runs the checks shared by all
// operations that modify rates or recipients: source authorization,
// active status, no rate lock, streaming period not over.
func (h baseHandler) structuralChange(ctx drip.Context, db drip.ReadOnlyKVStore, id []byte) (*Stream, drip.UnixTime, error) {
	s, err := h.ownedStream(ctx, db, id)
	if err != nil {
		return nil, 0, err
	}
	if s.Status != StatusActive {
		return nil, 0, errors.Wrapf(ErrNotActive, "stream is %s", s.Status)
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, 0, err
	}
	if s.RateLockUntil > now {
		return nil, 0, errors.Wrapf(ErrRateLocked, "until %s", s.RateLockUntil)
	}
	if now >= s.EndTime {
		return nil, 0, errors.Wrap(errors.ErrExpired, "streaming period is over")
	}
	return s, now, nil
}

// RemoveRecipientHandler stops a recipient's accrual, keeping the
// earned balance claimable and refunding the unearned rest.
type RemoveRecipientHandler struct {
	baseHandler
}

var _ drip.Handler = RemoveRecipientHandler{}

func (h RemoveRecipientHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h RemoveRecipientHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, alloc, now, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	unearned, err := mulAdd(0, alloc.RatePerSecond, int64(s.EndTime-now))
	if err != nil {
		return nil, err
	}
	if err := s.foldAccrual(alloc, now); err != nil {
		return nil, err
	}
	alloc.RatePerSecond = 0
	if unearned > 0 {
		if err := h.control.MoveCoins(db, StreamAccount(msg.StreamID), s.Source, coin.NewCoin(unearned, s.Ticker)); err != nil {
			return nil, errors.Wrap(err, "cannot refund")
		}
		s.Refunded += unearned
	}

	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

func (h RemoveRecipientHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*RemoveRecipientMsg, *Stream, *RecipientAllocation, drip.UnixTime, error) {
	var msg RemoveRecipientMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, 0, err
	}
	s, now, err := h.structuralChange(ctx, db, msg.StreamID)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	alloc, err := s.Allocation(msg.Recipient)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	if alloc.RatePerSecond == 0 {
		return nil, nil, nil, 0, errors.Wrap(errors.ErrState, "recipient already removed")
	}
	return &msg, s, alloc, now, nil
}

// UpdateRateHandler changes a recipient rate for the remaining
// streaming time.
type UpdateRateHandler struct {
	baseHandler
}

var _ drip.Handler = UpdateRateHandler{}

func (h UpdateRateHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h UpdateRateHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, alloc, now, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	remaining := int64(s.EndTime - now)
	delta, err := mulAdd(0, msg.RatePerSecond-alloc.RatePerSecond, remaining)
	if err != nil {
		return nil, err
	}
	if err := s.foldAccrual(alloc, now); err != nil {
		return nil, err
	}
	alloc.RatePerSecond = msg.RatePerSecond

	switch {
	case delta > 0:
		if msg.Deposit.IsZero() {
			return nil, errors.Wrapf(ErrInsufficientDeposit, "rate increase needs %d", delta)
		}
		net, err := h.chargeDeposit(db, s.Source, msg.StreamID, msg.Deposit, s.Ticker, delta)
		if err != nil {
			return nil, err
		}
		s.DepositNet += net
	case delta < 0:
		if err := h.control.MoveCoins(db, StreamAccount(msg.StreamID), s.Source, coin.NewCoin(-delta, s.Ticker)); err != nil {
			return nil, errors.Wrap(err, "cannot refund")
		}
		s.Refunded += -delta
	}

	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

func (h UpdateRateHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*UpdateRecipientRateMsg, *Stream, *RecipientAllocation, drip.UnixTime, error) {
	var msg UpdateRecipientRateMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, 0, err
	}
	s, now, err := h.structuralChange(ctx, db, msg.StreamID)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	alloc, err := s.Allocation(msg.Recipient)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	if alloc.RatePerSecond == 0 {
		return nil, nil, nil, 0, errors.Wrap(errors.ErrState, "recipient was removed")
	}
	return &msg, s, alloc, now, nil
}

// LockRateHandler commits the source to the current rates until a
// given time.
type LockRateHandler struct {
	baseHandler
}

var _ drip.Handler = LockRateHandler{}

func (h LockRateHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h LockRateHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	// A lock never shortens: a request ending before the current lock
	// is a no-op.
	if msg.LockUntil > s.RateLockUntil {
		s.RateLockUntil = msg.LockUntil
	}
	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

func (h LockRateHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*LockRateMsg, *Stream, error) {
	var msg LockRateMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	s, err := h.ownedStream(ctx, db, msg.StreamID)
	if err != nil {
		return nil, nil, err
	}
	if s.Status != StatusActive {
		return nil, nil, errors.Wrapf(ErrNotActive, "stream is %s", s.Status)
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, err
	}
	if msg.LockUntil <= now {
		return nil, nil, errors.Wrap(errors.ErrInput, "lock must end in the future")
	}
	return &msg, s, nil
}

// ExtendHandler pushes the end time further out or tops up the
// deposit.
type ExtendHandler struct {
	baseHandler
}

var _ drip.Handler = ExtendHandler{}

func (h ExtendHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h ExtendHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	var obligation int64
	if msg.NewEndTime != 0 {
		totalRate, err := s.TotalRate()
		if err != nil {
			return nil, err
		}
		if obligation, err = mulAdd(0, totalRate, int64(msg.NewEndTime-s.EndTime)); err != nil {
			return nil, err
		}
	}
	net, err := h.chargeDeposit(db, s.Source, msg.StreamID, msg.Deposit, s.Ticker, obligation)
	if err != nil {
		return nil, err
	}
	s.DepositNet += net
	if msg.NewEndTime != 0 {
		s.EndTime = msg.NewEndTime
	}

	if _, err := h.bucket.Put(db, msg.StreamID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store stream")
	}
	return &drip.DeliverResult{}, nil
}

func (h ExtendHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*ExtendMsg, *Stream, drip.UnixTime, error) {
	var msg ExtendMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, err
	}
	s, now, err := h.structuralChange(ctx, db, msg.StreamID)
	if err != nil {
		return nil, nil, 0, err
	}
	if msg.NewEndTime != 0 && msg.NewEndTime <= s.EndTime {
		return nil, nil, 0, errors.Wrap(errors.ErrInput, "new end time must be after the current one")
	}
	return &msg, s, now, nil
}
