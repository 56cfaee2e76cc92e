package subscription

import (
	"fmt"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
	"github.com/drip-pay/drip/x"
	"github.com/drip-pay/drip/x/cash"
	"github.com/drip-pay/drip/x/fee"
)

const (
	createCost  int64 = 300
	executeCost int64 = 150
	updateCost  int64 = 100
)

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r drip.Registry, auth x.Authenticator, control cash.Controller) {
	bucket := NewBucket()
	history := NewHistoryBucket()
	base := baseHandler{auth: auth, bucket: bucket, history: history, control: control}
	r.Handle(&CreateMsg{}, CreateHandler{base})
	r.Handle(&DepositMsg{}, DepositHandler{base})
	r.Handle(&ExecutePaymentMsg{}, ExecutePaymentHandler{base})
	r.Handle(&ExecuteBatchMsg{}, ExecuteBatchHandler{base})
	r.Handle(&PauseMsg{}, PauseHandler{base})
	r.Handle(&ResumeMsg{}, ResumeHandler{base})
	r.Handle(&CancelMsg{}, CancelHandler{base})
	r.Handle(&ModifyMsg{}, ModifyHandler{base})
}

type baseHandler struct {
	auth    x.Authenticator
	bucket  orm.ModelBucket
	history orm.ModelBucket
	control cash.Controller
}

func (h baseHandler) loadSubscription(db drip.ReadOnlyKVStore, id []byte) (*Subscription, error) {
	var s Subscription
	if err := h.bucket.One(db, id, &s); err != nil {
		return nil, errors.Wrap(err, "cannot load subscription")
	}
	return &s, nil
}

// ownedSubscription loads the subscription and ensures the subscriber
// signed the transaction.
func (h baseHandler) ownedSubscription(ctx drip.Context, db drip.ReadOnlyKVStore, id []byte) (*Subscription, error) {
	s, err := h.loadSubscription(db, id)
	if err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, s.Subscriber) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "only the subscriber can do this")
	}
	return s, nil
}

// netAmount applies the platform fee to a gross subscription amount
// and enforces the configured minimum.
func netAmount(db drip.ReadOnlyKVStore, gross coin.Coin) (int64, error) {
	conf, err := fee.LoadConfig(db)
	if err != nil {
		return 0, err
	}
	if gross.Amount < conf.MinimumAmount {
		return 0, errors.Wrapf(errors.ErrAmount, "amount below the configured minimum of %d", conf.MinimumAmount)
	}
	net, _, err := fee.Apply(gross, conf.Bps)
	if err != nil {
		return 0, err
	}
	if !net.IsPositive() {
		return 0, errors.Wrap(errors.ErrAmount, "amount too small, the fee leaves nothing to pay")
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

// CreateHandler opens new subscriptions. The escrow starts empty.
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
	net, err := netAmount(db, msg.Amount)
	if err != nil {
		return nil, err
	}

	s := &Subscription{
		Subscriber:  msg.Subscriber,
		Recipient:   msg.Recipient,
		Ticker:      msg.Amount.Ticker,
		AmountNet:   net,
		Cadence:     msg.Cadence,
		Interval:    msg.Interval,
		Status:      StatusActive,
		Title:       msg.Title,
		Description: msg.Description,
	}
	interval, err := s.PaymentInterval()
	if err != nil {
		return nil, err
	}
	if msg.FirstPaymentTime != 0 {
		if msg.FirstPaymentTime < now {
			return nil, errors.Wrap(errors.ErrInput, "first payment time in the past")
		}
		s.NextPaymentTime = msg.FirstPaymentTime
	} else {
		s.NextPaymentTime = now.Add(interval.Duration())
	}

	id, err := h.bucket.Put(db, nil, s)
	if err != nil {
		return nil, errors.Wrap(err, "cannot store subscription")
	}
	return &drip.DeliverResult{Data: id}, nil
}

func (h CreateHandler) validate(ctx drip.Context, tx drip.Tx) (*CreateMsg, drip.UnixTime, error) {
	var msg CreateMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, 0, err
	}
	if !h.auth.HasAddress(ctx, msg.Subscriber) {
		return nil, 0, errors.Wrap(errors.ErrUnauthorized, "subscriber must sign the creation")
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, 0, err
	}
	return &msg, now, nil
}

// DepositHandler adds funds to the escrow.
type DepositHandler struct {
	baseHandler
}

var _ drip.Handler = DepositHandler{}

func (h DepositHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h DepositHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.control.MoveCoins(db, s.Subscriber, SubscriptionAccount(msg.SubscriptionID), msg.Amount); err != nil {
		return nil, errors.Wrap(err, "cannot fund escrow")
	}
	s.Balance += msg.Amount.Amount
	if _, err := h.bucket.Put(db, msg.SubscriptionID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store subscription")
	}
	return &drip.DeliverResult{}, nil
}

func (h DepositHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*DepositMsg, *Subscription, error) {
	var msg DepositMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	s, err := h.ownedSubscription(ctx, db, msg.SubscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if s.Status == StatusCancelled {
		return nil, nil, errors.Wrap(errors.ErrState, "subscription is cancelled")
	}
	if msg.Amount.Ticker != s.Ticker {
		return nil, nil, errors.Wrapf(errors.ErrCurrency, "subscription is in %s, deposit in %s", s.Ticker, msg.Amount.Ticker)
	}
	return &msg, s, nil
}

// ExecutePaymentHandler settles all due intervals of one
// subscription. No authorization: executing a due payment is a
// keeper-style operation open to anyone.
type ExecutePaymentHandler struct {
	baseHandler
}

var _ drip.Handler = ExecutePaymentHandler{}

func (h ExecutePaymentHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	var msg ExecutePaymentMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: executeCost}, nil
}

func (h ExecutePaymentHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	var msg ExecutePaymentMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	paid, err := h.executeOne(ctx, db, msg.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return &drip.DeliverResult{
		Log: fmt.Sprintf("paid %d intervals", paid),
	}, nil
}

// executeOne pays as many due intervals as the escrow affords and
// returns how many were settled.
func (h baseHandler) executeOne(ctx drip.Context, db drip.KVStore, id []byte) (int64, error) {
	s, err := h.loadSubscription(db, id)
	if err != nil {
		return 0, err
	}
	now, err := blockNow(ctx)
	if err != nil {
		return 0, err
	}
	if !s.IsDue(now) {
		return 0, errors.Wrapf(ErrNotDue, "status %s, next payment at %s", s.Status, s.NextPaymentTime)
	}
	interval, err := s.PaymentInterval()
	if err != nil {
		return 0, err
	}

	conf, err := fee.LoadConfig(db)
	if err != nil {
		return 0, err
	}
	_, feeCoin, err := fee.Apply(coin.NewCoin(s.AmountNet, s.Ticker), conf.Bps)
	if err != nil {
		return 0, err
	}
	perInterval := s.AmountNet + feeCoin.Amount

	n := intervalsToPay(now, s.NextPaymentTime, interval, s.Balance, perInterval)
	if n == 0 {
		return 0, errors.Wrapf(ErrInsufficientBalance, "balance %d below %d", s.Balance, perInterval)
	}

	account := SubscriptionAccount(id)
	totalNet := s.AmountNet * n
	if err := h.control.MoveCoins(db, account, s.Recipient, coin.NewCoin(totalNet, s.Ticker)); err != nil {
		return 0, errors.Wrap(err, "cannot pay recipient")
	}
	if totalFee := feeCoin.Amount * n; totalFee > 0 {
		if err := h.control.MoveCoins(db, account, conf.Recipient, coin.NewCoin(totalFee, s.Ticker)); err != nil {
			return 0, errors.Wrap(err, "cannot collect fee")
		}
	}

	s.Balance -= perInterval * n
	s.PaymentCount += n
	s.TotalPaid += totalNet
	s.LastPaymentTime = now
	s.NextPaymentTime += drip.UnixTime(n * int64(interval))

	for i := int64(0); i < n; i++ {
		record := &PaymentRecord{
			Amount:    s.AmountNet,
			Timestamp: now,
			Success:   true,
		}
		if err := appendHistory(db, h.history, id, record); err != nil {
			return 0, err
		}
	}

	if _, err := h.bucket.Put(db, id, s); err != nil {
		return 0, errors.Wrap(err, "cannot store subscription")
	}
	return n, nil
}

// ExecuteBatchHandler runs executions over many subscriptions. Every
// item is isolated with a savepoint: one failing payment is recorded
// and skipped without poisoning the batch.
type ExecuteBatchHandler struct {
	baseHandler
}

var _ drip.Handler = ExecuteBatchHandler{}

func (h ExecuteBatchHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	var msg ExecuteBatchMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: executeCost * int64(len(msg.SubscriptionIDs))}, nil
}

func (h ExecuteBatchHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	var msg ExecuteBatchMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	cdb, ok := db.(drip.CacheableKVStore)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "need cachable kvstore")
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, err
	}

	var paid, failed int
	for _, id := range msg.SubscriptionIDs {
		cache := cdb.CacheWrap()
		if _, err := h.executeOne(ctx, cache, id); err != nil {
			cache.Discard()
			failed++
			// An unpayable but existing subscription leaves a trace
			// in its history.
			if ErrInsufficientBalance.Is(err) {
				record := &PaymentRecord{Timestamp: now, Success: false}
				if err := appendHistory(db, h.history, id, record); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := cache.Write(); err != nil {
			return nil, errors.Wrap(err, "cannot commit batch item")
		}
		paid++
	}
	return &drip.DeliverResult{
		Log: fmt.Sprintf("executed %d subscriptions, %d failures", paid, failed),
	}, nil
}

// PauseHandler stops payment execution.
type PauseHandler struct {
	baseHandler
}

var _ drip.Handler = PauseHandler{}

func (h PauseHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h PauseHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	s.Status = StatusPaused
	if _, err := h.bucket.Put(db, msg.SubscriptionID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store subscription")
	}
	return &drip.DeliverResult{}, nil
}

func (h PauseHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*PauseMsg, *Subscription, error) {
	var msg PauseMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	s, err := h.ownedSubscription(ctx, db, msg.SubscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if s.Status != StatusActive {
		return nil, nil, errors.Wrapf(errors.ErrState, "subscription is %s", s.Status)
	}
	return &msg, s, nil
}

// ResumeHandler reactivates a paused subscription, moving the
// schedule past the current time.
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
	interval, err := s.PaymentInterval()
	if err != nil {
		return nil, err
	}
	s.NextPaymentTime = advanceSchedule(now, s.NextPaymentTime, interval)
	s.Status = StatusActive
	if _, err := h.bucket.Put(db, msg.SubscriptionID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store subscription")
	}
	return &drip.DeliverResult{}, nil
}

func (h ResumeHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*ResumeMsg, *Subscription, drip.UnixTime, error) {
	var msg ResumeMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, err
	}
	s, err := h.ownedSubscription(ctx, db, msg.SubscriptionID)
	if err != nil {
		return nil, nil, 0, err
	}
	if s.Status != StatusPaused {
		return nil, nil, 0, errors.Wrapf(errors.ErrState, "subscription is %s", s.Status)
	}
	now, err := blockNow(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	return &msg, s, now, nil
}

// CancelHandler terminates a subscription and refunds the escrow.
type CancelHandler struct {
	baseHandler
}

var _ drip.Handler = CancelHandler{}

func (h CancelHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h CancelHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if s.Balance > 0 {
		refund := coin.NewCoin(s.Balance, s.Ticker)
		if err := h.control.MoveCoins(db, SubscriptionAccount(msg.SubscriptionID), s.Subscriber, refund); err != nil {
			return nil, errors.Wrap(err, "cannot refund")
		}
		s.Balance = 0
	}
	s.Status = StatusCancelled
	if _, err := h.bucket.Put(db, msg.SubscriptionID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store subscription")
	}
	return &drip.DeliverResult{}, nil
}

func (h CancelHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*CancelMsg, *Subscription, error) {
	var msg CancelMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	s, err := h.ownedSubscription(ctx, db, msg.SubscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if s.Status == StatusCancelled {
		return nil, nil, errors.Wrap(errors.ErrState, "subscription is already cancelled")
	}
	return &msg, s, nil
}

// ModifyHandler changes the amount or the cadence for all future
// payments.
type ModifyHandler struct {
	baseHandler
}

var _ drip.Handler = ModifyHandler{}

func (h ModifyHandler) Check(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{GasAllocated: updateCost}, nil
}

func (h ModifyHandler) Deliver(ctx drip.Context, db drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, s, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if !msg.Amount.IsZero() {
		if msg.Amount.Ticker != s.Ticker {
			return nil, errors.Wrapf(errors.ErrCurrency, "subscription is in %s", s.Ticker)
		}
		net, err := netAmount(db, msg.Amount)
		if err != nil {
			return nil, err
		}
		s.AmountNet = net
	}
	if msg.Cadence != CadenceInvalid {
		s.Cadence = msg.Cadence
		s.Interval = msg.Interval
		if _, err := s.PaymentInterval(); err != nil {
			return nil, err
		}
	}
	if _, err := h.bucket.Put(db, msg.SubscriptionID, s); err != nil {
		return nil, errors.Wrap(err, "cannot store subscription")
	}
	return &drip.DeliverResult{}, nil
}

func (h ModifyHandler) validate(ctx drip.Context, db drip.ReadOnlyKVStore, tx drip.Tx) (*ModifyMsg, *Subscription, error) {
	var msg ModifyMsg
	if err := drip.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	s, err := h.ownedSubscription(ctx, db, msg.SubscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if s.Status == StatusCancelled {
		return nil, nil, errors.Wrap(errors.ErrState, "subscription is cancelled")
	}
	return &msg, s, nil
}
