package subscription

import (
	"context"
	"testing"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/app"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/driptest"
	"github.com/drip-pay/drip/driptest/assert"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/store"
	"github.com/drip-pay/drip/x/cash"
	"github.com/drip-pay/drip/x/fee"
	"github.com/drip-pay/drip/x/utils"
)

const (
	t0  drip.UnixTime = 1000000
	day drip.UnixTime = 86400
)

type env struct {
	db        drip.CacheableKVStore
	rt        *app.Router
	h         drip.Handler
	auth      *driptest.CtxAuth
	control   cash.CashController
	collector drip.Address
}

func newEnv(t testing.TB, bps uint32) *env {
	t.Helper()
	e := &env{
		db:        store.MemStore(),
		auth:      &driptest.CtxAuth{Key: "auth"},
		control:   cash.NewController(cash.NewWalletBucket()),
		collector: driptest.NewCondition().Address(),
	}
	err := fee.SaveConfig(e.db, &fee.Configuration{
		Owner:     driptest.NewCondition().Address(),
		Recipient: e.collector,
		Bps:       bps,
	})
	assert.Nil(t, err)
	e.rt = app.NewRouter()
	RegisterRoutes(e.rt, e.auth, e.control)
	// The same decorator stack a deployment runs: a failing delivery
	// must leave no partial writes.
	e.h = app.ChainDecorators(utils.NewSavepoint().OnDeliver()).WithHandler(e.rt)
	return e
}

func (e *env) fund(t testing.TB, addr drip.Address, amount int64) {
	t.Helper()
	assert.Nil(t, e.control.CoinMint(e.db, addr, coin.NewCoin(amount, "DRIP")))
}

func (e *env) deliver(signer drip.Condition, at drip.UnixTime, msg drip.Msg) (*drip.DeliverResult, error) {
	ctx := e.auth.SetConditions(context.Background(), signer)
	ctx = driptest.CtxWithTime(ctx, at)
	return e.h.Deliver(ctx, e.db, &driptest.Tx{Msg: msg})
}

func (e *env) balance(t testing.TB, addr drip.Address) int64 {
	t.Helper()
	coins, err := e.control.Balance(e.db, addr)
	assert.Nil(t, err)
	return coins.Amount("DRIP").Amount
}

// mustSubscribe opens a daily subscription over the given gross amount
// and returns its ID. No escrow funding happens here.
func mustSubscribe(t testing.TB, e *env, subscriber, recipient drip.Condition, gross int64) []byte {
	t.Helper()
	res, err := e.deliver(subscriber, t0, &CreateMsg{
		Subscriber: subscriber.Address(),
		Recipient:  recipient.Address(),
		Amount:     coin.NewCoin(gross, "DRIP"),
		Cadence:    CadenceDaily,
		Title:      "news",
	})
	assert.Nil(t, err)
	return res.Data
}

// mustDeposit funds the subscriber and moves the amount into the
// subscription escrow.
func mustDeposit(t testing.TB, e *env, subscriber drip.Condition, id []byte, amount int64) {
	t.Helper()
	e.fund(t, subscriber.Address(), amount)
	_, err := e.deliver(subscriber, t0, &DepositMsg{
		SubscriptionID: id,
		Amount:         coin.NewCoin(amount, "DRIP"),
	})
	assert.Nil(t, err)
}

func TestCreateSubscription(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()

	id := mustSubscribe(t, e, bob, alice, 1000)
	assert.Equal(t, driptest.SequenceID(1), id)

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, int64(1000), s.AmountNet)
	assert.Equal(t, t0+day, s.NextPaymentTime)
	assert.Equal(t, int64(0), s.Balance)

	// Creation moves no money.
	assert.Equal(t, int64(0), e.balance(t, SubscriptionAccount(id)))
}

func TestCreateSubscriptionNetsFee(t *testing.T) {
	e := newEnv(t, 50)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()

	// fee = floor(1000 * 50 / 10000) = 5
	id := mustSubscribe(t, e, bob, alice, 1000)

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, int64(995), s.AmountNet)
	// The fee is netted out per payment, not collected upfront.
	assert.Equal(t, int64(0), e.balance(t, e.collector))
}

func TestCreateSubscriptionFirstPaymentTime(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()

	// A nonzero first payment time overrides the one-interval default.
	res, err := e.deliver(bob, t0, &CreateMsg{
		Subscriber:       bob.Address(),
		Recipient:        alice.Address(),
		Amount:           coin.NewCoin(1000, "DRIP"),
		Cadence:          CadenceDaily,
		FirstPaymentTime: t0 + 3*day,
	})
	assert.Nil(t, err)

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, res.Data)
	assert.Nil(t, err)
	assert.Equal(t, t0+3*day, s.NextPaymentTime)

	// Not due before the chosen time.
	mustDeposit(t, e, bob, res.Data, 3000)
	_, err = e.deliver(bob, t0+day, &ExecutePaymentMsg{SubscriptionID: res.Data})
	assert.IsErr(t, ErrNotDue, err)
	_, err = e.deliver(bob, t0+3*day, &ExecutePaymentMsg{SubscriptionID: res.Data})
	assert.Nil(t, err)
	assert.Equal(t, int64(1000), e.balance(t, alice.Address()))
}

func TestCreateSubscriptionBelowMinimum(t *testing.T) {
	e := newEnv(t, 0)
	err := fee.SaveConfig(e.db, &fee.Configuration{
		Owner:         driptest.NewCondition().Address(),
		Recipient:     e.collector,
		MinimumAmount: 500,
	})
	assert.Nil(t, err)

	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	_, err = e.deliver(bob, t0, &CreateMsg{
		Subscriber: bob.Address(),
		Recipient:  alice.Address(),
		Amount:     coin.NewCoin(100, "DRIP"),
		Cadence:    CadenceDaily,
	})
	assert.IsErr(t, errors.ErrAmount, err)
}

func TestCreateSubscriptionValidation(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()

	cases := map[string]struct {
		msg     *CreateMsg
		signer  drip.Condition
		wantErr *errors.Error
	}{
		"custom cadence below minimum": {
			msg: &CreateMsg{
				Subscriber: bob.Address(),
				Recipient:  alice.Address(),
				Amount:     coin.NewCoin(1000, "DRIP"),
				Cadence:    CadenceCustom,
				Interval:   1800,
			},
			signer:  bob,
			wantErr: errors.ErrInput,
		},
		"missing cadence": {
			msg: &CreateMsg{
				Subscriber: bob.Address(),
				Recipient:  alice.Address(),
				Amount:     coin.NewCoin(1000, "DRIP"),
			},
			signer:  bob,
			wantErr: errors.ErrInput,
		},
		"zero amount": {
			msg: &CreateMsg{
				Subscriber: bob.Address(),
				Recipient:  alice.Address(),
				Amount:     coin.NewCoin(0, "DRIP"),
				Cadence:    CadenceDaily,
			},
			signer:  bob,
			wantErr: errors.ErrAmount,
		},
		"subscriber as recipient": {
			msg: &CreateMsg{
				Subscriber: bob.Address(),
				Recipient:  bob.Address(),
				Amount:     coin.NewCoin(1000, "DRIP"),
				Cadence:    CadenceDaily,
			},
			signer:  bob,
			wantErr: errors.ErrInput,
		},
		"first payment time in the past": {
			msg: &CreateMsg{
				Subscriber:       bob.Address(),
				Recipient:        alice.Address(),
				Amount:           coin.NewCoin(1000, "DRIP"),
				Cadence:          CadenceDaily,
				FirstPaymentTime: t0 - 100,
			},
			signer:  bob,
			wantErr: errors.ErrInput,
		},
		"not signed by subscriber": {
			msg: &CreateMsg{
				Subscriber: bob.Address(),
				Recipient:  alice.Address(),
				Amount:     coin.NewCoin(1000, "DRIP"),
				Cadence:    CadenceDaily,
			},
			signer:  alice,
			wantErr: errors.ErrUnauthorized,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.deliver(tc.signer, t0, tc.msg)
			assert.IsErr(t, tc.wantErr, err)
		})
	}
}

func TestDeposit(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)

	mustDeposit(t, e, bob, id, 5000)
	assert.Equal(t, int64(5000), e.balance(t, SubscriptionAccount(id)))
	assert.Equal(t, int64(0), e.balance(t, bob.Address()))

	q := NewQuerier()
	bal, err := q.GetSubscriptionBalance(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewCoin(5000, "DRIP"), bal)

	// Wrong currency is rejected.
	_, err = e.deliver(bob, t0, &DepositMsg{
		SubscriptionID: id,
		Amount:         coin.NewCoin(100, "IOV"),
	})
	assert.IsErr(t, errors.ErrCurrency, err)

	// Only the subscriber can fund the escrow.
	_, err = e.deliver(alice, t0, &DepositMsg{
		SubscriptionID: id,
		Amount:         coin.NewCoin(100, "DRIP"),
	})
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func TestExecutePayment(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	keeper := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)
	mustDeposit(t, e, bob, id, 3000)

	// Anyone may execute a due payment.
	_, err := e.deliver(keeper, t0+day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.Nil(t, err)

	assert.Equal(t, int64(1000), e.balance(t, alice.Address()))
	assert.Equal(t, int64(2000), e.balance(t, SubscriptionAccount(id)))

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, int64(2000), s.Balance)
	assert.Equal(t, int64(1), s.PaymentCount)
	assert.Equal(t, int64(1000), s.TotalPaid)
	assert.Equal(t, t0+day, s.LastPaymentTime)
	assert.Equal(t, t0+2*day, s.NextPaymentTime)

	records, total, err := q.GetPaymentHistory(e.db, id, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, len(records))
	assert.Equal(t, int64(1000), records[0].Amount)
	assert.Equal(t, true, records[0].Success)
}

func TestExecutePaymentNotDue(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)
	mustDeposit(t, e, bob, id, 3000)

	_, err := e.deliver(bob, t0+100, &ExecutePaymentMsg{SubscriptionID: id})
	assert.IsErr(t, ErrNotDue, err)

	// A paused subscription is never due.
	_, err = e.deliver(bob, t0+100, &PauseMsg{SubscriptionID: id})
	assert.Nil(t, err)
	_, err = e.deliver(bob, t0+day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.IsErr(t, ErrNotDue, err)
}

func TestExecutePaymentFeeSplit(t *testing.T) {
	e := newEnv(t, 100)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	// net = 1000 - floor(1000 * 100 / 10000) = 990
	id := mustSubscribe(t, e, bob, alice, 1000)
	// per interval = 990 + floor(990 * 100 / 10000) = 990 + 9 = 999
	mustDeposit(t, e, bob, id, 1998)

	_, err := e.deliver(bob, t0+day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.Nil(t, err)

	assert.Equal(t, int64(990), e.balance(t, alice.Address()))
	assert.Equal(t, int64(9), e.balance(t, e.collector))
	assert.Equal(t, int64(999), e.balance(t, SubscriptionAccount(id)))
}

func TestExecutePaymentCatchUp(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)
	mustDeposit(t, e, bob, id, 2500)

	// Three intervals have become due but the escrow affords two.
	res, err := e.deliver(bob, t0+3*day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.Nil(t, err)
	assert.Equal(t, "paid 2 intervals", res.Log)

	assert.Equal(t, int64(2000), e.balance(t, alice.Address()))

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, int64(500), s.Balance)
	assert.Equal(t, int64(2), s.PaymentCount)
	assert.Equal(t, t0+3*day, s.NextPaymentTime)

	records, _, err := q.GetPaymentHistory(e.db, id, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(records))

	// Still due, but the rest of the escrow does not cover a payment.
	_, err = e.deliver(bob, t0+3*day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.IsErr(t, ErrInsufficientBalance, err)
	assert.Equal(t, int64(2000), e.balance(t, alice.Address()))
}

func TestExecutePaymentUnfunded(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)

	_, err := e.deliver(bob, t0+day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.IsErr(t, ErrInsufficientBalance, err)
	assert.Equal(t, int64(0), e.balance(t, alice.Address()))
}

func TestPauseAndResume(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)
	mustDeposit(t, e, bob, id, 10000)

	// Only the subscriber may pause.
	_, err := e.deliver(alice, t0+100, &PauseMsg{SubscriptionID: id})
	assert.IsErr(t, errors.ErrUnauthorized, err)
	_, err = e.deliver(bob, t0+100, &PauseMsg{SubscriptionID: id})
	assert.Nil(t, err)

	// Pausing twice is an error.
	_, err = e.deliver(bob, t0+200, &PauseMsg{SubscriptionID: id})
	assert.IsErr(t, errors.ErrState, err)

	// Resuming five days later creates no retroactive backlog: the
	// schedule moves past the current time in whole intervals.
	_, err = e.deliver(bob, t0+5*day+100, &ResumeMsg{SubscriptionID: id})
	assert.Nil(t, err)

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, t0+6*day, s.NextPaymentTime)

	// Exactly one interval is due at the new schedule.
	res, err := e.deliver(bob, t0+6*day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.Nil(t, err)
	assert.Equal(t, "paid 1 intervals", res.Log)

	// Resuming an active subscription is an error.
	_, err = e.deliver(bob, t0+6*day, &ResumeMsg{SubscriptionID: id})
	assert.IsErr(t, errors.ErrState, err)
}

func TestCancelSubscription(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)
	mustDeposit(t, e, bob, id, 3000)

	_, err := e.deliver(bob, t0+100, &CancelMsg{SubscriptionID: id})
	assert.Nil(t, err)

	// The whole escrow comes back to the subscriber.
	assert.Equal(t, int64(3000), e.balance(t, bob.Address()))
	assert.Equal(t, int64(0), e.balance(t, SubscriptionAccount(id)))

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, StatusCancelled, s.Status)
	assert.Equal(t, int64(0), s.Balance)

	// Cancelled is terminal.
	_, err = e.deliver(bob, t0+200, &CancelMsg{SubscriptionID: id})
	assert.IsErr(t, errors.ErrState, err)
	_, err = e.deliver(bob, t0+200, &PauseMsg{SubscriptionID: id})
	assert.IsErr(t, errors.ErrState, err)
	e.fund(t, bob.Address(), 100)
	_, err = e.deliver(bob, t0+200, &DepositMsg{
		SubscriptionID: id,
		Amount:         coin.NewCoin(100, "DRIP"),
	})
	assert.IsErr(t, errors.ErrState, err)
	_, err = e.deliver(bob, t0+day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.IsErr(t, ErrNotDue, err)
}

func TestModifySubscription(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)
	mustDeposit(t, e, bob, id, 10000)

	// Raise the amount. The schedule stays untouched.
	_, err := e.deliver(bob, t0+100, &ModifyMsg{
		SubscriptionID: id,
		Amount:         coin.NewCoin(2000, "DRIP"),
	})
	assert.Nil(t, err)

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, int64(2000), s.AmountNet)
	assert.Equal(t, t0+day, s.NextPaymentTime)

	// The next execution pays the new amount.
	_, err = e.deliver(bob, t0+day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.Nil(t, err)
	assert.Equal(t, int64(2000), e.balance(t, alice.Address()))

	// Switch to a custom weekly-ish cadence.
	_, err = e.deliver(bob, t0+day, &ModifyMsg{
		SubscriptionID: id,
		Cadence:        CadenceCustom,
		Interval:       2 * 86400,
	})
	assert.Nil(t, err)
	s, err = q.GetSubscription(e.db, id)
	assert.Nil(t, err)
	assert.Equal(t, CadenceCustom, s.Cadence)

	// Only the subscriber may modify.
	_, err = e.deliver(alice, t0+day, &ModifyMsg{
		SubscriptionID: id,
		Amount:         coin.NewCoin(1, "DRIP"),
	})
	assert.IsErr(t, errors.ErrUnauthorized, err)
}

func TestExecuteBatch(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()

	funded := mustSubscribe(t, e, bob, alice, 1000)
	mustDeposit(t, e, bob, funded, 3000)
	broke := mustSubscribe(t, e, bob, alice, 500)
	paused := mustSubscribe(t, e, bob, alice, 700)
	_, err := e.deliver(bob, t0+100, &PauseMsg{SubscriptionID: paused})
	assert.Nil(t, err)

	res, err := e.deliver(bob, t0+day, &ExecuteBatchMsg{
		SubscriptionIDs: [][]byte{funded, broke, paused},
	})
	assert.Nil(t, err)
	assert.Equal(t, "executed 1 subscriptions, 2 failures", res.Log)

	// The payable one went through.
	assert.Equal(t, int64(1000), e.balance(t, alice.Address()))

	q := NewQuerier()
	s, err := q.GetSubscription(e.db, funded)
	assert.Nil(t, err)
	assert.Equal(t, int64(1), s.PaymentCount)

	// The unfunded one left a failure record, the rolled back
	// execution left no other trace.
	records, _, err := q.GetPaymentHistory(e.db, broke, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(records))
	assert.Equal(t, false, records[0].Success)
	assert.Equal(t, int64(0), records[0].Amount)
	s, err = q.GetSubscription(e.db, broke)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), s.PaymentCount)

	// Not due is counted but not recorded.
	records, _, err = q.GetPaymentHistory(e.db, paused, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(records))
}

func TestPaymentHistoryPagination(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustSubscribe(t, e, bob, alice, 1000)
	mustDeposit(t, e, bob, id, 5000)

	// A catch-up execution writes one record per settled interval.
	_, err := e.deliver(bob, t0+3*day, &ExecutePaymentMsg{SubscriptionID: id})
	assert.Nil(t, err)

	q := NewQuerier()
	all, total, err := q.GetPaymentHistory(e.db, id, 0, 0)
	assert.Nil(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, len(all))

	// The total always counts the full history, not the page.
	page, total, err := q.GetPaymentHistory(e.db, id, 1, 1)
	assert.Nil(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, len(page))

	tail, total, err := q.GetPaymentHistory(e.db, id, 2, 0)
	assert.Nil(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, len(tail))

	_, _, err = q.GetPaymentHistory(e.db, id, 4, 0)
	assert.IsErr(t, errors.ErrInput, err)
}

func TestSubscriptionRegistries(t *testing.T) {
	e := newEnv(t, 0)
	bob := driptest.NewCondition()
	carl := driptest.NewCondition()
	alice := driptest.NewCondition()

	first := mustSubscribe(t, e, bob, alice, 1000)
	second := mustSubscribe(t, e, carl, alice, 2000)

	q := NewQuerier()

	sent, err := q.GetUserSubscriptions(e.db, bob.Address())
	assert.Nil(t, err)
	assert.Equal(t, 1, len(sent))
	assert.Equal(t, first, sent[0].ID)

	received, err := q.GetUserReceivedSubscriptions(e.db, alice.Address())
	assert.Nil(t, err)
	assert.Equal(t, 2, len(received))
	assert.Equal(t, first, received[0].ID)
	assert.Equal(t, second, received[1].ID)

	due, next, err := q.IsPaymentDue(e.db, first, t0+100)
	assert.Nil(t, err)
	assert.Equal(t, false, due)
	assert.Equal(t, t0+day, next)
	due, next, err = q.IsPaymentDue(e.db, first, t0+day)
	assert.Nil(t, err)
	assert.Equal(t, true, due)
	assert.Equal(t, t0+day, next)
}
