package stream

import (
	"math"
	"testing"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/driptest"
	"github.com/drip-pay/drip/driptest/assert"
	"github.com/drip-pay/drip/errors"
)

func testStream(status Status) *Stream {
	return &Stream{
		Source: driptest.NewCondition().Address(),
		Ticker: "DRIP",
		Recipients: []*RecipientAllocation{
			{
				Recipient:     driptest.NewCondition().Address(),
				RatePerSecond: 5,
				BaseTime:      t0,
			},
		},
		DepositNet: 36000,
		StartTime:  t0,
		EndTime:    t0 + 7200,
		Status:     status,
	}
}

func TestAccrualClampsToStreamPeriod(t *testing.T) {
	s := testStream(StatusActive)
	a := s.Recipients[0]

	cases := map[string]struct {
		now  drip.UnixTime
		want int64
	}{
		"before start":    {now: t0 - 100, want: 0},
		"at start":        {now: t0, want: 0},
		"mid stream":      {now: t0 + 100, want: 500},
		"at end":          {now: t0 + 7200, want: 36000},
		"long after end":  {now: t0 + 99999, want: 36000},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := s.EarnedGross(a, tc.now)
			assert.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAccrualFrozenWhenPausedOrCancelled(t *testing.T) {
	for _, status := range []Status{StatusPaused, StatusCancelled} {
		t.Run(status.String(), func(t *testing.T) {
			s := testStream(status)
			s.PausedAt = t0 + 1000
			got, err := s.EarnedGross(s.Recipients[0], t0+5000)
			assert.Nil(t, err)
			assert.Equal(t, int64(5000), got)
		})
	}
}

func TestWithdrawableSubtractsWithdrawn(t *testing.T) {
	s := testStream(StatusActive)
	s.Recipients[0].TotalWithdrawn = 300

	got, err := s.Withdrawable(s.Recipients[0], t0+100)
	assert.Nil(t, err)
	assert.Equal(t, int64(200), got)
}

func TestFoldAccrualPreservesHistory(t *testing.T) {
	s := testStream(StatusActive)
	a := s.Recipients[0]

	assert.Nil(t, s.foldAccrual(a, t0+1000))
	assert.Equal(t, int64(5000), a.AccruedBase)
	assert.Equal(t, t0+1000, a.BaseTime)

	// A rate change after folding does not rewrite the past.
	a.RatePerSecond = 1
	got, err := s.EarnedGross(a, t0+2000)
	assert.Nil(t, err)
	assert.Equal(t, int64(6000), got)
}

func TestAccrualOverflow(t *testing.T) {
	s := testStream(StatusActive)
	s.Recipients[0].RatePerSecond = math.MaxInt64 / 2

	_, err := s.EarnedGross(s.Recipients[0], t0+7200)
	assert.IsErr(t, errors.ErrOverflow, err)
}

func TestStreamValidate(t *testing.T) {
	s := testStream(StatusActive)
	assert.Nil(t, s.Validate())

	dup := testStream(StatusActive)
	dup.Recipients = append(dup.Recipients, &RecipientAllocation{
		Recipient: dup.Recipients[0].Recipient,
	})
	assert.IsErr(t, errors.ErrDuplicate, dup.Validate())

	bad := testStream(StatusActive)
	bad.EndTime = bad.StartTime
	assert.IsErr(t, errors.ErrInput, bad.Validate())

	long := testStream(StatusActive)
	for i := 0; i <= maxTitleSize; i++ {
		long.Title += "x"
	}
	assert.IsErr(t, errors.ErrInput, long.Validate())

	none := testStream(StatusActive)
	none.Recipients = nil
	assert.IsErr(t, errors.ErrEmpty, none.Validate())
}

func TestStreamAccountIsDeterministic(t *testing.T) {
	id := driptest.SequenceID(7)
	assert.Equal(t, StreamAccount(id), StreamAccount(driptest.SequenceID(7)))
	if StreamAccount(id).Equals(StreamAccount(driptest.SequenceID(8))) {
		t.Fatal("different streams must use different accounts")
	}
	assert.Nil(t, StreamAccount(id).Validate())
}
