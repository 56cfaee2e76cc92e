package stream

import (
	"testing"

	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/driptest"
	"github.com/drip-pay/drip/driptest/assert"
	"github.com/drip-pay/drip/errors"
)

func TestUserStreamRegistries(t *testing.T) {
	e := newEnv(t, 0)
	source := driptest.NewCondition()
	other := driptest.NewCondition()
	alice := driptest.NewCondition()
	bob := driptest.NewCondition()

	first := mustCreate(t, e, source, alice)
	second := mustCreate(t, e, source, bob)
	third := mustCreate(t, e, other, alice)

	q := NewQuerier()

	sent, err := q.GetUserSentStreams(e.db, source.Address())
	assert.Nil(t, err)
	assert.Equal(t, 2, len(sent))
	assert.Equal(t, first, sent[0].ID)
	assert.Equal(t, second, sent[1].ID)

	sent, err = q.GetUserSentStreams(e.db, other.Address())
	assert.Nil(t, err)
	assert.Equal(t, 1, len(sent))
	assert.Equal(t, third, sent[0].ID)

	received, err := q.GetUserReceivedStreams(e.db, alice.Address())
	assert.Nil(t, err)
	assert.Equal(t, 2, len(received))

	received, err = q.GetUserReceivedStreams(e.db, bob.Address())
	assert.Nil(t, err)
	assert.Equal(t, 1, len(received))
	assert.Equal(t, second, received[0].ID)

	// Unknown user has no streams, not an error.
	sent, err = q.GetUserSentStreams(e.db, driptest.NewCondition().Address())
	assert.Nil(t, err)
	assert.Equal(t, 0, len(sent))
}

func TestRegistryFollowsRecipientChanges(t *testing.T) {
	e := newEnv(t, 0)
	source := driptest.NewCondition()
	alice := driptest.NewCondition()
	bob := driptest.NewCondition()
	id := mustCreate(t, e, source, alice)
	e.fund(t, source.Address(), 12000)

	_, err := e.deliver(source, t0+1200, &AddRecipientMsg{
		StreamID:      id,
		Recipient:     bob.Address(),
		RatePerSecond: 2,
		Deposit:       coin.NewCoin(12000, "DRIP"),
	})
	assert.Nil(t, err)

	q := NewQuerier()
	received, err := q.GetUserReceivedStreams(e.db, bob.Address())
	assert.Nil(t, err)
	assert.Equal(t, 1, len(received))
	assert.Equal(t, id, received[0].ID)
}

func TestQueriesAreReadOnly(t *testing.T) {
	e := newEnv(t, 0)
	source := driptest.NewCondition()
	alice := driptest.NewCondition()
	id := mustCreate(t, e, source, alice)

	q := NewQuerier()
	// Asking twice at the same instant gives the same answer.
	b1, err := q.GetRecipientBalance(e.db, id, alice.Address(), t0+500)
	assert.Nil(t, err)
	b2, err := q.GetRecipientBalance(e.db, id, alice.Address(), t0+500)
	assert.Nil(t, err)
	assert.Equal(t, b1, b2)

	info, err := q.GetRecipientInfo(e.db, id, alice.Address(), t0+500)
	assert.Nil(t, err)
	assert.Equal(t, int64(500), info.Accrued)
	assert.Equal(t, int64(500), info.Withdrawable)
	assert.Equal(t, int64(0), info.TotalWithdrawn)

	_, err = q.GetRecipientInfo(e.db, id, driptest.NewCondition().Address(), t0+500)
	assert.IsErr(t, errors.ErrNotFound, err)

	_, err = q.GetStream(e.db, driptest.SequenceID(99))
	assert.IsErr(t, errors.ErrNotFound, err)
}
