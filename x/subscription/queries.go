package subscription

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
)

// KeyedSubscription pairs a subscription with its identifier.
type KeyedSubscription struct {
	ID           []byte
	Subscription *Subscription
}

// Querier answers read requests against the subscription and the
// payment history buckets.
type Querier struct {
	bucket  orm.ModelBucket
	history orm.ModelBucket
}

// NewQuerier returns a Querier over the standard buckets.
func NewQuerier() Querier {
	return Querier{bucket: NewBucket(), history: NewHistoryBucket()}
}

// GetSubscription returns the subscription with the given ID.
func (q Querier) GetSubscription(db drip.ReadOnlyKVStore, id []byte) (*Subscription, error) {
	var s Subscription
	if err := q.bucket.One(db, id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSubscriptionBalance returns the escrow balance available for
// future payments.
func (q Querier) GetSubscriptionBalance(db drip.ReadOnlyKVStore, id []byte) (coin.Coin, error) {
	s, err := q.GetSubscription(db, id)
	if err != nil {
		return coin.Coin{}, err
	}
	return coin.NewCoin(s.Balance, s.Ticker), nil
}

// IsPaymentDue returns true if the subscription has a payment pending
// at the given time, along with the scheduled next payment time.
func (q Querier) IsPaymentDue(db drip.ReadOnlyKVStore, id []byte, now drip.UnixTime) (bool, drip.UnixTime, error) {
	s, err := q.GetSubscription(db, id)
	if err != nil {
		return false, 0, err
	}
	return s.IsDue(now), s.NextPaymentTime, nil
}

// GetUserSubscriptions returns all subscriptions funded by the given
// subscriber.
func (q Querier) GetUserSubscriptions(db drip.ReadOnlyKVStore, subscriber drip.Address) ([]KeyedSubscription, error) {
	return q.byIndex(db, "subscriber", subscriber)
}

// GetUserReceivedSubscriptions returns all subscriptions paying the
// given recipient.
func (q Querier) GetUserReceivedSubscriptions(db drip.ReadOnlyKVStore, recipient drip.Address) ([]KeyedSubscription, error) {
	return q.byIndex(db, "recipient", recipient)
}

func (q Querier) byIndex(db drip.ReadOnlyKVStore, index string, key drip.Address) ([]KeyedSubscription, error) {
	var subs []*Subscription
	ids, err := q.bucket.ByIndex(db, index, key, &subs)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(subs) {
		return nil, errors.Wrap(errors.ErrDatabase, "index result size mismatch")
	}
	res := make([]KeyedSubscription, len(ids))
	for i := range ids {
		res[i] = KeyedSubscription{ID: ids[i], Subscription: subs[i]}
	}
	return res, nil
}

// GetPaymentHistory returns a page of the payment records of one
// subscription, oldest first, together with the total record count so
// callers can page through. Offset and limit slice the full history, a
// limit of zero means no limit.
func (q Querier) GetPaymentHistory(db drip.ReadOnlyKVStore, id []byte, offset, limit int) ([]*PaymentRecord, int, error) {
	var records []*PaymentRecord
	if _, err := q.history.ByPrefix(db, id, &records); err != nil {
		return nil, 0, err
	}
	total := len(records)
	if offset < 0 || offset > total {
		return nil, 0, errors.Wrapf(errors.ErrInput, "offset out of range, history has %d records", total)
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, total, nil
}
