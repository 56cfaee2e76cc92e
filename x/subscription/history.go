package subscription

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
)

// PaymentRecord is one entry of the append-only payment history.
type PaymentRecord struct {
	// Amount is the net amount paid to the recipient. Zero for a
	// failed attempt.
	Amount int64
	// Timestamp is when the execution happened.
	Timestamp drip.UnixTime
	// Success is false for an execution that could not be paid.
	Success bool
}

var _ orm.Model = (*PaymentRecord)(nil)

func (r *PaymentRecord) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(r)
}

func (r *PaymentRecord) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, r)
}

func (r *PaymentRecord) Validate() error {
	if r.Amount < 0 {
		return errors.Wrap(errors.ErrAmount, "amount must not be negative")
	}
	if r.Timestamp == 0 {
		return errors.Wrap(errors.ErrEmpty, "timestamp")
	}
	return nil
}

// NewHistoryBucket returns the bucket holding payment records. Keys
// are the subscription ID followed by a per-subscription sequence
// number, so a prefix scan on the ID returns one subscription's
// history in order.
func NewHistoryBucket() orm.ModelBucket {
	return orm.NewModelBucket("payment", &PaymentRecord{})
}

// historyKey builds the record key for the n-th history entry of a
// subscription.
func historyKey(subscriptionID []byte, n int64) []byte {
	return append(append([]byte{}, subscriptionID...), orm.EncodeSequence(n)...)
}

// appendHistory stores the next history record for a subscription.
// The sequence tracks all entries, failed attempts included.
func appendHistory(db drip.KVStore, bucket orm.ModelBucket, subscriptionID []byte, record *PaymentRecord) error {
	seq := orm.NewSequence("payment", string(subscriptionID))
	n, err := seq.NextInt(db)
	if err != nil {
		return errors.Wrap(err, "history sequence")
	}
	if _, err := bucket.Put(db, historyKey(subscriptionID, n), record); err != nil {
		return errors.Wrap(err, "cannot store payment record")
	}
	return nil
}
