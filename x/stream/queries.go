package stream

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/coin"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/orm"
)

// Queries are plain reads over the stream bucket. They never mutate
// state, so asking twice at the same time gives the same answer.

// RecipientInfo is the query view of one allocation.
type RecipientInfo struct {
	Recipient      drip.Address
	RatePerSecond  int64
	Accrued        int64
	TotalWithdrawn int64
	Withdrawable   int64
}

// KeyedStream pairs a stream with its identifier.
type KeyedStream struct {
	ID     []byte
	Stream *Stream
}

// Querier answers read requests against the stream bucket.
type Querier struct {
	bucket orm.ModelBucket
}

// NewQuerier returns a Querier over the standard stream bucket.
func NewQuerier() Querier {
	return Querier{bucket: NewBucket()}
}

// GetStream returns the stream with the given ID.
func (q Querier) GetStream(db drip.ReadOnlyKVStore, id []byte) (*Stream, error) {
	var s Stream
	if err := q.bucket.One(db, id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetRecipientBalance returns what the recipient can withdraw at the
// given time.
func (q Querier) GetRecipientBalance(db drip.ReadOnlyKVStore, id []byte, recipient drip.Address, now drip.UnixTime) (coin.Coin, error) {
	s, err := q.GetStream(db, id)
	if err != nil {
		return coin.Coin{}, err
	}
	alloc, err := s.Allocation(recipient)
	if err != nil {
		return coin.Coin{}, err
	}
	w, err := s.Withdrawable(alloc, now)
	if err != nil {
		return coin.Coin{}, err
	}
	return coin.NewCoin(w, s.Ticker), nil
}

// GetRecipientInfo returns the full accrual state of one recipient.
func (q Querier) GetRecipientInfo(db drip.ReadOnlyKVStore, id []byte, recipient drip.Address, now drip.UnixTime) (*RecipientInfo, error) {
	s, err := q.GetStream(db, id)
	if err != nil {
		return nil, err
	}
	alloc, err := s.Allocation(recipient)
	if err != nil {
		return nil, err
	}
	return q.info(s, alloc, now)
}

// GetAllRecipientsInfo returns the accrual state of every recipient.
func (q Querier) GetAllRecipientsInfo(db drip.ReadOnlyKVStore, id []byte, now drip.UnixTime) ([]*RecipientInfo, error) {
	s, err := q.GetStream(db, id)
	if err != nil {
		return nil, err
	}
	infos := make([]*RecipientInfo, 0, len(s.Recipients))
	for _, alloc := range s.Recipients {
		info, err := q.info(s, alloc, now)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (Querier) info(s *Stream, alloc *RecipientAllocation, now drip.UnixTime) (*RecipientInfo, error) {
	earned, err := s.EarnedGross(alloc, now)
	if err != nil {
		return nil, err
	}
	return &RecipientInfo{
		Recipient:      alloc.Recipient,
		RatePerSecond:  alloc.RatePerSecond,
		Accrued:        earned,
		TotalWithdrawn: alloc.TotalWithdrawn,
		Withdrawable:   earned - alloc.TotalWithdrawn,
	}, nil
}

// GetUserSentStreams returns all streams funded by the given source.
func (q Querier) GetUserSentStreams(db drip.ReadOnlyKVStore, source drip.Address) ([]KeyedStream, error) {
	return q.byIndex(db, "source", source)
}

// GetUserReceivedStreams returns all streams in which the given
// address is a recipient.
func (q Querier) GetUserReceivedStreams(db drip.ReadOnlyKVStore, recipient drip.Address) ([]KeyedStream, error) {
	return q.byIndex(db, "recipient", recipient)
}

func (q Querier) byIndex(db drip.ReadOnlyKVStore, index string, key drip.Address) ([]KeyedStream, error) {
	var streams []*Stream
	ids, err := q.bucket.ByIndex(db, index, key, &streams)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(streams) {
		return nil, errors.Wrap(errors.ErrDatabase, "index result size mismatch")
	}
	res := make([]KeyedStream, len(ids))
	for i := range ids {
		res[i] = KeyedStream{ID: ids[i], Stream: streams[i]}
	}
	return res, nil
}
