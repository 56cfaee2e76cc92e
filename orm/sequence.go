package orm

import (
	"encoding/binary"
	"fmt"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
)

// Sequence maintains a counter in the database. Every call to NextVal
// returns the next, never before used value.
type Sequence struct {
	id []byte
}

// NewSequence returns a sequence counter. Sequence is using following
// pattern to construct a key:
//
//	_s.<bucket>:<name>
func NewSequence(bucket, name string) Sequence {
	id := fmt.Sprintf("_s.%s:%s", bucket, name)
	return Sequence{
		id: []byte(id),
	}
}

// NextVal increments the sequence and returns its state as 8 bytes.
func (s Sequence) NextVal(db drip.KVStore) ([]byte, error) {
	_, bz, err := s.increment(db)
	return bz, err
}

// NextInt increments the sequence and returns its state as int64.
func (s Sequence) NextInt(db drip.KVStore) (int64, error) {
	val, _, err := s.increment(db)
	return val, err
}

// Latest returns the recently returned value of the sequence. This
// method does not modify the sequence state.
func (s Sequence) Latest(db drip.ReadOnlyKVStore) (int64, []byte, error) {
	raw, err := db.Get(s.id)
	if err != nil {
		return 0, nil, errors.Wrap(err, "cannot get sequence state")
	}
	if raw == nil {
		return 0, nil, nil
	}
	val := int64(binary.BigEndian.Uint64(raw))
	return val, raw, nil
}

func (s Sequence) increment(db drip.KVStore) (int64, []byte, error) {
	val, _, err := s.Latest(db)
	if err != nil {
		return 0, nil, err
	}
	val++
	bz := EncodeSequence(val)
	if err := db.Set(s.id, bz); err != nil {
		return 0, nil, errors.Wrap(err, "cannot store sequence state")
	}
	return val, bz, nil
}

// EncodeSequence converts an int64 to an 8 byte big endian
// representation, so it can be sorted as raw bytes.
func EncodeSequence(val int64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, uint64(val))
	return bz
}

// DecodeSequence converts an 8 byte sequence key back to an int64.
func DecodeSequence(bz []byte) (int64, error) {
	if len(bz) != 8 {
		return 0, errors.Wrapf(errors.ErrInput, "sequence must be 8 bytes, got %d", len(bz))
	}
	return int64(binary.BigEndian.Uint64(bz)), nil
}
