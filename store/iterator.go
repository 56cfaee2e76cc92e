package store

import (
	"github.com/drip-pay/drip/errors"
)

// Model groups a key-value pair.
type Model struct {
	Key   []byte
	Value []byte
}

// sliceIterator wraps an in-memory snapshot of models and serves them
// one by one. Taking a snapshot keeps the iterator valid regardless of
// writes that happen while it is consumed.
type sliceIterator struct {
	data []Model
	idx  int
}

// NewSliceIterator creates an iterator over a precomputed result set.
func NewSliceIterator(data []Model) Iterator {
	return &sliceIterator{data: data}
}

func (s *sliceIterator) Next() (key, value []byte, err error) {
	if s.idx >= len(s.data) {
		return nil, nil, errors.ErrIteratorDone
	}
	val := s.data[s.idx]
	s.idx++
	return val.Key, val.Value, nil
}

func (s *sliceIterator) Release() {
	s.data = nil
	s.idx = 0
}
