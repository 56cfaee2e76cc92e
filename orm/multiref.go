package orm

import (
	"bytes"
	"sort"

	"github.com/tendermint/go-amino"
	"github.com/drip-pay/drip/errors"
)

var refCodec = amino.NewCodec()

// MultiRef is a set of references to other object keys. It backs every
// secondary index entry: all primary keys filed under one index key.
type MultiRef struct {
	Refs [][]byte
}

// Add inserts this reference in the multiref, sorted by order. Returns
// an error if it is a duplicate.
func (m *MultiRef) Add(ref []byte) error {
	i, found := m.findRef(ref)
	if found {
		return errors.Wrap(errors.ErrDuplicate, "cannot add a ref twice")
	}
	m.Refs = append(m.Refs, nil)
	copy(m.Refs[i+1:], m.Refs[i:])
	m.Refs[i] = ref
	return nil
}

// Remove removes this reference from the multiref. Returns an error if
// it was not present.
func (m *MultiRef) Remove(ref []byte) error {
	i, found := m.findRef(ref)
	if !found {
		return errors.Wrap(errors.ErrNotFound, "ref not in set")
	}
	m.Refs = append(m.Refs[:i], m.Refs[i+1:]...)
	return nil
}

// findRef returns the position of the ref in the sorted set and
// whether it is present.
func (m *MultiRef) findRef(ref []byte) (int, bool) {
	i := sort.Search(len(m.Refs), func(j int) bool {
		return bytes.Compare(ref, m.Refs[j]) <= 0
	})
	if i < len(m.Refs) && bytes.Equal(ref, m.Refs[i]) {
		return i, true
	}
	return i, false
}

func (m *MultiRef) Marshal() ([]byte, error) {
	return refCodec.MarshalBinaryBare(m)
}

func (m *MultiRef) Unmarshal(raw []byte) error {
	return refCodec.UnmarshalBinaryBare(raw, m)
}
