package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/drip-pay/drip/errors"
)

// DefaultFreeListSize is the size we hold for free nodes in the btree.
const DefaultFreeListSize = btree.DefaultFreeListSize

// MemStore returns an empty, cacheable in-memory store. All writes go
// through btree cache-wraps, so savepoints compose for free.
func MemStore() CacheableKVStore {
	return NewBTreeCacheWrap(EmptyKVStore{}, nil)
}

// EmptyKVStore is a read-only store that contains nothing and rejects
// writes. It terminates the cache-wrap chain of a MemStore.
type EmptyKVStore struct{}

var _ KVStore = EmptyKVStore{}

func (EmptyKVStore) Get(key []byte) ([]byte, error) { return nil, nil }

func (EmptyKVStore) Has(key []byte) (bool, error) { return false, nil }

func (EmptyKVStore) Set(key, value []byte) error {
	return errors.Wrap(errors.ErrDatabase, "cannot write to an empty store")
}

func (EmptyKVStore) Delete(key []byte) error {
	return errors.Wrap(errors.ErrDatabase, "cannot write to an empty store")
}

func (EmptyKVStore) Iterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}

func (EmptyKVStore) ReverseIterator(start, end []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}

// BTreeCacheWrap places a btree cache over a KVStore. Reads consult
// the btree first and fall back to the backing store. Write flushes
// all cached modifications into the backing store, Discard drops them.
type BTreeCacheWrap struct {
	bt   *btree.BTree
	free *btree.FreeList
	back ReadOnlyKVStore
	// parent is non-nil when the backing store accepts writes. A
	// MemStore bottom layer keeps all data in the btree instead.
	parent KVStore
}

var _ KVCacheWrap = BTreeCacheWrap{}

// NewBTreeCacheWrap initializes a btree to cache around this kv store.
// When the backing store is an EmptyKVStore the wrap becomes the store
// of record and Write is a noop.
//
// free may be nil, but set to an existing list to reuse it for memory
// savings.
func NewBTreeCacheWrap(kv KVStore, free *btree.FreeList) BTreeCacheWrap {
	if free == nil {
		free = btree.NewFreeList(DefaultFreeListSize)
	}
	var parent KVStore
	if _, empty := kv.(EmptyKVStore); !empty {
		parent = kv
	}
	return BTreeCacheWrap{
		bt:     btree.NewWithFreeList(2, free),
		free:   free,
		back:   kv,
		parent: parent,
	}
}

// CacheWrap layers another btree on top of this one.
func (b BTreeCacheWrap) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b, b.free)
}

// Write syncs all cached modifications with the backing store and
// then cleans up.
func (b BTreeCacheWrap) Write() error {
	if b.parent == nil {
		// Store of record, nothing to flush into.
		return nil
	}
	var err error
	b.bt.Ascend(func(item btree.Item) bool {
		switch t := item.(type) {
		case setItem:
			err = b.parent.Set(t.key, t.value)
		case deletedItem:
			err = b.parent.Delete(t.key)
		default:
			err = errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", item)
		}
		return err == nil
	})
	if err != nil {
		return errors.Wrap(err, "writing savepoint")
	}
	b.discard()
	return nil
}

// Discard invalidates this CacheWrap and releases all data.
func (b BTreeCacheWrap) Discard() {
	if b.parent == nil {
		// Store of record keeps its data.
		return
	}
	b.discard()
}

func (b BTreeCacheWrap) discard() {
	for stop := false; !stop; {
		rem := b.bt.DeleteMin()
		stop = rem == nil
	}
}

// Set writes to the btree.
func (b BTreeCacheWrap) Set(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	b.bt.ReplaceOrInsert(newSetItem(cp(key), v))
	return nil
}

// Delete marks the key as deleted in the btree.
func (b BTreeCacheWrap) Delete(key []byte) error {
	if b.parent == nil {
		b.bt.Delete(bkey{key})
		return nil
	}
	b.bt.ReplaceOrInsert(newDeletedItem(cp(key)))
	return nil
}

// Get reads from the btree if there, else the backing store.
func (b BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	res := b.bt.Get(bkey{key})
	if res != nil {
		switch t := res.(type) {
		case setItem:
			return t.value, nil
		case deletedItem:
			return nil, nil
		default:
			return nil, errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", res)
		}
	}
	return b.back.Get(key)
}

// Has reads from the btree if there, else the backing store.
func (b BTreeCacheWrap) Has(key []byte) (bool, error) {
	res := b.bt.Get(bkey{key})
	if res != nil {
		switch res.(type) {
		case setItem:
			return true, nil
		case deletedItem:
			return false, nil
		default:
			return false, errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", res)
		}
	}
	return b.back.Has(key)
}

// Iterator over a domain of keys in ascending order. Combines results
// from the btree and the backing store into one stable snapshot.
func (b BTreeCacheWrap) Iterator(start, end []byte) (Iterator, error) {
	models, err := b.snapshot(start, end)
	if err != nil {
		return nil, err
	}
	return NewSliceIterator(models), nil
}

// ReverseIterator over a domain of keys in descending order.
func (b BTreeCacheWrap) ReverseIterator(start, end []byte) (Iterator, error) {
	models, err := b.snapshot(start, end)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}
	return NewSliceIterator(models), nil
}

// snapshot merges the backing store view with the local btree overlay
// for the given key range, in ascending key order.
func (b BTreeCacheWrap) snapshot(start, end []byte) ([]Model, error) {
	merged := make(map[string][]byte)
	var order []string

	it, err := b.back.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer it.Release()
	for {
		key, value, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, ok := merged[string(key)]; !ok {
			order = append(order, string(key))
		}
		merged[string(key)] = value
	}

	visit := func(item btree.Item) bool {
		switch t := item.(type) {
		case setItem:
			if _, ok := merged[string(t.key)]; !ok {
				order = append(order, string(t.key))
			}
			merged[string(t.key)] = t.value
		case deletedItem:
			delete(merged, string(t.key))
		}
		return true
	}
	if start == nil && end == nil {
		b.bt.Ascend(visit)
	} else if start == nil {
		b.bt.AscendLessThan(bkey{end}, visit)
	} else if end == nil {
		b.bt.AscendGreaterOrEqual(bkey{start}, visit)
	} else {
		b.bt.AscendRange(bkey{start}, bkey{end}, visit)
	}

	models := make([]Model, 0, len(merged))
	for _, key := range order {
		value, ok := merged[string(key)]
		if !ok {
			continue
		}
		models = append(models, Model{Key: []byte(key), Value: value})
	}
	sortModels(models)
	return models, nil
}

func sortModels(models []Model) {
	// Insertion sort: result sets are small and often mostly sorted.
	for i := 1; i < len(models); i++ {
		for j := i; j > 0 && bytes.Compare(models[j].Key, models[j-1].Key) < 0; j-- {
			models[j], models[j-1] = models[j-1], models[j]
		}
	}
}

func cp(raw []byte) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

// We enforce all data in our btree implements keyer so we can compare
// nicely.
type keyer interface {
	Key() []byte
}

// bkey implements keyer and btree.Item and may be used for queries or
// embedded in data to store.
type bkey struct {
	key []byte
}

var _ keyer = bkey{}
var _ btree.Item = bkey{}

func (k bkey) Key() []byte {
	return k.key
}

// Less returns true iff second argument is greater than the first.
//
// Panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

type deletedItem struct {
	bkey
}

func newDeletedItem(key []byte) deletedItem {
	return deletedItem{bkey{key}}
}

type setItem struct {
	bkey
	value []byte
}

func newSetItem(key, value []byte) setItem {
	return setItem{bkey{key}, value}
}
