package orm

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
)

// ModelBucket is a bucket implementation that operates on models
// rather than raw bytes.
type ModelBucket interface {
	// One query the database for a single model instance. Lookup is
	// done by the primary index key. Result is loaded into given
	// destination model.
	// This method returns ErrNotFound if the entity does not exist in
	// the database.
	One(db drip.ReadOnlyKVStore, key []byte, dest Model) error

	// ByIndex returns all objects that secondary index with given name
	// and given key points to. Main index keys of all matching entities
	// are returned as well.
	//
	// destination must be a pointer to a slice of models.
	ByIndex(db drip.ReadOnlyKVStore, indexName string, key []byte, destination ModelSlicePtr) ([][]byte, error)

	// ByPrefix returns all objects with the primary key starting with
	// given prefix, ordered by key. Keys of all matching entities are
	// returned as well.
	ByPrefix(db drip.ReadOnlyKVStore, prefix []byte, destination ModelSlicePtr) ([][]byte, error)

	// Put saves given model in the database. Before inserting into
	// database, model is validated using its Validate method. If the
	// key is nil or zero length then a sequence generator is used to
	// create a unique key value.
	// Using a key that already exists in the database causes the value
	// to be overwritten.
	Put(db drip.KVStore, key []byte, m Model) ([]byte, error)

	// Delete removes an entity with given primary key from the
	// database. It returns ErrNotFound if an entity with given key does
	// not exist.
	Delete(db drip.KVStore, key []byte) error

	// Has returns nil if an entity with given primary key value exists.
	// It returns ErrNotFound if no entity can be found.
	Has(db drip.ReadOnlyKVStore, key []byte) error
}

// ModelSlicePtr represents a pointer to a slice of models. Used in
// query methods to return a list of results.
//
//	var result []MyModel
//	bucket.ByIndex(db, "name", key, &result)
type ModelSlicePtr interface{}

// ModelBucketOption is implemented by any function that can configure
// ModelBucket during creation.
type ModelBucketOption func(mb *modelBucket)

// WithIDSequence configures the bucket to use given sequence instance
// for generating an ID when Put is called with a nil key.
func WithIDSequence(s Sequence) ModelBucketOption {
	return func(mb *modelBucket) {
		mb.idSeq = &s
	}
}

// WithIndex configures the bucket to maintain a secondary index with
// given name, computed by given indexer.
func WithIndex(name string, indexer Indexer, unique bool) ModelBucketOption {
	multi := func(m Model) ([][]byte, error) {
		key, err := indexer(m)
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, nil
		}
		return [][]byte{key}, nil
	}
	return WithMultiKeyIndex(name, multi, unique)
}

// WithMultiKeyIndex is like WithIndex but a single model may be
// indexed under many keys at once.
func WithMultiKeyIndex(name string, indexer MultiKeyIndexer, unique bool) ModelBucketOption {
	return func(mb *modelBucket) {
		mb.indexes = append(mb.indexes, namedIndex{
			name:    name,
			indexer: indexer,
			unique:  unique,
		})
	}
}

type namedIndex struct {
	name    string
	indexer MultiKeyIndexer
	unique  bool
}

// NewModelBucket returns a ModelBucket instance. Provided model is the
// type of an entity that this bucket is maintaining.
func NewModelBucket(name string, m Model, opts ...ModelBucketOption) ModelBucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("illegal bucket name: %q", name))
	}
	tp := reflect.TypeOf(m)
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
	}
	mb := &modelBucket{
		name:  name,
		model: tp,
	}
	for _, opt := range opts {
		opt(mb)
	}
	return mb
}

type modelBucket struct {
	name    string
	model   reflect.Type
	idSeq   *Sequence
	indexes []namedIndex
}

var _ ModelBucket = (*modelBucket)(nil)

func (b *modelBucket) dbKey(key []byte) []byte {
	return append([]byte(b.name+":"), key...)
}

func (b *modelBucket) indexKey(index string, key []byte) []byte {
	return append([]byte("_i."+b.name+"_"+index+":"), key...)
}

func (b *modelBucket) One(db drip.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(b.dbKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s not in bucket %s", key, b.name)
	}
	if err := b.checkType(dest); err != nil {
		return err
	}
	return dest.Unmarshal(raw)
}

func (b *modelBucket) ByIndex(db drip.ReadOnlyKVStore, indexName string, key []byte, destination ModelSlicePtr) ([][]byte, error) {
	var found bool
	for _, idx := range b.indexes {
		if idx.name == indexName {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Wrapf(errors.ErrDatabase, "no index with name %q", indexName)
	}

	raw, err := db.Get(b.indexKey(indexName, key))
	if err != nil {
		return nil, err
	}
	var refs MultiRef
	if raw != nil {
		if err := refs.Unmarshal(raw); err != nil {
			return nil, errors.Wrap(err, "cannot unmarshal index")
		}
	}

	appendModel, err := slicePtrFiller(destination, b.model)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs.Refs {
		value, err := db.Get(b.dbKey(ref))
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, errors.Wrapf(errors.ErrDatabase, "dangling index reference: %x", ref)
		}
		if err := appendModel(value); err != nil {
			return nil, err
		}
	}
	return refs.Refs, nil
}

func (b *modelBucket) ByPrefix(db drip.ReadOnlyKVStore, prefix []byte, destination ModelSlicePtr) ([][]byte, error) {
	appendModel, err := slicePtrFiller(destination, b.model)
	if err != nil {
		return nil, err
	}
	start, end := prefixRange(b.dbKey(prefix))
	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	strip := len(b.name) + 1
	var keys [][]byte
	for {
		key, value, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}
		if err := appendModel(value); err != nil {
			return nil, err
		}
		keys = append(keys, key[strip:])
	}
}

func (b *modelBucket) Put(db drip.KVStore, key []byte, m Model) ([]byte, error) {
	if err := b.checkType(m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model")
	}

	if len(key) == 0 {
		if b.idSeq == nil {
			return nil, errors.Wrap(errors.ErrInput, "empty model key and no sequence configured")
		}
		var err error
		key, err = b.idSeq.NextVal(db)
		if err != nil {
			return nil, errors.Wrap(err, "ID sequence")
		}
	}

	// Index maintenance needs the state before the write.
	var old Model
	if len(b.indexes) > 0 {
		rawOld, err := db.Get(b.dbKey(key))
		if err != nil {
			return nil, err
		}
		if rawOld != nil {
			old = reflect.New(b.model).Interface().(Model)
			if err := old.Unmarshal(rawOld); err != nil {
				return nil, errors.Wrap(err, "cannot unmarshal previous state")
			}
		}
	}

	raw, err := m.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal model")
	}
	if err := db.Set(b.dbKey(key), raw); err != nil {
		return nil, err
	}

	for _, idx := range b.indexes {
		if err := b.reindex(db, idx, key, old, m); err != nil {
			return nil, errors.Wrapf(err, "index %q", idx.name)
		}
	}
	return key, nil
}

func (b *modelBucket) Delete(db drip.KVStore, key []byte) error {
	raw, err := db.Get(b.dbKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s not in bucket %s", key, b.name)
	}

	if len(b.indexes) > 0 {
		old := reflect.New(b.model).Interface().(Model)
		if err := old.Unmarshal(raw); err != nil {
			return errors.Wrap(err, "cannot unmarshal previous state")
		}
		for _, idx := range b.indexes {
			if err := b.reindex(db, idx, key, old, nil); err != nil {
				return errors.Wrapf(err, "index %q", idx.name)
			}
		}
	}
	return db.Delete(b.dbKey(key))
}

func (b *modelBucket) Has(db drip.ReadOnlyKVStore, key []byte) error {
	ok, err := db.Has(b.dbKey(key))
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "%s not in bucket %s", key, b.name)
	}
	return nil
}

// reindex moves the primary key reference between index entries so the
// secondary index reflects the transition from old to new model state.
// Either model may be nil for insert and delete respectively.
func (b *modelBucket) reindex(db drip.KVStore, idx namedIndex, key []byte, old, new Model) error {
	var oldKeys, newKeys [][]byte
	var err error
	if old != nil {
		if oldKeys, err = idx.indexer(old); err != nil {
			return errors.Wrap(err, "cannot compute old index keys")
		}
	}
	if new != nil {
		if newKeys, err = idx.indexer(new); err != nil {
			return errors.Wrap(err, "cannot compute new index keys")
		}
	}

	for _, ik := range oldKeys {
		if containsKey(newKeys, ik) {
			continue
		}
		if err := b.removeRef(db, idx, ik, key); err != nil {
			return err
		}
	}
	for _, ik := range newKeys {
		if containsKey(oldKeys, ik) {
			continue
		}
		if err := b.addRef(db, idx, ik, key); err != nil {
			return err
		}
	}
	return nil
}

func (b *modelBucket) addRef(db drip.KVStore, idx namedIndex, indexKey, key []byte) error {
	dbk := b.indexKey(idx.name, indexKey)
	raw, err := db.Get(dbk)
	if err != nil {
		return err
	}
	var refs MultiRef
	if raw != nil {
		if err := refs.Unmarshal(raw); err != nil {
			return errors.Wrap(err, "cannot unmarshal index")
		}
	}
	if idx.unique && len(refs.Refs) > 0 {
		return errors.Wrapf(errors.ErrDuplicate, "unique index key %x already in use", indexKey)
	}
	if err := refs.Add(key); err != nil {
		return err
	}
	raw, err = refs.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot marshal index")
	}
	return db.Set(dbk, raw)
}

func (b *modelBucket) removeRef(db drip.KVStore, idx namedIndex, indexKey, key []byte) error {
	dbk := b.indexKey(idx.name, indexKey)
	raw, err := db.Get(dbk)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	var refs MultiRef
	if err := refs.Unmarshal(raw); err != nil {
		return errors.Wrap(err, "cannot unmarshal index")
	}
	if err := refs.Remove(key); err != nil {
		return err
	}
	if len(refs.Refs) == 0 {
		return db.Delete(dbk)
	}
	raw, err = refs.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot marshal index")
	}
	return db.Set(dbk, raw)
}

func (b *modelBucket) checkType(m Model) error {
	tp := reflect.TypeOf(m)
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
	}
	if tp != b.model {
		return errors.Wrapf(errors.ErrType, "cannot use %T with %s bucket", m, b.name)
	}
	return nil
}

func containsKey(keys [][]byte, key []byte) bool {
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}

// slicePtrFiller validates that destination is a pointer to a slice of
// models of the bucket type and returns a function that unmarshals a
// raw value and appends it to the slice. Both []MyModel and []*MyModel
// destinations are supported.
func slicePtrFiller(destination ModelSlicePtr, model reflect.Type) (func([]byte) error, error) {
	dest := reflect.ValueOf(destination)
	if dest.Kind() != reflect.Ptr {
		return nil, errors.Wrap(errors.ErrType, "destination must be a pointer to a slice")
	}
	slice := dest.Elem()
	if slice.Kind() != reflect.Slice {
		return nil, errors.Wrap(errors.ErrType, "destination must be a pointer to a slice")
	}

	elemType := slice.Type().Elem()
	sliceOfPointers := elemType.Kind() == reflect.Ptr
	if sliceOfPointers {
		elemType = elemType.Elem()
	}
	if elemType != model {
		return nil, errors.Wrapf(errors.ErrType, "this bucket does not operate on %s", elemType)
	}

	return func(raw []byte) error {
		obj := reflect.New(elemType)
		m := obj.Interface().(Model)
		if err := m.Unmarshal(raw); err != nil {
			return errors.Wrap(err, "cannot unmarshal into destination")
		}
		if sliceOfPointers {
			slice.Set(reflect.Append(slice, obj))
		} else {
			slice.Set(reflect.Append(slice, obj.Elem()))
		}
		return nil
	}, nil
}

// prefixRange turns a prefix into (start, end) to create a range.
// It assumes keys are in lexicographical ordering.
func prefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}

	// Find the last byte that can be incremented.
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return prefix, end[:i+1]
		}
	}
	// Prefix is all 0xff, "up to infinity".
	return prefix, nil
}
