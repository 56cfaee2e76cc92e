package store

import "github.com/drip-pay/drip"

// Move references for all storage types into this package for shorter
// names everywhere.

type KVStore = drip.KVStore
type ReadOnlyKVStore = drip.ReadOnlyKVStore
type Iterator = drip.Iterator
type CacheableKVStore = drip.CacheableKVStore
type KVCacheWrap = drip.KVCacheWrap
