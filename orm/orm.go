/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets. * Easily use
complex data types. * Provide secondary indexes. * Provide sequences
for automatic id allocation.
*/
package orm

import (
	"regexp"

	"github.com/drip-pay/drip"
)

// Model is implemented by any entity that can be stored in a bucket.
type Model interface {
	drip.Persistent
	Validate() error
}

// Indexer calculates the secondary index key for a given model.
type Indexer func(Model) ([]byte, error)

// MultiKeyIndexer calculates the secondary index keys for a given
// model. A model may be found under any of the returned keys.
type MultiKeyIndexer func(Model) ([][]byte, error)

// isBucketName ensures bucket names are [a-z_]{3,10} so that our
// prefix algorithm cannot collide.
var isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString
