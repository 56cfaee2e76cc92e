package driptest

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/drip-pay/drip"
)

// NewCondition returns a mock condition. Each call returns a
// different value.
func NewCondition() drip.Condition {
	condCnt++
	data := fmt.Sprint("random-data-", condCnt)
	return drip.NewCondition("mock", "cond", []byte(data))
}

var condCnt int

// SequenceID returns an ID encoded the way sequence generated
// identifiers are.
func SequenceID(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// Tx is a mock drip.Tx implementation, wrapping a single message.
type Tx struct {
	Msg drip.Msg
	// Err if set is returned by any method call.
	Err error
}

var _ drip.Tx = (*Tx)(nil)

func (tx *Tx) GetMsg() (drip.Msg, error) {
	if tx.Err != nil {
		return nil, tx.Err
	}
	return tx.Msg, nil
}

// CtxWithTime returns a context with the operation time set, counting
// from an arbitrary but fixed epoch.
func CtxWithTime(ctx drip.Context, t drip.UnixTime) drip.Context {
	return drip.WithBlockTime(ctx, time.Unix(int64(t), 0))
}
