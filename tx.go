package drip

import (
	"reflect"

	"github.com/drip-pay/drip/errors"
)

// Marshaller is anything that can be represented in binary.
//
// Marshal may validate the data before serializing it and unless you
// previously validated the struct, errors should be expected.
type Marshaller interface {
	Marshal() ([]byte, error)
}

// Persistent supports Marshal and Unmarshal.
//
// This is separated from Marshaller, as this almost always requires a
// pointer, and functions that only need to marshal bytes can use the
// Marshaller interface to access non-pointers.
type Persistent interface {
	Marshaller
	Unmarshal([]byte) error
}

// Msg is a request to make a single state transition. It is just the
// request and must be validated by the handlers. All authentication
// information is in the wrapping Tx.
type Msg interface {
	Persistent

	// Validate returns an error if the message content is not sensible.
	// It cannot verify anything that requires access to the state.
	Validate() error

	// Path returns the routing path of the message. It is used by the
	// router to locate the proper handler. Must be alphanumeric
	// [0-9A-Za-z_/]+
	Path() string
}

// Tx represents the data submitted by a caller. It wraps the actual
// message along with anything middleware needs, such as authentication
// information.
type Tx interface {
	// GetMsg returns the action we wish to communicate.
	GetMsg() (Msg, error)
}

// LoadMsg extracts the message from the transaction, validates it and
// loads it into the destination. The destination must be a pointer to
// the expected message type.
func LoadMsg(tx Tx, destination Msg) error {
	msg, err := tx.GetMsg()
	if err != nil {
		return errors.Wrap(err, "cannot get message")
	}
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}

	dVal := reflect.ValueOf(destination)
	if dVal.Kind() != reflect.Ptr {
		return errors.Wrap(errors.ErrType, "destination must be a pointer")
	}
	mVal := reflect.ValueOf(msg)
	if dVal.Type() != mVal.Type() {
		return errors.Wrapf(errors.ErrMsg, "want %T, got %T", destination, msg)
	}
	dVal.Elem().Set(mVal.Elem())
	return nil
}
