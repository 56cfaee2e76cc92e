// Package gconf provides a toolset for managing an extension
// configuration.
//
// Each extension owns a single configuration entity, stored under a
// deterministic key. Changing the configuration happens through a
// message handled by UpdateConfigurationHandler, authorized by the
// owner address declared in the configuration itself.
package gconf

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
)

// Store is the minimal interface to write a configuration.
type Store interface {
	Get([]byte) ([]byte, error)
	Set([]byte, []byte) error
}

// ValidMarshaler is implemented by configuration entities.
type ValidMarshaler interface {
	drip.Marshaller
	Validate() error
}

// Save persists the configuration of the given package in the
// database. The configuration is validated before saving.
func Save(db Store, pkg string, src ValidMarshaler) error {
	if err := src.Validate(); err != nil {
		return errors.Wrap(err, "configuration is invalid")
	}
	raw, err := src.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot marshal configuration")
	}
	return db.Set(key(pkg), raw)
}

// Load copies the configuration of the given package from the
// database into dst. ErrNotFound is returned when no configuration
// was ever saved.
func Load(db drip.ReadOnlyKVStore, pkg string, dst drip.Persistent) error {
	raw, err := db.Get(key(pkg))
	if err != nil {
		return errors.Wrap(err, "cannot load configuration")
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "no %q configuration", pkg)
	}
	return dst.Unmarshal(raw)
}

func key(pkg string) []byte {
	return []byte("_c:" + pkg)
}
