package fee

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/gconf"
)

// Configuration is the fee engine state. There is a single instance
// shared by all extensions that charge fees.
type Configuration struct {
	// Owner is the only address allowed to update this configuration.
	Owner drip.Address
	// Recipient is the account that collects all charged fees.
	Recipient drip.Address
	// Bps is the fee rate in basis points.
	Bps uint32
	// MinimumAmount is the lowest gross amount a recurring payment may
	// be created with.
	MinimumAmount int64
}

var _ gconf.OwnedConfig = (*Configuration)(nil)

func (c *Configuration) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, c)
}

func (c *Configuration) GetOwner() drip.Address {
	return c.Owner
}

func (c *Configuration) Validate() error {
	if err := c.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if err := c.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if c.Bps > MaxFeeBps {
		return errors.Wrapf(errors.ErrInput, "fee of %d bps above maximum of %d", c.Bps, MaxFeeBps)
	}
	if c.MinimumAmount < 0 {
		return errors.Wrap(errors.ErrAmount, "minimum amount must not be negative")
	}
	return nil
}

// LoadConfig returns the current fee configuration. The configuration
// must be initialized before the first use.
func LoadConfig(db drip.ReadOnlyKVStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "fee", &conf); err != nil {
		return nil, errors.Wrap(err, "fee configuration")
	}
	return &conf, nil
}

// SaveConfig persists the fee configuration. Used during the
// initialization of a new deployment.
func SaveConfig(db gconf.Store, conf *Configuration) error {
	return gconf.Save(db, "fee", conf)
}
