package fee

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
)

// UpdateConfigurationMsg changes the fee engine configuration. Zero
// value fields of the patch keep their current setting.
type UpdateConfigurationMsg struct {
	Patch *Configuration
}

var _ drip.Msg = (*UpdateConfigurationMsg)(nil)

func (UpdateConfigurationMsg) Path() string {
	return "fee/update_configuration"
}

func (m *UpdateConfigurationMsg) Marshal() ([]byte, error) {
	return codec.MarshalBinaryBare(m)
}

func (m *UpdateConfigurationMsg) Unmarshal(raw []byte) error {
	return codec.UnmarshalBinaryBare(raw, m)
}

func (m *UpdateConfigurationMsg) Validate() error {
	if m.Patch == nil {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	if m.Patch.Bps > MaxFeeBps {
		return errors.Wrapf(errors.ErrInput, "fee of %d bps above maximum of %d", m.Patch.Bps, MaxFeeBps)
	}
	return nil
}
