package fee

import (
	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/gconf"
	"github.com/drip-pay/drip/x"
)

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r drip.Registry, auth x.Authenticator) {
	r.Handle(&UpdateConfigurationMsg{},
		gconf.NewUpdateConfigurationHandler("fee", &Configuration{}, auth))
}
