package fee

import (
	"github.com/tendermint/go-amino"
)

var codec = amino.NewCodec()
