package subscription

import (
	"github.com/drip-pay/drip"
)

// intervalsToPay returns how many payment intervals a catch-up
// execution settles at once: every interval that became due since the
// scheduled next payment time, capped by what the escrow balance can
// afford.
//
// A subscription due at `next` and executed at `now` owes one payment
// for the interval starting at `next` plus one for every full
// interval between `next` and `now`.
func intervalsToPay(now, next drip.UnixTime, interval drip.UnixDuration, balance, perInterval int64) int64 {
	if now < next || interval <= 0 || perInterval <= 0 {
		return 0
	}
	elapsed := int64(now-next)/int64(interval) + 1
	affordable := balance / perInterval
	if affordable < elapsed {
		return affordable
	}
	return elapsed
}

// advanceSchedule returns the first payment time after `now` when
// moving from `next` in whole interval steps. Used on resume so a
// pause never creates a retroactive backlog.
func advanceSchedule(now, next drip.UnixTime, interval drip.UnixDuration) drip.UnixTime {
	if now < next {
		return next
	}
	steps := int64(now-next)/int64(interval) + 1
	return next + drip.UnixTime(steps*int64(interval))
}
