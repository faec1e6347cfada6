package source

import (
	"math"
	"time"
)

// macEpoch is the Core Data reference date.
var macEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// MacTime converts a Mac absolute timestamp. Values wider than 32 bits are
// nanoseconds; anything else is seconds. Zero or non-finite input yields
// the zero time.
func MacTime(v float64) time.Time {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}
	}
	if v > math.MaxUint32 {
		return macEpoch.Add(time.Duration(v))
	}
	return macEpoch.Add(time.Duration(v * float64(time.Second)))
}
