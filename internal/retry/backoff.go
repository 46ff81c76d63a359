package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/exp/constraints"
)

// Backoff decides how long to wait before retry number attempt and whether
// the attempt budget is exhausted.
type Backoff interface {
	Delay(attempt uint) (time.Duration, bool)
}

type noRetry struct{}

// NoRetry never retries.
var NoRetry Backoff = noRetry{}

func (noRetry) Delay(uint) (time.Duration, bool) {
	return 0, true
}

// Jitter returns a random duration in [0, n).
type Jitter func(n int64) int64

// Exponential doubles Base on every attempt up to Max, then applies Jitter.
type Exponential struct {
	Base     time.Duration
	Max      time.Duration
	Attempts uint
	Jitter   Jitter
}

func (e *Exponential) Delay(attempt uint) (time.Duration, bool) {
	if attempt >= e.Attempts {
		return 0, true
	}

	ceiling := int64(e.Max)
	if attempt < 63 && int64(e.Base) <= math.MaxInt64>>attempt {
		ceiling = lesser(int64(e.Base)<<attempt, ceiling)
	}
	if ceiling <= 0 {
		return 0, false
	}
	return time.Duration(e.jitter()(ceiling)), false
}

func (e *Exponential) jitter() Jitter {
	if e.Jitter == nil {
		return rand.Int64N
	}
	return e.Jitter
}

func lesser[T constraints.Ordered](l T, r T) T {
	if l > r {
		return r
	}
	return l
}
