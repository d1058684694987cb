package generate

import (
	"math/rand"
	"time"
)

const (
	backoffBase   = time.Second
	backoffCap    = 5 * time.Second
	jitterRange   = 500 * time.Millisecond
	malformedWait = 2 * time.Second
)

// backoffDelay computes the pause before the next attempt: exponential
// base delay capped at 5s, plus random jitter so concurrent callers do
// not retry in lockstep. attempt is the 1-based attempt that just
// failed.
func backoffDelay(attempt int, d decision, rng *rand.Rand) time.Duration {
	delay := backoffBase << (attempt - 1)
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}
	delay += time.Duration(rng.Int63n(int64(jitterRange)))
	if d.extraDelay {
		delay += malformedWait
	}
	return delay
}
