package worker

import (
	"math/rand/v2"
	"time"
)

// jitterFraction spreads retries so items failing together do not come due
// together.
const jitterFraction = 0.2

// NextDelay computes the retry delay after a failed attempt: the base delay
// doubled per prior attempt, with +/-20% jitter, never exceeding max. attempt
// is the number of attempts already consumed, so the first retry waits
// roughly the base delay.
func NextDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max > 0 && max < base {
		max = base
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			delay = max
			break
		}
	}
	if max > 0 && delay > max {
		delay = max
	}

	spread := 1 - jitterFraction + rand.Float64()*2*jitterFraction
	jittered := time.Duration(float64(delay) * spread)
	if max > 0 && jittered > max {
		jittered = max
	}
	return jittered
}
