package daemon

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes the exponentially increasing, jittered sleep applied
// after a failed iteration. Grounded line-for-line on
// original_source/daemon.py's Backoff class.
type Backoff struct {
	Base    float64
	Factor  float64
	Cap     float64
	Jitter  float64
	attempt int
}

// NewBackoff constructs a Backoff with the daemon's configured parameters.
func NewBackoff(base, factor, cap, jitter float64) *Backoff {
	return &Backoff{Base: base, Factor: factor, Cap: cap, Jitter: jitter}
}

// Reset clears the attempt counter, called after any successful iteration.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// NextSleep returns the jittered delay for the current attempt and
// increments the attempt counter, mirroring next_sleep()'s
// delay = min(cap, base * factor**attempt) then a uniform +/-jitter.
func (b *Backoff) NextSleep() time.Duration {
	delay := b.Base * math.Pow(b.Factor, float64(b.attempt))
	if delay > b.Cap {
		delay = b.Cap
	}
	b.attempt++

	if b.Jitter > 0 {
		spread := delay * b.Jitter
		delay = delay - spread + rand.Float64()*2*spread
		if delay < 0 {
			delay = 0
		}
	}

	return time.Duration(delay * float64(time.Second))
}
