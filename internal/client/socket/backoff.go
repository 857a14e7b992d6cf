package socket

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes reconnect delays: Base*Factor^attempt, capped at Max, then
// spread by ±Jitter (0.5 means anywhere in [d/2, 3d/2)).
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64

	// rand returns a value in [0,1). Tests replace it.
	rand func() float64
}

func DefaultBackoff() Backoff {
	return Backoff{
		Base:   500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: 0.5,
	}
}

func (b Backoff) withDefaults() Backoff {
	def := DefaultBackoff()
	if b.Base <= 0 {
		b.Base = def.Base
	}
	if b.Max <= 0 {
		b.Max = def.Max
	}
	if b.Factor < 1 {
		b.Factor = def.Factor
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		b.Jitter = def.Jitter
	}
	return b
}

// Delay returns the wait before reconnect attempt number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.withDefaults()
	if attempt < 0 {
		attempt = 0
	}

	d := float64(b.Base) * math.Pow(b.Factor, float64(attempt))
	if d > float64(b.Max) || math.IsInf(d, 0) {
		d = float64(b.Max)
	}

	r := rand.Float64
	if b.rand != nil {
		r = b.rand
	}
	d *= 1 + b.Jitter*(2*r()-1)

	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}
