package engine

import (
	"context"
	"math/rand"
	"time"
)

// Pacer is the inter-send spacing policy consulted between consecutive
// successful sends. Wait returns early with the context error when the
// run is cancelled mid-delay.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RandomPacer waits a uniformly random duration in [min, max] to avoid
// bursty send patterns.
type RandomPacer struct {
	min time.Duration
	max time.Duration
	rng *rand.Rand
}

// NewRandomPacer builds a pacer over the given interval. A max below min
// is clamped to min.
func NewRandomPacer(min, max time.Duration) *RandomPacer {
	if max < min {
		max = min
	}
	return &RandomPacer{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *RandomPacer) Wait(ctx context.Context) error {
	d := p.min
	if span := p.max - p.min; span > 0 {
		d += time.Duration(p.rng.Int63n(int64(span) + 1))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoPacer disables inter-send spacing. Used by dry runs and tests.
type NoPacer struct{}

func (NoPacer) Wait(ctx context.Context) error { return ctx.Err() }
