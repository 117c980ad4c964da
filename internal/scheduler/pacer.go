package scheduler

import (
	"context"
	"time"
)

// Pacer keeps loop iterations on a fixed cadence by sleeping the interval
// minus the time the iteration itself took. A slow iteration starts the next
// one immediately instead of drifting further behind.
type Pacer struct {
	interval time.Duration
	nowFn    func() time.Time
	last     time.Time
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval, nowFn: time.Now}
}

// Mark records the start of an iteration.
func (p *Pacer) Mark() {
	p.last = p.nowFn()
}

// Wait sleeps out the remainder of the interval since the last Mark. It
// returns false when the context is canceled while waiting.
func (p *Pacer) Wait(ctx context.Context) bool {
	wait := p.interval
	if !p.last.IsZero() {
		wait -= p.nowFn().Sub(p.last)
	}
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
