package apiclient

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out the requests of a multi-symbol loop so a provider's
// per-minute ceiling is never hit by a single batch.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one request per interval. A zero interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may start or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
