package sheets

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Google Sheets allows 60 read requests per minute per user; stay
	// comfortably under it.
	windowLimit    = 50
	windowDuration = time.Minute
	minSpacing     = 1200 * time.Millisecond
)

// apiLimiter enforces both a minimum spacing between calls and a sliding
// one-minute request window.
type apiLimiter struct {
	limiter *rate.Limiter
	limit   int

	mu    sync.Mutex
	times []time.Time
}

func newAPILimiter() *apiLimiter {
	return &apiLimiter{
		limiter: rate.NewLimiter(rate.Every(minSpacing), 1),
		limit:   windowLimit,
	}
}

// wait blocks until a request may proceed, or returns the context error.
func (l *apiLimiter) wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	now := time.Now()
	cutoff := now.Add(-windowDuration)
	kept := l.times[:0]
	for _, t := range l.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.times = kept

	if len(l.times) >= l.limit {
		sleep := windowDuration - now.Sub(l.times[0])
		l.mu.Unlock()
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
		l.mu.Lock()
		now = time.Now()
	}
	l.times = append(l.times, now)
	l.mu.Unlock()
	return nil
}
