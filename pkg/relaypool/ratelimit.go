package relaypool

import (
	"time"

	"beacon.dev/pkg/metrics"
	"beacon.dev/pkg/utils/context"
)

const windowSpan = time.Second

// admit blocks until the relay's rate limit allows one more request, then
// records the request timestamp. The sliding window holds timestamps from the
// last second; if it already holds BurstSize entries the cooldown is slept,
// otherwise if it holds MaxEventsPerSecond entries the call sleeps until the
// oldest entry leaves the window. Sleeps honor ctx and report
// context.Canceled when interrupted; the sleep itself is not an error.
func (rc *Config) admit(ctx context.T) (slept time.Duration, err error) {
	for {
		rc.mx.Lock()
		now := time.Now()
		rc.pruneLocked(now)
		var wait time.Duration
		switch {
		case len(rc.window) >= rc.BurstSize:
			wait = rc.Cooldown
		case len(rc.window) >= rc.MaxEventsPerSecond:
			wait = windowSpan - now.Sub(rc.window[0])
		}
		if wait <= 0 {
			rc.window = append(rc.window, now)
			rc.mx.Unlock()
			return
		}
		rc.mx.Unlock()
		metrics.RateLimitSleeps.Inc()
		if err = sleep(ctx, wait); err != nil {
			return
		}
		slept += wait
	}
}

// pruneLocked drops window entries older than one second. Callers hold mx.
func (rc *Config) pruneLocked(now time.Time) {
	cutoff := now.Add(-windowSpan)
	i := 0
	for i < len(rc.window) && !rc.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rc.window = rc.window[i:]
	}
}

// windowLen returns the number of requests in the current 1-second window.
func (rc *Config) windowLen() int {
	rc.mx.Lock()
	defer rc.mx.Unlock()
	rc.pruneLocked(time.Now())
	return len(rc.window)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.T, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
