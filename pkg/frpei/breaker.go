package frpei

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/utils/context"
)

// ProviderMetrics is the health snapshot of one provider.
type ProviderMetrics struct {
	Successes     int64   `json:"successes"`
	Failures      int64   `json:"failures"`
	Timeouts      int64   `json:"timeouts"`
	LastError     string  `json:"lastError,omitempty"`
	LastLatencyMs float64 `json:"lastLatencyMs"`
	EMALatencyMs  float64 `json:"emaLatencyMs"`
	State         string  `json:"state"`
}

// breaker pairs a gobreaker circuit with the provider metrics the status
// endpoint reports.
type breaker struct {
	cb *gobreaker.CircuitBreaker

	mx sync.Mutex
	m  ProviderMetrics
}

func newBreaker(name string, cfg *config.C) *breaker {
	failures := uint32(cfg.BreakerFailures)
	return &breaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: uint32(cfg.BreakerSuccesses),
			Timeout:     cfg.BreakerReset,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
		}),
	}
}

// execute runs one provider call through the circuit and folds the outcome
// into the metrics. timeout marks failures caused by a dead deadline.
func (b *breaker) execute(
	fn func() ([]*Candidate, error),
) (cs []*Candidate, err error) {
	start := time.Now()
	var out any
	out, err = b.cb.Execute(func() (any, error) { return fn() })
	b.observe(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	cs, _ = out.([]*Candidate)
	return
}

func (b *breaker) observe(latency time.Duration, err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	ms := float64(latency.Milliseconds())
	b.m.LastLatencyMs = ms
	if b.m.EMALatencyMs == 0 {
		b.m.EMALatencyMs = ms
	} else {
		b.m.EMALatencyMs = 0.9*b.m.EMALatencyMs + 0.1*ms
	}
	if err != nil {
		b.m.Failures++
		b.m.LastError = err.Error()
		if isTimeout(err) {
			b.m.Timeouts++
		}
		return
	}
	b.m.Successes++
}

// snapshot returns the metrics with the live circuit state filled in.
func (b *breaker) snapshot() ProviderMetrics {
	b.mx.Lock()
	defer b.mx.Unlock()
	m := b.m
	m.State = b.cb.State().String()
	return m
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	var te timeouter
	if errors.As(err, &te) && te.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
