package relaypool

import (
	"sync"
	"time"
)

// Capabilities is the subset of a relay's NIP-11 information document the
// pool acts on.
type Capabilities struct {
	Name             string `json:"name,omitempty"`
	Software         string `json:"software,omitempty"`
	MaxSubscriptions int    `json:"max_subscriptions,omitempty"`
	MaxFilters       int    `json:"max_filters,omitempty"`
	MaxLimit         int    `json:"max_limit,omitempty"`
	RequireAuth      bool   `json:"require_auth"`
	SupportedNIPs    []int  `json:"supported_nips,omitempty"`
}

// Health is the rolling health record of one relay.
type Health struct {
	LastSuccess  time.Time `json:"last_success"`
	FailureCount int       `json:"failure_count"`
	EMALatencyMs float64   `json:"ema_latency_ms"`
}

// Config is the volatile per-relay runtime record: rate limit parameters,
// discovered capabilities and health. It is created on first contact and
// never persisted.
type Config struct {
	URL string
	// Seed relays are selectable before their first successful interaction;
	// discovered relays join the query pool only after one succeeds.
	Seed bool

	MaxEventsPerSecond int
	BurstSize          int
	Cooldown           time.Duration
	MaxFilterSize      int

	mx     sync.Mutex
	caps   Capabilities
	health Health
	window []time.Time
}

// Snapshot returns copies of the relay's capabilities and health.
func (rc *Config) Snapshot() (caps Capabilities, health Health) {
	rc.mx.Lock()
	defer rc.mx.Unlock()
	return rc.caps, rc.health
}

// score is the composite health score used by SelectRelays; lower is better.
func (rc *Config) score() float64 {
	rc.mx.Lock()
	defer rc.mx.Unlock()
	return float64(rc.health.FailureCount)*1000 + rc.health.EMALatencyMs
}

// onSuccess folds a request latency into the EMA and clears the failure
// streak.
func (rc *Config) onSuccess(latency time.Duration) {
	rc.mx.Lock()
	defer rc.mx.Unlock()
	ms := float64(latency.Milliseconds())
	if rc.health.EMALatencyMs == 0 {
		rc.health.EMALatencyMs = ms
	} else {
		rc.health.EMALatencyMs = 0.9*rc.health.EMALatencyMs + 0.1*ms
	}
	rc.health.FailureCount = 0
	rc.health.LastSuccess = time.Now()
}

// onFailure increments the failure streak.
func (rc *Config) onFailure() {
	rc.mx.Lock()
	defer rc.mx.Unlock()
	rc.health.FailureCount++
}

// backoff returns how long the next attempt must wait: zero until the streak
// exceeds three failures, then cooldown·2^(failures−3) capped at one minute.
func (rc *Config) backoff() time.Duration {
	rc.mx.Lock()
	defer rc.mx.Unlock()
	if rc.health.FailureCount <= 3 {
		return 0
	}
	d := rc.Cooldown
	for i := 3; i < rc.health.FailureCount && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

const maxBackoff = 60 * time.Second
