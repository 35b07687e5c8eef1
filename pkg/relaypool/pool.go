// Package relaypool maintains the per-relay runtime state of the crawler: the
// url → Config mapping, NIP-11 capability discovery, token bucket rate
// limiting, adaptive backoff and health-ranked relay selection. The pool is
// process-wide, injected by the host, and volatile across restarts.
package relaypool

import (
	"sort"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/puzpuzpuz/xsync/v3"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
	"beacon.dev/pkg/utils/normalize"
)

// Pool is the relay pool manager. Lifecycle is New(seed relays) → use →
// Close (all sockets).
type Pool struct {
	cfg     *config.C
	configs *xsync.MapOf[string, *Config]
	conns   *xsync.MapOf[string, *nostr.Relay]
}

// New creates an empty pool with the configured per-relay defaults.
func New(cfg *config.C) *Pool {
	return &Pool{
		cfg:     cfg,
		configs: xsync.NewMapOf[string, *Config](),
		conns:   xsync.NewMapOf[string, *nostr.Relay](),
	}
}

// Register normalizes url and creates its Config on first sight. It reports
// whether the relay was new. Unparseable and private-network URLs are
// rejected.
func (p *Pool) Register(url string) (rc *Config, fresh bool, err error) {
	return p.register(url, false)
}

// RegisterSeed registers a relay that is selectable before any successful
// interaction.
func (p *Pool) RegisterSeed(url string) (rc *Config, fresh bool, err error) {
	return p.register(url, true)
}

func (p *Pool) register(url string, seed bool) (rc *Config, fresh bool, err error) {
	var canonical string
	if canonical, err = normalize.URL(url); err != nil {
		return
	}
	rc, loaded := p.configs.LoadOrCompute(
		canonical, func() *Config {
			return &Config{
				URL:                canonical,
				Seed:               seed,
				MaxEventsPerSecond: p.cfg.RelayMaxEventsPerSecond,
				BurstSize:          p.cfg.RelayBurstSize,
				Cooldown:           p.cfg.RelayCooldown,
				MaxFilterSize:      p.cfg.RelayMaxFilterSize,
			}
		},
	)
	return rc, !loaded, nil
}

// Get returns the Config for a normalized relay URL, if registered.
func (p *Pool) Get(url string) (rc *Config, ok bool) {
	return p.configs.Load(url)
}

// Relays returns all registered relay URLs.
func (p *Pool) Relays() (urls []string) {
	p.configs.Range(func(url string, _ *Config) bool {
		urls = append(urls, url)
		return true
	})
	sort.Strings(urls)
	return
}

// SelectRelays ranks the registered relays by composite health score,
// failure_count·1000 + ema_latency_ms ascending, and returns the best k that
// can serve the filter without authentication.
func (p *Pool) SelectRelays(f *nostr.Filter, k int) (urls []string) {
	type ranked struct {
		url   string
		score float64
	}
	var rs []ranked
	p.configs.Range(func(url string, rc *Config) bool {
		caps, health := rc.Snapshot()
		if caps.RequireAuth {
			return true
		}
		// a discovered relay joins the query pool only once something
		// succeeded against it (capability discovery counts)
		if !rc.Seed && health.LastSuccess.IsZero() {
			return true
		}
		rs = append(rs, ranked{url: url, score: rc.score()})
		return true
	})
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].score == rs[j].score {
			return rs[i].url < rs[j].url
		}
		return rs[i].score < rs[j].score
	})
	for i := 0; i < len(rs) && i < k; i++ {
		urls = append(urls, rs[i].url)
	}
	return
}

// conn returns the open connection for url, dialing if needed.
func (p *Pool) conn(ctx context.T, url string) (r *nostr.Relay, err error) {
	if r, _ = p.conns.Load(url); r != nil && r.IsConnected() {
		return
	}
	if r, err = nostr.RelayConnect(ctx, url); err != nil {
		return
	}
	p.conns.Store(url, r)
	return
}

// dropConn closes and forgets a connection after a failure so the next
// attempt redials.
func (p *Pool) dropConn(url string) {
	if r, ok := p.conns.LoadAndDelete(url); ok && r != nil {
		chk.D(r.Close())
	}
}

// Close closes every open relay socket. The pool is unusable afterwards.
func (p *Pool) Close() {
	p.conns.Range(func(url string, r *nostr.Relay) bool {
		chk.D(r.Close())
		p.conns.Delete(url)
		return true
	})
	log.D.F("relay pool closed")
}

// Touch marks a successful out-of-band interaction with a relay, used by
// capability discovery.
func (p *Pool) Touch(url string, latency time.Duration) {
	if rc, ok := p.configs.Load(url); ok {
		rc.onSuccess(latency)
	}
}
