package relaypool

import (
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/sync/errgroup"

	"beacon.dev/pkg/metrics"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// Fetch runs the filter against each relay, enforcing the per-relay rate
// limit and backoff before every request, and returns the union of results
// deduplicated by event id. Individual relay failures are absorbed; an error
// is returned only when ctx dies.
func (p *Pool) Fetch(
	ctx context.T, relays []string, f nostr.Filter, batchSize int,
) (events []*nostr.Event, err error) {
	seen := make(map[string]struct{})
	var mx sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, url := range relays {
		g.Go(func() error {
			evs, ferr := p.fetchOne(gctx, url, f, batchSize)
			if ferr != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.D.F("fetch from %s failed: %v", url, ferr)
				return nil
			}
			mx.Lock()
			for _, ev := range evs {
				if _, dup := seen[ev.ID]; dup {
					continue
				}
				seen[ev.ID] = struct{}{}
				events = append(events, ev)
			}
			mx.Unlock()
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return events, nil
}

// fetchOne issues a single filtered request to one relay, capped at
// min(batchSize, burst_size) and the relay's advertised limits.
func (p *Pool) fetchOne(
	ctx context.T, url string, f nostr.Filter, batchSize int,
) (events []*nostr.Event, err error) {
	rc, _, rerr := p.Register(url)
	if rerr != nil {
		return nil, rerr
	}
	if wait := rc.backoff(); wait > 0 {
		if err = sleep(ctx, wait); err != nil {
			return
		}
	}
	if _, err = rc.admit(ctx); err != nil {
		return
	}
	limit := batchSize
	if rc.BurstSize > 0 && rc.BurstSize < limit {
		limit = rc.BurstSize
	}
	if rc.MaxFilterSize > 0 && rc.MaxFilterSize < limit {
		limit = rc.MaxFilterSize
	}
	caps, _ := rc.Snapshot()
	if caps.MaxLimit > 0 && caps.MaxLimit < limit {
		limit = caps.MaxLimit
	}
	f.Limit = limit

	fctx, cancel := context.Timeout(ctx, p.cfg.RelayFetchTimeout)
	defer cancel()
	start := time.Now()
	r, cerr := p.conn(fctx, rc.URL)
	if cerr != nil {
		rc.onFailure()
		metrics.RelayFetches.WithLabelValues("connect_error").Inc()
		return nil, cerr
	}
	events, err = r.QuerySync(fctx, f)
	if err != nil {
		rc.onFailure()
		p.dropConn(rc.URL)
		metrics.RelayFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	rc.onSuccess(time.Since(start))
	metrics.RelayFetches.WithLabelValues("ok").Inc()
	return events, nil
}
