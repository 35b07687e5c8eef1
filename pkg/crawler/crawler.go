// Package crawler drives the adaptive relay crawl: a bootstrap pass that
// mines NIP-65 relay lists from the seed relays, a frontier walk that probes
// newly discovered relays, and per-kind backward pagination feeding every
// fetched batch through the ingestion pipeline. Kinds crawl in parallel;
// pages within one kind advance sequentially so the cursor stays coherent.
package crawler

import (
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/crawlstate"
	"beacon.dev/pkg/discovery"
	"beacon.dev/pkg/ingest"
	"beacon.dev/pkg/relaypool"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/errorf"
	"beacon.dev/pkg/utils/log"
)

// Status is the crawl state of one kind.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusPaging Status = "paging"
	StatusDone   Status = "done"
	StatusError  Status = "error"
)

// Crawler owns the crawl loop. It is started once per process via Run.
type Crawler struct {
	cfg    *config.C
	pool   *relaypool.Pool
	disc   *discovery.Discovery
	pipe   *ingest.Pipeline
	st     *crawlstate.Store
	status *xsync.MapOf[int, Status]
}

// New wires the crawler over its collaborators.
func New(
	cfg *config.C, pool *relaypool.Pool, disc *discovery.Discovery,
	pipe *ingest.Pipeline, st *crawlstate.Store,
) *Crawler {
	c := &Crawler{
		cfg:    cfg,
		pool:   pool,
		disc:   disc,
		pipe:   pipe,
		st:     st,
		status: xsync.NewMapOf[int, Status](),
	}
	for _, kind := range cfg.CrawlKinds {
		c.status.Store(kind, StatusIdle)
	}
	return c
}

// Run bootstraps the relay set and then crawls every configured kind in
// parallel. It returns when all kinds finish or ctx dies.
func (c *Crawler) Run(ctx context.T) (err error) {
	if err = c.Bootstrap(ctx); err != nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range c.cfg.CrawlKinds {
		g.Go(func() error {
			if kerr := c.crawlKind(gctx, kind); kerr != nil {
				c.status.Store(kind, StatusError)
				log.E.F("crawl kind %d: %v", kind, kerr)
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}

// Bootstrap registers the seed relays, pulls their NIP-65 relay list events
// and probes every relay discovered that way.
func (c *Crawler) Bootstrap(ctx context.T) (err error) {
	var seeds []string
	for _, raw := range c.cfg.SeedRelays {
		rc, _, rerr := c.pool.RegisterSeed(raw)
		if rerr != nil {
			log.W.F("seed relay %q rejected: %v", raw, rerr)
			continue
		}
		seeds = append(seeds, rc.URL)
	}
	if len(seeds) == 0 {
		return errorf.E("no usable seed relays")
	}
	f := nostr.Filter{Kinds: []int{discovery.KindRelayList}}
	var events []*nostr.Event
	if events, err = c.pool.Fetch(
		ctx, seeds, f, c.cfg.CrawlBatchSize,
	); err != nil {
		return
	}
	log.I.F("bootstrap: %d relay list events from %d seeds",
		len(events), len(seeds))
	for _, ev := range events {
		c.scanForRelays(ev)
	}
	return c.exploreFrontier(ctx)
}

// scanForRelays feeds one event through discovery and registers whatever
// relay URLs fall out.
func (c *Crawler) scanForRelays(ev *nostr.Event) {
	fresh, err := c.disc.ProcessEvent(ev)
	if chk.E(err) {
		return
	}
	for _, url := range fresh {
		if _, _, rerr := c.pool.Register(url); rerr != nil {
			log.T.F("discovered relay %q rejected: %v", url, rerr)
		}
	}
}

// exploreFrontier probes the capability document of every discovered relay
// not yet visited. A relay that fails the probe stays registered but out of
// the query pool until a later interaction succeeds; either way it is marked
// visited so the frontier drains.
func (c *Crawler) exploreFrontier(ctx context.T) (err error) {
	var frontier []string
	if frontier, err = c.disc.Frontier(); chk.E(err) {
		return
	}
	for _, url := range frontier {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, derr := c.pool.Discover(ctx, url); derr != nil {
			log.D.F("relay %s capability probe failed: %v", url, derr)
		}
		if err = c.disc.MarkVisited(url); chk.E(err) {
			return
		}
	}
	return nil
}

// crawlKind paginates one kind backward from its saved cursor, batch by
// batch, until a short batch marks the end of reachable history.
func (c *Crawler) crawlKind(ctx context.T, kind int) (err error) {
	var cur *crawlstate.Cursor
	if cur, err = c.st.Cursor(kind); chk.E(err) {
		return
	}
	if cur == nil {
		cur = &crawlstate.Cursor{Until: time.Now().Unix()}
	}
	if cur.Done {
		c.status.Store(kind, StatusDone)
		return nil
	}
	c.status.Store(kind, StatusPaging)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		until := nostr.Timestamp(cur.Until)
		f := nostr.Filter{Kinds: []int{kind}, Until: &until}
		relays := c.pool.SelectRelays(&f, c.cfg.CrawlRelays)
		if len(relays) == 0 {
			return errorf.E("no selectable relays for kind %d", kind)
		}
		var events []*nostr.Event
		if events, err = c.pool.Fetch(
			ctx, relays, f, c.cfg.CrawlBatchSize,
		); err != nil {
			return
		}
		tally := c.pipe.ProcessBatch(ctx, events)
		for _, ev := range events {
			c.scanForRelays(ev)
		}
		if ferr := c.exploreFrontier(ctx); ferr != nil {
			return ferr
		}
		log.D.F("kind %d page until=%d: %d events %v",
			kind, cur.Until, len(events), tally)

		next := oldest(events) - 1
		if len(events) == 0 || next >= cur.Until {
			// no progress possible past this point
			cur.Done = true
		} else {
			cur.Until = next
		}
		if len(events) < c.cfg.CrawlBatchSize {
			cur.Done = true
		}
		if err = c.st.SaveCursor(kind, cur); chk.E(err) {
			return
		}
		if cur.Done {
			c.status.Store(kind, StatusDone)
			log.I.F("kind %d crawl complete", kind)
			return nil
		}
	}
}

// CrawlAuthors runs the author-centric mode: one backward pagination over
// the given authors and kinds, without touching the per-kind cursors. It
// returns the combined pipeline tally.
func (c *Crawler) CrawlAuthors(
	ctx context.T, authors []string, kinds []int,
) (tally map[ingest.Outcome]int, err error) {
	if len(kinds) == 0 {
		kinds = c.cfg.CrawlKinds
	}
	tally = make(map[ingest.Outcome]int)
	until := nostr.Timestamp(time.Now().Unix())
	for {
		if ctx.Err() != nil {
			return tally, ctx.Err()
		}
		f := nostr.Filter{Kinds: kinds, Authors: authors, Until: &until}
		relays := c.pool.SelectRelays(&f, c.cfg.CrawlRelays)
		if len(relays) == 0 {
			return tally, errorf.E("no selectable relays")
		}
		var events []*nostr.Event
		if events, err = c.pool.Fetch(
			ctx, relays, f, c.cfg.CrawlBatchSize,
		); err != nil {
			return
		}
		for o, n := range c.pipe.ProcessBatch(ctx, events) {
			tally[o] += n
		}
		next := nostr.Timestamp(oldest(events) - 1)
		if len(events) < c.cfg.CrawlBatchSize || next >= until {
			return tally, nil
		}
		until = next
	}
}

// StatusByKind reports the crawl state of every configured kind.
func (c *Crawler) StatusByKind() map[int]string {
	out := make(map[int]string)
	c.status.Range(func(kind int, s Status) bool {
		out[kind] = string(s)
		return true
	})
	return out
}

// oldest returns the smallest created_at in the batch, or zero for an empty
// batch.
func oldest(events []*nostr.Event) int64 {
	var min int64
	for i, ev := range events {
		ts := int64(ev.CreatedAt)
		if i == 0 || ts < min {
			min = ts
		}
	}
	return min
}
