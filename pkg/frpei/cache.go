package frpei

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"beacon.dev/pkg/metrics"
)

// cacheEntry is one memoized retrieve response.
type cacheEntry struct {
	resp    *RetrieveResponse
	expires time.Time
}

// cache is the TTL response cache, swept periodically so dead entries do not
// accumulate between identical queries.
type cache struct {
	ttl     time.Duration
	entries *xsync.MapOf[string, cacheEntry]
	done    chan struct{}
}

func newCache(ttl time.Duration) *cache {
	c := &cache{
		ttl:     ttl,
		entries: xsync.NewMapOf[string, cacheEntry](),
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *cache) get(key string) (*RetrieveResponse, bool) {
	e, ok := c.entries.Load(key)
	if !ok || time.Now().After(e.expires) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.resp, true
}

func (c *cache) put(key string, resp *RetrieveResponse) {
	c.entries.Store(key, cacheEntry{resp: resp, expires: time.Now().Add(c.ttl)})
}

func (c *cache) sweep() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-t.C:
			c.entries.Range(func(key string, e cacheEntry) bool {
				if now.After(e.expires) {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

func (c *cache) close() { close(c.done) }

// cacheKey derives the memoization key from every request field that changes
// the response, the explain flag included: explanations are stripped before
// caching, so the two flavors must never share an entry. Provider and type
// order is irrelevant.
func cacheKey(req *RetrieveRequest, providers []string) string {
	ps := append([]string{}, providers...)
	sort.Strings(ps)
	ts := append([]string{}, req.Types...)
	sort.Strings(ts)
	return strings.Join([]string{
		req.Query,
		strconv.Itoa(req.Limit),
		req.Mode,
		strings.Join(ps, ","),
		strings.Join(ts, ","),
		strconv.FormatBool(req.Expand),
		strconv.FormatBool(req.Explain),
	}, "|")
}
