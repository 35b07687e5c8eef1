// Package discovery extracts relay URLs from events and maintains the
// frontier of relays the crawler has not yet visited. Discovery is
// idempotent: URLs are canonicalized before comparison and event ids are
// remembered so history is never re-scanned.
package discovery

import (
	"regexp"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"beacon.dev/pkg/crawlstate"
	"beacon.dev/pkg/metrics"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/log"
	"beacon.dev/pkg/utils/normalize"
)

// KindRelayList is the NIP-65 relay list event kind.
const KindRelayList = 10002

var urlPattern = regexp.MustCompile(`wss?://[a-zA-Z0-9._~:/?#\[\]@!$&'()*+,;=%-]+`)

// Discovery scans events for relay URLs.
type Discovery struct {
	st *crawlstate.Store
}

// New returns a Discovery over the given state store.
func New(st *crawlstate.Store) *Discovery {
	return &Discovery{st: st}
}

// ProcessEvent extracts relay URLs from one event and returns the canonical
// URLs that were not known before. Events already scanned yield nothing.
func (d *Discovery) ProcessEvent(ev *nostr.Event) (fresh []string, err error) {
	var seen bool
	if seen, err = d.st.Scanned(ev.ID); chk.E(err) {
		return
	}
	if seen {
		return
	}
	for _, raw := range ExtractURLs(ev) {
		canonical, nerr := normalize.URL(raw)
		if nerr != nil {
			continue
		}
		var rec *crawlstate.RelayRecord
		if rec, err = d.st.Relay(canonical); chk.E(err) {
			return
		}
		if rec != nil {
			continue
		}
		if err = d.st.SaveRelay(
			&crawlstate.RelayRecord{URL: canonical, DiscoveredAt: time.Now()},
		); chk.E(err) {
			return
		}
		metrics.RelaysDiscovered.Inc()
		log.D.F("discovered relay %s (event %s)", canonical, ev.ID)
		fresh = append(fresh, canonical)
	}
	if err = d.st.MarkScanned(ev.ID); chk.E(err) {
		return
	}
	return
}

// Frontier returns the discovered relays not yet visited by the crawler.
func (d *Discovery) Frontier() (urls []string, err error) {
	var recs []*crawlstate.RelayRecord
	if recs, err = d.st.Relays(); chk.E(err) {
		return
	}
	for _, rec := range recs {
		if !rec.Visited {
			urls = append(urls, rec.URL)
		}
	}
	return
}

// MarkVisited records that the crawler has queried a relay.
func (d *Discovery) MarkVisited(url string) (err error) {
	var rec *crawlstate.RelayRecord
	if rec, err = d.st.Relay(url); chk.E(err) {
		return
	}
	if rec == nil {
		rec = &crawlstate.RelayRecord{URL: url, DiscoveredAt: time.Now()}
	}
	rec.Visited = true
	return d.st.SaveRelay(rec)
}

// ExtractURLs pulls candidate relay URLs from an event: every "r" tag (which
// on kind 10002 carries the NIP-65 relay list), plus any websocket URL
// matched in the content.
func ExtractURLs(ev *nostr.Event) (urls []string) {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == "r" {
			urls = append(urls, tag[1])
		}
	}
	urls = append(urls, urlPattern.FindAllString(ev.Content, -1)...)
	return
}
