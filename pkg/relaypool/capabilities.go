package relaypool

import (
	"time"

	"github.com/nbd-wtf/go-nostr/nip11"

	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/errorf"
	"beacon.dev/pkg/utils/log"
	"beacon.dev/pkg/utils/normalize"
)

// Discover fetches the relay's NIP-11 information document (an HTTP GET of
// the relay URL with the websocket scheme swapped and Accept:
// application/nostr+json) and folds the limitation fields into its Config.
// Failure increments the relay's failure count but never removes it; later
// attempts are allowed.
func (p *Pool) Discover(ctx context.T, url string) (caps *Capabilities, err error) {
	rc, _, rerr := p.Register(url)
	if rerr != nil {
		return nil, rerr
	}
	cctx, cancel := context.Timeout(ctx, p.cfg.RelayDiscoverTimeout)
	defer cancel()
	start := time.Now()
	info, ferr := nip11.Fetch(cctx, normalize.HTTP(rc.URL))
	if ferr != nil {
		rc.onFailure()
		return nil, errorf.W("nip11 discovery for %s: %w", rc.URL, ferr)
	}
	c := Capabilities{
		Name:          info.Name,
		Software:      info.Software,
		SupportedNIPs: append([]int(nil), info.SupportedNIPs...),
	}
	if info.Limitation != nil {
		c.MaxSubscriptions = info.Limitation.MaxSubscriptions
		c.MaxFilters = info.Limitation.MaxFilters
		c.MaxLimit = info.Limitation.MaxLimit
		c.RequireAuth = info.Limitation.AuthRequired
	}
	rc.mx.Lock()
	rc.caps = c
	rc.mx.Unlock()
	rc.onSuccess(time.Since(start))
	log.D.F(
		"discovered %s: max_subscriptions=%d max_filters=%d require_auth=%v",
		rc.URL, c.MaxSubscriptions, c.MaxFilters, c.RequireAuth,
	)
	return &c, nil
}

// intNIPs copies the supported NIP list, tolerating the mixed number types
// found in the wild.
func intNIPs(raw []any) (nips []int) {
	for _, v := range raw {
		switch n := v.(type) {
		case int:
			nips = append(nips, n)
		case float64:
			nips = append(nips, int(n))
		}
	}
	return
}
