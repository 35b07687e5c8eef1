// Package normalize canonicalizes relay websocket URLs so the discovery
// frontier and the pool key on a single spelling of each relay.
package normalize

import (
	"net"
	"net/url"
	"strings"

	"beacon.dev/pkg/utils/errorf"
)

// URL canonicalizes a relay URL: scheme and host lowercased, leading "www."
// dropped, default ports removed, and a single trailing slash stripped from
// the full canonical string. Only the final character is considered for the
// trailing slash, matching observed upstream behavior even for URLs with a
// query string.
func URL(raw string) (out string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errorf.W("empty relay url")
	}
	if !strings.Contains(raw, "://") {
		raw = "wss://" + raw
	}
	var u *url.URL
	if u, err = url.Parse(raw); err != nil {
		return "", errorf.W("unparseable relay url %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "ws" && scheme != "wss" {
		return "", errorf.W("relay url %q: scheme %q is not ws or wss", raw, scheme)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", errorf.W("relay url %q has no host", raw)
	}
	if Private(host) {
		return "", errorf.W("relay url %q targets a private or loopback address", raw)
	}
	port := u.Port()
	if (scheme == "wss" && port == "443") || (scheme == "ws" && port == "80") {
		port = ""
	}
	u.Scheme = scheme
	if port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	out = u.String()
	out = strings.TrimSuffix(out, "/")
	return out, nil
}

// HTTP returns the NIP-11 document URL for a relay: the same URL with the
// websocket scheme swapped for the matching HTTP scheme.
func HTTP(relayURL string) string {
	switch {
	case strings.HasPrefix(relayURL, "wss://"):
		return "https://" + strings.TrimPrefix(relayURL, "wss://")
	case strings.HasPrefix(relayURL, "ws://"):
		return "http://" + strings.TrimPrefix(relayURL, "ws://")
	}
	return relayURL
}

// Private reports whether host is a loopback, link-local or RFC1918 target,
// either by name or by address. Unresolvable names are not treated as
// private; the pool's failure handling covers them.
func Private(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsUnspecified()
	}
	return false
}
