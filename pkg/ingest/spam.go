package ingest

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/puzpuzpuz/xsync/v3"

	"beacon.dev/pkg/app/config"
)

// SpamFilter is the all-or-nothing composite filter of the ingestion
// pipeline: an event fails if any single check fails. All thresholds come
// from configuration.
type SpamFilter struct {
	cfg      *config.C
	byAuthor *xsync.MapOf[string, *postWindow]
}

// postWindow is a sliding one-minute window of post timestamps per pubkey.
type postWindow struct {
	mx    sync.Mutex
	times []time.Time
}

// NewSpamFilter builds the filter from the configured thresholds.
func NewSpamFilter(cfg *config.C) *SpamFilter {
	return &SpamFilter{
		cfg:      cfg,
		byAuthor: xsync.NewMapOf[string, *postWindow](),
	}
}

// Check returns a non-empty reason when the extraction is spam.
func (sf *SpamFilter) Check(pubkey string, ex *Extraction) (reason string) {
	body := ex.Body
	if reason = sf.checkLength(body); reason != "" {
		return
	}
	if reason = sf.checkRepetition(body); reason != "" {
		return
	}
	if reason = sf.checkNonASCII(body); reason != "" {
		return
	}
	if reason = sf.checkURLRatio(body); reason != "" {
		return
	}
	return sf.checkPostRate(pubkey, time.Now())
}

// checkLength fails content shorter than the minimum after stripping
// punctuation.
func (sf *SpamFilter) checkLength(body string) string {
	var n int
	for _, r := range body {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			n++
		}
	}
	if n < sf.cfg.SpamMinLength {
		return "content too short"
	}
	return ""
}

// checkRepetition fails when the most frequent token dominates.
func (sf *SpamFilter) checkRepetition(body string) string {
	tokens := strings.Fields(strings.ToLower(body))
	if len(tokens) == 0 {
		return ""
	}
	counts := make(map[string]int, len(tokens))
	max := 0
	for _, t := range tokens {
		counts[t]++
		if counts[t] > max {
			max = counts[t]
		}
	}
	if float64(max)/float64(len(tokens)) > sf.cfg.SpamMaxRepetition {
		return "repetitive content"
	}
	return ""
}

// checkNonASCII fails when too much of the content is non-ASCII or emoji.
func (sf *SpamFilter) checkNonASCII(body string) string {
	var total, other int
	for _, r := range body {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if r > unicode.MaxASCII || unicode.Is(unicode.So, r) {
			other++
		}
	}
	if total == 0 {
		return ""
	}
	if float64(other)/float64(total) > sf.cfg.SpamMaxNonASCII {
		return "mostly non-text content"
	}
	return ""
}

// checkURLRatio fails when URLs take up most of the content.
func (sf *SpamFilter) checkURLRatio(body string) string {
	if len(body) == 0 {
		return ""
	}
	var urlLen int
	for _, u := range linkPattern.FindAllString(body, -1) {
		urlLen += len(u)
	}
	if float64(urlLen)/float64(len(body)) > sf.cfg.SpamMaxURLRatio {
		return "link dump"
	}
	return ""
}

// checkPostRate fails when a pubkey exceeds the per-minute posting ceiling.
func (sf *SpamFilter) checkPostRate(pubkey string, now time.Time) string {
	w, _ := sf.byAuthor.LoadOrCompute(pubkey, func() *postWindow {
		return &postWindow{}
	})
	w.mx.Lock()
	defer w.mx.Unlock()
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(w.times) && w.times[i].Before(cutoff) {
		i++
	}
	w.times = w.times[i:]
	if len(w.times) >= sf.cfg.SpamMaxPostsPerMin {
		return "posting too fast"
	}
	w.times = append(w.times, now)
	return ""
}
