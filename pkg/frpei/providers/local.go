// Package providers holds the concrete search backends the router federates:
// the local document index and the generic HTTP JSON providers used for web
// and media search.
package providers

import (
	"time"

	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/query"
	"beacon.dev/pkg/utils/context"
)

// Provider trust weights.
const (
	LocalWeight = 0.95
	MediaWeight = 0.85
	WebWeight   = 0.6
)

const snippetLen = 280

// Local serves federated retrieves from the local document index through
// the query engine.
type Local struct {
	engine  *query.Engine
	timeout time.Duration
}

// NewLocal wraps the query engine as a provider.
func NewLocal(engine *query.Engine, timeout time.Duration) *Local {
	return &Local{engine: engine, timeout: timeout}
}

func (l *Local) Name() string           { return frpei.ProviderLocal }
func (l *Local) Weight() float64        { return LocalWeight }
func (l *Local) Timeout() time.Duration { return l.timeout }

// Search runs a hybrid query over the local index and maps documents onto
// candidates.
func (l *Local) Search(
	ctx context.T, q string, limit int, types []string,
) (cs []*frpei.Candidate, err error) {
	req := &query.Request{Query: q, Mode: doc.ModeHybrid, Limit: limit}
	if len(types) == 1 {
		req.Filters.ContentType = doc.ContentType(types[0])
	}
	var resp *query.Response
	if resp, err = l.engine.Search(ctx, req); err != nil {
		return
	}
	for _, res := range resp.Results {
		d := res.Document
		snippet := d.Content
		if len(snippet) > snippetLen {
			snippet = snippet[:snippetLen]
		}
		published := d.CreatedAt
		cs = append(cs, &frpei.Candidate{
			ID:          d.ID,
			Provider:    frpei.ProviderLocal,
			Title:       d.Title,
			Snippet:     snippet,
			URL:         d.URL,
			Type:        string(d.ContentType),
			Score:       res.Score,
			PublishedAt: &published,
		})
	}
	return
}
