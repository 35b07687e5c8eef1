package query

import (
	"sync/atomic"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/embed"
	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/metrics"
	"beacon.dev/pkg/ontology"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// DefaultLimit and MaxLimit bound the result page size.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Request is one search call.
type Request struct {
	Query   string         `json:"query"`
	Mode    doc.SearchMode `json:"mode,omitempty"`
	Filters doc.Filters    `json:"filters,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
	Options *Options       `json:"options,omitempty"`
	Explain bool           `json:"explain,omitempty"`
}

// Response carries the ranked results, the effective mode after any
// degradation, and the rewrite the query ran with.
type Response struct {
	Results  []*doc.SearchResult `json:"results"`
	Mode     doc.SearchMode      `json:"mode"`
	Rewrite  *Rewrite            `json:"rewrite,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
}

// Engine executes searches over the document store. It is read-only; the
// lexicon snapshot is swapped atomically when the ontology is re-imported.
type Engine struct {
	cfg   *config.C
	docs  store.Docs
	embed embed.Func
	lx    atomic.Pointer[ontology.Lexicon]
}

// New builds the engine. The embed function may be nil; vector and hybrid
// queries then degrade to text.
func New(
	cfg *config.C, docs store.Docs, ef embed.Func, lx *ontology.Lexicon,
) *Engine {
	e := &Engine{cfg: cfg, docs: docs, embed: ef}
	e.SetLexicon(lx)
	return e
}

// SetLexicon swaps the lexicon snapshot used by subsequent rewrites.
func (e *Engine) SetLexicon(lx *ontology.Lexicon) {
	if lx == nil {
		lx = ontology.NewLexicon(nil, nil)
	}
	e.lx.Store(lx)
}

// Lexicon returns the current lexicon snapshot.
func (e *Engine) Lexicon() *ontology.Lexicon { return e.lx.Load() }

// Search rewrites and executes one query. An unavailable embedder degrades
// vector and hybrid modes to text with a warning instead of failing the
// request.
func (e *Engine) Search(ctx context.T, req *Request) (resp *Response, err error) {
	mode := req.Mode
	if mode == "" {
		mode = doc.ModeHybrid
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	opt := DefaultOptions(e.cfg)
	if req.Options != nil {
		opt = *req.Options
	}
	r := NewRewriter(e.Lexicon()).Rewrite(req.Query, opt)

	resp = &Response{Mode: mode}
	q := &doc.SearchQuery{
		Lexical: r.Lexical(),
		Phrases: r.Phrases,
		Mode:    mode,
		Filters: req.Filters,
		Limit:   limit,
		Offset:  req.Offset,
	}
	if mode != doc.ModeText {
		if q.Vector, err = e.embedQuery(ctx, r.VectorQuery); err != nil {
			log.W.F("query embedding unavailable: %v", err)
			resp.Warnings = append(resp.Warnings,
				"embedding unavailable; degraded to text mode")
			q.Mode = doc.ModeText
			resp.Mode = doc.ModeText
			err = nil
		}
	}
	metrics.QueriesServed.WithLabelValues(string(resp.Mode)).Inc()
	if resp.Results, err = e.docs.Search(ctx, q); err != nil {
		return nil, err
	}
	if req.Explain {
		resp.Rewrite = r
	}
	return resp, nil
}

func (e *Engine) embedQuery(ctx context.T, text string) ([]float32, error) {
	if e.embed == nil {
		return nil, embed.ErrUnavailable
	}
	return e.embed(ctx, text)
}

// Facets returns the faceted breakdown of the index.
func (e *Engine) Facets(ctx context.T) (*doc.Facets, error) {
	return e.docs.Facets(ctx)
}
