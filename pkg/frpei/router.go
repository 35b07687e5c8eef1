package frpei

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/metrics"
	"beacon.dev/pkg/ontology"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/errorf"
	"beacon.dev/pkg/utils/log"
)

// RetrieveRequest is one federated retrieve call.
type RetrieveRequest struct {
	Query       string   `json:"query"`
	Limit       int      `json:"limit,omitempty"`
	Providers   []string `json:"providers,omitempty"`
	Types       []string `json:"types,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Expand      bool     `json:"expand,omitempty"`
	Explain     bool     `json:"explain,omitempty"`
	EnableCache *bool    `json:"enableCache,omitempty"`
	Dedupe      *bool    `json:"dedupe,omitempty"`
	TimeoutMs   int      `json:"timeoutMs,omitempty"`
}

// ProviderError records one provider failure inside an otherwise successful
// retrieve.
type ProviderError struct {
	Provider   string `json:"provider"`
	Error      string `json:"error"`
	DurationMs int64  `json:"durationMs"`
	Timeout    bool   `json:"timeout"`
}

// ProviderReport summarizes one provider's contribution.
type ProviderReport struct {
	Provider   string `json:"provider"`
	Results    int    `json:"results"`
	DurationMs int64  `json:"durationMs"`
}

// RetrieveMetrics is the per-request accounting block.
type RetrieveMetrics struct {
	TotalMs          int64 `json:"totalMs"`
	ProvidersQueried int   `json:"providersQueried"`
	Deduped          int   `json:"deduped"`
	CacheHit         bool  `json:"cacheHit"`
}

// RetrieveResponse is the retrieve result envelope.
type RetrieveResponse struct {
	RequestID string           `json:"requestId"`
	Query     string           `json:"query"`
	Results   []*Candidate     `json:"results"`
	Providers []ProviderReport `json:"providers"`
	Metrics   RetrieveMetrics  `json:"metrics"`
	Errors    []ProviderError  `json:"errors,omitempty"`
}

// Router fans retrieve calls out over the registered providers.
type Router struct {
	cfg       *config.C
	order     []string
	providers map[string]Provider
	breakers  map[string]*breaker
	cache     *cache
	lexicon   func() *ontology.Lexicon
	feedback  store.Feedback
	rlog      store.RetrievalLog
}

// NewRouter registers the providers in priority order. lexicon supplies the
// current ontology snapshot for canonicalization; feedback and rlog may be
// nil, disabling the feedback boost and the audit log.
func NewRouter(
	cfg *config.C, lexicon func() *ontology.Lexicon,
	feedback store.Feedback, rlog store.RetrievalLog, providers ...Provider,
) *Router {
	r := &Router{
		cfg:       cfg,
		providers: make(map[string]Provider, len(providers)),
		breakers:  make(map[string]*breaker, len(providers)),
		cache:     newCache(cfg.FRPEICacheTTL),
		lexicon:   lexicon,
		feedback:  feedback,
		rlog:      rlog,
	}
	for _, p := range providers {
		r.order = append(r.order, p.Name())
		r.providers[p.Name()] = p
		r.breakers[p.Name()] = newBreaker(p.Name(), cfg)
	}
	return r
}

// Close stops the cache sweeper.
func (r *Router) Close() { r.cache.close() }

// Retrieve runs the full federated pipeline: resolve → cache → fan-out →
// collect → fallback → dedupe → canonicalize → enrich → rank. Partial
// provider failures are reported in the response, never returned as errors.
func (r *Router) Retrieve(
	ctx context.T, req *RetrieveRequest,
) (resp *RetrieveResponse, err error) {
	start := time.Now()
	if strings.TrimSpace(req.Query) == "" {
		return nil, errorf.E("empty query")
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	chosen := r.resolveProviders(req.Providers, req.Types)
	if len(chosen) == 0 {
		return nil, errorf.E("no providers match the request")
	}

	useCache := req.EnableCache == nil || *req.EnableCache
	key := cacheKey(req, chosen)
	if useCache {
		if cached, ok := r.cache.get(key); ok {
			out := *cached
			out.Metrics.CacheHit = true
			return &out, nil
		}
	}

	resp = &RetrieveResponse{
		RequestID: uuid.NewString(),
		Query:     req.Query,
	}
	results := r.fanOut(ctx, req, chosen, resp)

	// a dead router is worse than a slow one: if everything failed and the
	// local index was not consulted, try it alone before giving up
	if len(results) == 0 && !contains(chosen, ProviderLocal) {
		if _, ok := r.providers[ProviderLocal]; ok {
			results = r.fanOut(ctx, req, []string{ProviderLocal}, resp)
		}
	}

	if req.Dedupe == nil || *req.Dedupe {
		before := len(results)
		results = dedupe(results, r.providerWeights())
		resp.Metrics.Deduped = before - len(results)
	}
	lx := r.lexicon()
	for _, c := range results {
		r.canonicalize(lx, c)
		if req.Expand {
			r.enrich(lx, c)
		}
	}
	results = r.rank(ctx, req.Query, results)
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	if !req.Explain {
		for _, c := range results {
			c.Explanation = nil
		}
	}
	resp.Results = results
	resp.Metrics.TotalMs = time.Since(start).Milliseconds()
	r.audit(ctx, resp)
	if useCache {
		r.cache.put(key, resp)
	}
	return resp, nil
}

// fanOut queries the chosen providers concurrently, each bounded by the
// smaller of the request and provider budgets and guarded by its breaker.
func (r *Router) fanOut(
	ctx context.T, req *RetrieveRequest, chosen []string,
	resp *RetrieveResponse,
) (results []*Candidate) {
	reqBudget := r.cfg.FRPEITimeout
	if req.TimeoutMs > 0 {
		reqBudget = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	var mx sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range chosen {
		p := r.providers[name]
		br := r.breakers[name]
		g.Go(func() error {
			budget := reqBudget
			if pt := p.Timeout(); pt > 0 && pt < budget {
				budget = pt
			}
			pctx, cancel := context.Timeout(gctx, budget)
			defer cancel()
			start := time.Now()
			cs, perr := br.execute(func() ([]*Candidate, error) {
				return p.Search(pctx, req.Query, req.Limit, req.Types)
			})
			took := time.Since(start).Milliseconds()
			mx.Lock()
			defer mx.Unlock()
			if perr != nil {
				metrics.ProviderCalls.WithLabelValues(name, "error").Inc()
				log.D.F("provider %s failed: %v", name, perr)
				resp.Errors = append(resp.Errors, ProviderError{
					Provider:   name,
					Error:      perr.Error(),
					DurationMs: took,
					Timeout:    isTimeout(perr),
				})
				return nil
			}
			metrics.ProviderCalls.WithLabelValues(name, "ok").Inc()
			for _, c := range cs {
				c.Provider = name
				if c.NormalizedURL == "" && c.URL != "" {
					c.NormalizedURL = normalizeCandidateURL(c.URL)
				}
			}
			results = append(results, cs...)
			resp.Providers = append(resp.Providers, ProviderReport{
				Provider: name, Results: len(cs), DurationMs: took,
			})
			return nil
		})
	}
	chk.D(g.Wait())
	resp.Metrics.ProvidersQueried += len(chosen)
	return
}

// resolveProviders picks the providers for one request: the explicit list,
// or every registered provider able to serve the requested types.
func (r *Router) resolveProviders(explicit, types []string) (chosen []string) {
	if len(explicit) > 0 {
		for _, name := range explicit {
			if _, ok := r.providers[name]; ok {
				chosen = append(chosen, name)
			}
		}
		return
	}
	for _, name := range r.order {
		if serves(r.providers[name], types) {
			chosen = append(chosen, name)
		}
	}
	return
}

func (r *Router) providerWeights() map[string]float64 {
	w := make(map[string]float64, len(r.providers))
	for name, p := range r.providers {
		w[name] = p.Weight()
	}
	return w
}

// audit persists the request and its surviving candidate ids, best-effort.
func (r *Router) audit(ctx context.T, resp *RetrieveResponse) {
	if r.rlog == nil {
		return
	}
	var providers []string
	for _, p := range resp.Providers {
		providers = append(providers, p.Provider)
	}
	if err := r.rlog.SaveRequest(
		ctx, resp.RequestID, resp.Query, providers,
	); chk.E(err) {
		return
	}
	var recs []*store.CandidateRecord
	for _, c := range resp.Results {
		rec := &store.CandidateRecord{
			ID:         c.ID,
			Provider:   c.Provider,
			Rank:       c.Rank,
			TotalScore: c.TotalScore,
		}
		if c.Enrichment != nil {
			rec.Enrichment = c.Enrichment
		}
		recs = append(recs, rec)
	}
	chk.E(r.rlog.SaveCandidates(ctx, resp.RequestID, recs))
}

// Status reports every provider's breaker state and health counters.
func (r *Router) Status() map[string]ProviderMetrics {
	out := make(map[string]ProviderMetrics, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.snapshot()
	}
	return out
}

// serves reports whether a provider covers every requested type. Providers
// with no type declaration cover everything.
func serves(p Provider, types []string) bool {
	if len(types) == 0 {
		return true
	}
	tp, ok := p.(interface{ Types() []string })
	if !ok || len(tp.Types()) == 0 {
		return true
	}
	for _, want := range types {
		if contains(tp.Types(), want) {
			return true
		}
	}
	return false
}

// dedupe groups candidates by normalized url, url, then lowercased title,
// keeping the highest-signal item of each group.
func dedupe(cs []*Candidate, weights map[string]float64) (out []*Candidate) {
	best := make(map[string]*Candidate, len(cs))
	signal := func(c *Candidate) float64 {
		w, ok := weights[c.Provider]
		if !ok {
			w = 0.5
		}
		return c.Score * w
	}
	var order []string
	for _, c := range cs {
		key := c.NormalizedURL
		if key == "" {
			key = c.URL
		}
		if key == "" {
			key = strings.ToLower(c.Title)
		}
		cur, seen := best[key]
		if !seen {
			best[key] = c
			order = append(order, key)
			continue
		}
		if signal(c) > signal(cur) {
			best[key] = c
		}
	}
	for _, key := range order {
		out = append(out, best[key])
	}
	return
}

// normalizeCandidateURL canonicalizes a result URL for deduplication only.
func normalizeCandidateURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
