// Package frpei is the federated retrieval router: concurrent provider
// fan-out guarded by per-provider circuit breakers, a TTL response cache,
// deduplication, ontology canonicalization and enrichment, composite
// ranking, always-on score explanations, and the append-only feedback log
// that feeds back into ranking.
package frpei

import (
	"time"

	"beacon.dev/pkg/utils/context"
)

// Provider names the router resolves by default.
const (
	ProviderLocal = "local"
	ProviderWeb   = "web"
	ProviderMedia = "media"
)

// Provider is one federated search backend.
type Provider interface {
	Name() string
	// Weight scales the provider's native scores during ranking.
	Weight() float64
	// Timeout is the provider's own per-call budget; the router uses the
	// minimum of this and the request budget.
	Timeout() time.Duration
	Search(ctx context.T, query string, limit int, types []string) ([]*Candidate, error)
}

// Candidate is one retrieved item as it moves through the router stages.
type Candidate struct {
	ID            string           `json:"id"`
	Provider      string           `json:"provider"`
	Title         string           `json:"title"`
	Snippet       string           `json:"snippet,omitempty"`
	URL           string           `json:"url,omitempty"`
	NormalizedURL string           `json:"normalizedUrl,omitempty"`
	Type          string           `json:"type,omitempty"`
	Score         float64          `json:"score"`
	PublishedAt   *time.Time       `json:"publishedAt,omitempty"`
	Canonical     *CanonicalMatch  `json:"canonical,omitempty"`
	Enrichment    *Enrichment      `json:"enrichment,omitempty"`
	TotalScore    float64          `json:"totalScore"`
	Rank          int              `json:"rank,omitempty"`
	Explanation   *ScoreBreakdown  `json:"explanation,omitempty"`
}

// CanonicalMatch links a candidate to its best ontology concept.
type CanonicalMatch struct {
	ConceptID     string  `json:"conceptId"`
	PreferredTerm string  `json:"preferredTerm"`
	MatchedTerm   string  `json:"matchedTerm"`
	MatchedBy     string  `json:"matchedBy"`
	Confidence    float64 `json:"confidence"`
}

// Enrichment is the ontology and dictionary context attached to a
// canonicalized candidate.
type Enrichment struct {
	Synonyms   []string   `json:"synonyms,omitempty"`
	Related    []string   `json:"related,omitempty"`
	Taxonomies []string   `json:"taxonomies,omitempty"`
	Provenance Provenance `json:"provenance"`
	Confidence float64    `json:"confidence"`
}

// Provenance says where an enrichment came from and when.
type Provenance struct {
	Sources    []string  `json:"sources"`
	EnrichedAt time.Time `json:"enrichedAt"`
}

// ScoreBreakdown is the full ranking arithmetic for one candidate. It is
// always computed; explain=true merely surfaces it.
type ScoreBreakdown struct {
	BaseScore      float64  `json:"baseScore"`
	ProviderWeight float64  `json:"providerWeight"`
	CanonicalBoost float64  `json:"canonicalBoost"`
	FreshnessBoost float64  `json:"freshnessBoost"`
	FeedbackBoost  float64  `json:"feedbackBoost"`
	TotalScore     float64  `json:"totalScore"`
	Notes          []string `json:"notes,omitempty"`
}
