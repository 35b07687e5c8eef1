// Package doc defines the canonical document model every source is reduced
// to, the stored nostr event record that references it, and the search types
// the query engine exchanges with the store.
package doc

import (
	"time"
)

// ContentType is the coarse media class of a document.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentArticle    ContentType = "article"
	ContentAudio      ContentType = "audio"
	ContentVideo      ContentType = "video"
	ContentImage      ContentType = "image"
	ContentProfile    ContentType = "profile"
	ContentStructured ContentType = "structured"
)

// SourceNostr is the source_id for documents ingested from relays.
const SourceNostr = "nostr"

// Document is the canonical record. (source_id, external_id) is unique when
// both are present; embeddings always have the deployment's fixed dimension.
type Document struct {
	ID           string            `db:"id" json:"id"`
	ExternalID   string            `db:"external_id" json:"externalId,omitempty"`
	SourceID     string            `db:"source_id" json:"sourceId,omitempty"`
	Title        string            `db:"title" json:"title"`
	Content      string            `db:"content" json:"content"`
	URL          string            `db:"url" json:"url,omitempty"`
	DocumentType string            `db:"document_type" json:"documentType"`
	ContentType  ContentType       `db:"content_type" json:"contentType"`
	CreatedAt    time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updatedAt"`
	Attributes   map[string]any    `db:"-" json:"attributes,omitempty"`
	Embedding    []float32         `db:"-" json:"-"`
	Tags         []string          `db:"-" json:"tags,omitempty"`
	Metadata     map[string]string `db:"-" json:"metadata,omitempty"`
}

// EventRecord is the stored nostr event row joined to its document. The pair
// is co-terminal: deleting the document cascades to the event record.
type EventRecord struct {
	EventID        string     `db:"event_id" json:"eventId"`
	Pubkey         string     `db:"pubkey" json:"pubkey"`
	Kind           int        `db:"kind" json:"kind"`
	EventCreatedAt time.Time  `db:"event_created_at" json:"eventCreatedAt"`
	Tags           [][]string `db:"-" json:"tags,omitempty"`
	DocumentID     string     `db:"document_id" json:"documentId"`
	QualityScore   float64    `db:"quality_score" json:"qualityScore"`
	IndexedAt      time.Time  `db:"indexed_at" json:"indexedAt"`
}

// SearchMode selects the retrieval strategy.
type SearchMode string

const (
	ModeVector SearchMode = "vector"
	ModeText   SearchMode = "text"
	ModeHybrid SearchMode = "hybrid"
)

// Filters restrict a search to matching documents.
type Filters struct {
	ContentType  ContentType       `json:"contentType,omitempty"`
	DocumentType string            `json:"documentType,omitempty"`
	Author       string            `json:"author,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Since        *time.Time        `json:"since,omitempty"`
	UntilTime    *time.Time        `json:"until,omitempty"`
}

// SearchQuery is the fully rewritten query handed to the store. Lexical is
// the OR-joined expansion set, Phrases become adjacency constraints, and
// Vector is the embedding of the vector query string.
type SearchQuery struct {
	Lexical []string
	Phrases []string
	Vector  []float32
	Mode    SearchMode
	Filters Filters
	Limit   int
	Offset  int
}

// SearchResult is one ranked document with its score breakdown.
type SearchResult struct {
	Document  *Document `json:"document"`
	Score     float64   `json:"score"`
	CosineSim float64   `json:"cosineSim,omitempty"`
	LexRank   float64   `json:"lexRank,omitempty"`
}

// FacetCount is one facet value and its document count.
type FacetCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Facets is the full faceted breakdown of the index.
type Facets struct {
	Tags          []FacetCount            `json:"tags"`
	Authors       []FacetCount            `json:"authors"`
	ContentTypes  []FacetCount            `json:"contentTypes"`
	DocumentTypes []FacetCount            `json:"documentTypes"`
	Sentiments    []FacetCount            `json:"sentiments"`
	Entities      map[string][]FacetCount `json:"entities"`
	Dates         map[string]int64        `json:"dates"`
}
