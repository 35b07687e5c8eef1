// Package store declares the narrow persistence capabilities the engine
// components depend on. The postgres implementation lives in pkg/database;
// tests substitute fakes.
package store

import (
	"time"

	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/ontology"
	"beacon.dev/pkg/utils/context"
)

// Docs is the document index: ingestion writes, the query engine reads.
type Docs interface {
	// UpsertDocument writes a document and its event record in one
	// transaction, keyed by (source_id, external_id) and event_id. Re-running
	// the same event id updates quality score and indexed_at only.
	UpsertDocument(c context.T, d *doc.Document, ev *doc.EventRecord) (id string, err error)
	// DeleteDocument removes a document; its event record cascades.
	DeleteDocument(c context.T, id string) error
	// Search executes a rewritten query in the requested mode.
	Search(c context.T, q *doc.SearchQuery) ([]*doc.SearchResult, error)
	// Facets computes the faceted breakdown of the index.
	Facets(c context.T) (*doc.Facets, error)
	// TopAuthors returns the most prolific pubkeys in the local index.
	TopAuthors(c context.T, n int) ([]string, error)
}

// Ontology loads and replaces the concept graph and dictionary.
type Ontology interface {
	LoadLexicon(c context.T) (*ontology.Lexicon, error)
	ImportConcepts(c context.T, concepts []*ontology.Concept, dict []*ontology.DictionaryEntry) error
	ExportConcepts(c context.T) ([]*ontology.Concept, []*ontology.DictionaryEntry, error)
}

// FeedbackEntry is one append-only feedback record.
type FeedbackEntry struct {
	ID          string            `json:"id"`
	CandidateID string            `json:"candidateId"`
	RequestID   string            `json:"requestId,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Feedback    string            `json:"feedback"`
	Rating      int               `json:"rating,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Feedback persists the append-only feedback log and serves the aggregate
// scores the ranker folds back in.
type Feedback interface {
	SaveFeedback(c context.T, e *FeedbackEntry) error
	// FeedbackScores returns, per candidate id, the mean signed score of
	// recent feedback: positive 1, negative −1, neutral 0.
	FeedbackScores(c context.T, candidateIDs []string) (map[string]float64, error)
}

// CandidateRecord is the persisted outcome of one ranked candidate.
type CandidateRecord struct {
	ID         string  `json:"id"`
	Provider   string  `json:"provider"`
	Rank       int     `json:"rank"`
	TotalScore float64 `json:"totalScore"`
	// Enrichment is marshaled to JSON by the store; nil means none attached.
	Enrichment any `json:"enrichment,omitempty"`
}

// RetrievalLog records federated retrieve requests and their outcomes for
// audit and the feedback join.
type RetrievalLog interface {
	SaveRequest(c context.T, requestID, query string, providers []string) error
	SaveCandidates(c context.T, requestID string, cs []*CandidateRecord) error
}
