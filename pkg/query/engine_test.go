package query

import (
	"errors"
	"testing"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/embed"
	"beacon.dev/pkg/utils/context"
)

type fakeDocs struct {
	lastQuery *doc.SearchQuery
	results   []*doc.SearchResult
	err       error
}

func (f *fakeDocs) UpsertDocument(
	c context.T, d *doc.Document, ev *doc.EventRecord,
) (string, error) {
	return "", nil
}

func (f *fakeDocs) DeleteDocument(c context.T, id string) error { return nil }

func (f *fakeDocs) Search(
	c context.T, q *doc.SearchQuery,
) ([]*doc.SearchResult, error) {
	f.lastQuery = q
	return f.results, f.err
}

func (f *fakeDocs) Facets(c context.T) (*doc.Facets, error) { return nil, nil }

func (f *fakeDocs) TopAuthors(c context.T, n int) ([]string, error) {
	return nil, nil
}

func engineConfig() *config.C {
	return &config.C{
		MaxExpansionsPerTerm: 8,
		MaxTotalExpansions:   32,
		MaxFuzzyMatches:      4,
		FuzzyMaxDistance:     2,
		VectorTermLimit:      6,
		EmbedDimension:       8,
	}
}

func TestSearchHybridPassesVector(t *testing.T) {
	docs := &fakeDocs{results: []*doc.SearchResult{
		{Document: &doc.Document{ID: "d1"}, Score: 0.9},
	}}
	e := New(engineConfig(), docs, embed.Deterministic(8), testLexicon())

	resp, err := e.Search(context.Bg(), &Request{Query: "btc fees"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Mode != doc.ModeHybrid {
		t.Errorf("mode = %q, want hybrid", resp.Mode)
	}
	q := docs.lastQuery
	if q == nil {
		t.Fatal("store never queried")
	}
	if q.Mode != doc.ModeHybrid {
		t.Errorf("store mode = %q, want hybrid", q.Mode)
	}
	if len(q.Vector) != 8 {
		t.Errorf("vector dimension = %d, want 8", len(q.Vector))
	}
	if q.Limit != DefaultLimit {
		t.Errorf("limit = %d, want default %d", q.Limit, DefaultLimit)
	}
	if len(q.Lexical) == 0 {
		t.Error("expanded lexical terms missing")
	}
	if len(resp.Results) != 1 || resp.Results[0].Document.ID != "d1" {
		t.Errorf("results = %v", resp.Results)
	}
	if resp.Rewrite != nil {
		t.Error("rewrite attached without explain")
	}
}

func TestSearchDegradesWithoutEmbedder(t *testing.T) {
	docs := &fakeDocs{}
	e := New(engineConfig(), docs, nil, nil)

	resp, err := e.Search(context.Bg(), &Request{
		Query: "bitcoin", Mode: doc.ModeVector,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Mode != doc.ModeText {
		t.Errorf("mode = %q, want degraded text", resp.Mode)
	}
	if docs.lastQuery.Mode != doc.ModeText {
		t.Errorf("store mode = %q, want text", docs.lastQuery.Mode)
	}
	if docs.lastQuery.Vector != nil {
		t.Error("vector sent despite missing embedder")
	}
	if len(resp.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", resp.Warnings)
	}
}

func TestSearchEmbedderErrorDegrades(t *testing.T) {
	docs := &fakeDocs{}
	broken := func(c context.T, text string) ([]float32, error) {
		return nil, errors.New("endpoint down")
	}
	e := New(engineConfig(), docs, broken, nil)

	resp, err := e.Search(context.Bg(), &Request{Query: "bitcoin"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Mode != doc.ModeText || len(resp.Warnings) != 1 {
		t.Errorf("mode = %q warnings = %v, want text with one warning",
			resp.Mode, resp.Warnings)
	}
}

func TestSearchTextModeSkipsEmbedder(t *testing.T) {
	docs := &fakeDocs{}
	called := false
	ef := func(c context.T, text string) ([]float32, error) {
		called = true
		return nil, nil
	}
	e := New(engineConfig(), docs, ef, nil)
	if _, err := e.Search(context.Bg(), &Request{
		Query: "bitcoin", Mode: doc.ModeText,
	}); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("embedder called in text mode")
	}
}

func TestSearchClampsLimit(t *testing.T) {
	docs := &fakeDocs{}
	e := New(engineConfig(), docs, nil, nil)
	if _, err := e.Search(context.Bg(), &Request{
		Query: "bitcoin", Mode: doc.ModeText, Limit: 5000,
	}); err != nil {
		t.Fatal(err)
	}
	if docs.lastQuery.Limit != MaxLimit {
		t.Errorf("limit = %d, want clamp to %d", docs.lastQuery.Limit, MaxLimit)
	}
}

func TestSearchExplainAttachesRewrite(t *testing.T) {
	docs := &fakeDocs{}
	e := New(engineConfig(), docs, nil, testLexicon())
	resp, err := e.Search(context.Bg(), &Request{
		Query: "btc", Mode: doc.ModeText, Explain: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Rewrite == nil || resp.Rewrite.Explanation == nil {
		t.Fatal("explain requested but rewrite missing")
	}
	if len(resp.Rewrite.Explanation.ConceptMatches) == 0 {
		t.Error("concept matches missing from explanation")
	}
}

func TestSearchStoreError(t *testing.T) {
	docs := &fakeDocs{err: errors.New("connection refused")}
	e := New(engineConfig(), docs, nil, nil)
	if _, err := e.Search(context.Bg(), &Request{
		Query: "bitcoin", Mode: doc.ModeText,
	}); err == nil {
		t.Fatal("store error swallowed")
	}
}

func TestSetLexiconSwapsSnapshot(t *testing.T) {
	docs := &fakeDocs{}
	e := New(engineConfig(), docs, nil, nil)
	if !e.Lexicon().Empty() {
		t.Fatal("expected empty initial lexicon")
	}
	e.SetLexicon(testLexicon())
	if e.Lexicon().Empty() {
		t.Fatal("lexicon swap lost the snapshot")
	}
}
