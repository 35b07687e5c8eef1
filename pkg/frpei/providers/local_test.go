package providers

import (
	"strings"
	"testing"
	"time"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/embed"
	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/query"
	"beacon.dev/pkg/utils/context"
)

type fakeDocs struct {
	lastQuery *doc.SearchQuery
	results   []*doc.SearchResult
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
	return f.results, nil
}

func (f *fakeDocs) Facets(c context.T) (*doc.Facets, error) { return nil, nil }

func (f *fakeDocs) TopAuthors(c context.T, n int) ([]string, error) {
	return nil, nil
}

func localConfig() *config.C {
	return &config.C{
		MaxExpansionsPerTerm: 8,
		MaxTotalExpansions:   32,
		MaxFuzzyMatches:      4,
		FuzzyMaxDistance:     2,
		VectorTermLimit:      6,
	}
}

func TestLocalSearch(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	docs := &fakeDocs{results: []*doc.SearchResult{{
		Document: &doc.Document{
			ID:          "d1",
			Title:       "Relay operations",
			Content:     strings.Repeat("long body ", 60),
			URL:         "https://blog.example/p",
			ContentType: doc.ContentArticle,
			CreatedAt:   created,
		},
		Score: 0.82,
	}}}
	engine := query.New(localConfig(), docs, embed.Deterministic(8), nil)
	p := NewLocal(engine, time.Second)

	if p.Name() != frpei.ProviderLocal || p.Weight() != LocalWeight {
		t.Errorf("identity = %s/%v", p.Name(), p.Weight())
	}
	cs, err := p.Search(context.Bg(), "relay", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 1 {
		t.Fatalf("candidates = %d", len(cs))
	}
	c := cs[0]
	if c.ID != "d1" || c.Title != "Relay operations" || c.Score != 0.82 {
		t.Errorf("candidate = %+v", c)
	}
	if len(c.Snippet) != snippetLen {
		t.Errorf("snippet length = %d, want truncation to %d",
			len(c.Snippet), snippetLen)
	}
	if c.PublishedAt == nil || !c.PublishedAt.Equal(created) {
		t.Errorf("publishedAt = %v", c.PublishedAt)
	}
	if c.Type != string(doc.ContentArticle) {
		t.Errorf("type = %q", c.Type)
	}
	if docs.lastQuery.Mode != doc.ModeHybrid {
		t.Errorf("mode = %q, want hybrid", docs.lastQuery.Mode)
	}
}

func TestLocalSearchSingleTypeFilter(t *testing.T) {
	docs := &fakeDocs{}
	engine := query.New(localConfig(), docs, embed.Deterministic(8), nil)
	p := NewLocal(engine, time.Second)

	if _, err := p.Search(
		context.Bg(), "relay", 10, []string{"video"},
	); err != nil {
		t.Fatal(err)
	}
	if docs.lastQuery.Filters.ContentType != doc.ContentVideo {
		t.Errorf("filter = %q, want video", docs.lastQuery.Filters.ContentType)
	}

	// multiple requested types cannot map onto the single filter
	if _, err := p.Search(
		context.Bg(), "relay", 10, []string{"video", "audio"},
	); err != nil {
		t.Fatal(err)
	}
	if docs.lastQuery.Filters.ContentType != "" {
		t.Errorf("filter = %q, want unset", docs.lastQuery.Filters.ContentType)
	}
}
