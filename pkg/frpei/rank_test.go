package frpei

import (
	"math"
	"testing"
	"time"

	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/utils/context"
)

type fakeFeedback struct {
	entries []*store.FeedbackEntry
	scores  map[string]float64
}

func (f *fakeFeedback) SaveFeedback(c context.T, e *store.FeedbackEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeFeedback) FeedbackScores(
	c context.T, ids []string,
) (map[string]float64, error) {
	return f.scores, nil
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScoreBreakdown(t *testing.T) {
	web := &fakeProvider{name: ProviderWeb, weight: 0.6}
	fb := &fakeFeedback{scores: map[string]float64{"c1": 0.5}}
	r := NewRouter(routerConfig(), emptyLexicon(), fb, nil, web)
	t.Cleanup(r.Close)

	published := time.Now().Add(-15 * 24 * time.Hour)
	c := &Candidate{
		ID: "c1", Provider: ProviderWeb, Score: 0.8,
		PublishedAt: &published,
		Canonical:   &CanonicalMatch{PreferredTerm: "bitcoin", Confidence: 0.9},
	}
	b := r.score(c, 0.5)
	if b.BaseScore != 0.8 || b.ProviderWeight != 0.6 {
		t.Errorf("base = %v weight = %v", b.BaseScore, b.ProviderWeight)
	}
	if !almost(b.CanonicalBoost, 0.10*0.9) {
		t.Errorf("canonical boost = %v", b.CanonicalBoost)
	}
	// 15 of 30 days gone: half the freshness budget remains
	if math.Abs(b.FreshnessBoost-0.04) > 0.001 {
		t.Errorf("freshness boost = %v, want ~0.04", b.FreshnessBoost)
	}
	if !almost(b.FeedbackBoost, 0.05*0.5) {
		t.Errorf("feedback boost = %v", b.FeedbackBoost)
	}
	want := 0.8*0.6 + b.CanonicalBoost + b.FreshnessBoost + b.FeedbackBoost
	if !almost(b.TotalScore, want) {
		t.Errorf("total = %v, want %v", b.TotalScore, want)
	}
	if len(b.Notes) != 3 {
		t.Errorf("notes = %v", b.Notes)
	}
}

func TestScoreNoBoosts(t *testing.T) {
	web := &fakeProvider{name: ProviderWeb, weight: 0.6}
	r := newTestRouter(t, web)
	b := r.score(&Candidate{ID: "c1", Provider: ProviderWeb, Score: 0.5}, 0)
	if !almost(b.TotalScore, 0.3) {
		t.Errorf("total = %v, want plain base·weight", b.TotalScore)
	}
	if len(b.Notes) != 0 {
		t.Errorf("notes = %v, want none", b.Notes)
	}
}

func TestScoreUnknownProviderWeight(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{name: ProviderWeb, weight: 0.6})
	b := r.score(&Candidate{ID: "c1", Provider: "ghost", Score: 1}, 0)
	if b.ProviderWeight != 0.5 {
		t.Errorf("weight = %v, want the 0.5 default", b.ProviderWeight)
	}
}

func TestScoreStaleNoFreshness(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{name: ProviderWeb, weight: 0.6})
	old := time.Now().Add(-45 * 24 * time.Hour)
	b := r.score(&Candidate{
		ID: "c1", Provider: ProviderWeb, Score: 0.5, PublishedAt: &old,
	}, 0)
	if b.FreshnessBoost != 0 {
		t.Errorf("freshness boost = %v for a 45 day old item", b.FreshnessBoost)
	}
}

func TestRankOrdersAndNumbers(t *testing.T) {
	local := &fakeProvider{name: ProviderLocal, weight: 0.95}
	web := &fakeProvider{name: ProviderWeb, weight: 0.6}
	r := newTestRouter(t, local, web)

	cs := []*Candidate{
		{ID: "w", Provider: ProviderWeb, Title: "web", Score: 0.9},
		{ID: "l", Provider: ProviderLocal, Title: "local", Score: 0.8},
	}
	ranked := r.Rank(context.Bg(), "q", cs)
	if ranked[0].ID != "l" || ranked[0].Rank != 1 {
		t.Errorf("top = %s rank %d", ranked[0].ID, ranked[0].Rank)
	}
	if ranked[1].ID != "w" || ranked[1].Rank != 2 {
		t.Errorf("second = %s rank %d", ranked[1].ID, ranked[1].Rank)
	}
	for _, c := range ranked {
		if c.Explanation == nil {
			t.Errorf("candidate %s missing its breakdown", c.ID)
		}
		if c.TotalScore != c.Explanation.TotalScore {
			t.Errorf("candidate %s total diverges from its breakdown", c.ID)
		}
	}
}

func TestRankStableOnTies(t *testing.T) {
	web := &fakeProvider{name: ProviderWeb, weight: 0.6}
	r := newTestRouter(t, web)
	cs := []*Candidate{
		{ID: "first", Provider: ProviderWeb, Score: 0.5},
		{ID: "second", Provider: ProviderWeb, Score: 0.5},
	}
	ranked := r.Rank(context.Bg(), "q", cs)
	if ranked[0].ID != "first" {
		t.Error("equal scores reordered")
	}
}

func TestExplainSingleCandidate(t *testing.T) {
	fb := &fakeFeedback{scores: map[string]float64{"c1": -1}}
	r := NewRouter(routerConfig(), emptyLexicon(), fb, nil,
		&fakeProvider{name: ProviderWeb, weight: 0.6})
	t.Cleanup(r.Close)

	b := r.Explain(context.Bg(),
		&Candidate{ID: "c1", Provider: ProviderWeb, Score: 0.5})
	if b == nil {
		t.Fatal("no breakdown")
	}
	if !almost(b.FeedbackBoost, -0.05) {
		t.Errorf("feedback boost = %v, want −0.05", b.FeedbackBoost)
	}
}
