package frpei

import (
	"fmt"
	"sort"
	"time"

	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
)

// Ranking boost factors.
const (
	canonicalFactor = 0.10
	freshnessFactor = 0.08
	freshnessWindow = 30 * 24 * time.Hour
	feedbackFactor  = 0.05
	defaultWeight   = 0.5
)

// rank scores, sorts and numbers the candidate set. The breakdown is
// computed for every candidate regardless of the explain flag.
func (r *Router) rank(
	ctx context.T, q string, cs []*Candidate,
) []*Candidate {
	fb := r.feedbackScores(ctx, cs)
	for _, c := range cs {
		c.Explanation = r.score(c, fb[c.ID])
		c.TotalScore = c.Explanation.TotalScore
	}
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].TotalScore > cs[j].TotalScore
	})
	for i, c := range cs {
		c.Rank = i + 1
	}
	return cs
}

// score computes one candidate's breakdown:
// total = base·providerWeight + 0.10·confidence + freshness + feedback.
func (r *Router) score(c *Candidate, feedback float64) *ScoreBreakdown {
	w := defaultWeight
	if p, ok := r.providers[c.Provider]; ok {
		w = p.Weight()
	}
	b := &ScoreBreakdown{
		BaseScore:      c.Score,
		ProviderWeight: w,
	}
	if c.Canonical != nil {
		b.CanonicalBoost = canonicalFactor * c.Canonical.Confidence
		b.Notes = append(b.Notes, fmt.Sprintf(
			"Matched ontology concept %q (confidence %.2f)",
			c.Canonical.PreferredTerm, c.Canonical.Confidence))
	}
	if c.PublishedAt != nil {
		if age := time.Since(*c.PublishedAt); age >= 0 && age < freshnessWindow {
			days := age.Hours() / 24
			b.FreshnessBoost = freshnessFactor * (1 - days/30)
			b.Notes = append(b.Notes, "Freshness boost applied")
		}
	}
	if feedback != 0 {
		b.FeedbackBoost = feedbackFactor * feedback
		b.Notes = append(b.Notes, "User feedback folded in")
	}
	b.TotalScore = b.BaseScore*b.ProviderWeight +
		b.CanonicalBoost + b.FreshnessBoost + b.FeedbackBoost
	return b
}

// feedbackScores pulls the mean signed feedback per candidate, best-effort.
func (r *Router) feedbackScores(
	ctx context.T, cs []*Candidate,
) map[string]float64 {
	if r.feedback == nil || len(cs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	scores, err := r.feedback.FeedbackScores(ctx, ids)
	if chk.E(err) {
		return nil
	}
	return scores
}

// Rank scores a caller-supplied candidate set without re-retrieving.
func (r *Router) Rank(
	ctx context.T, q string, cs []*Candidate,
) []*Candidate {
	lx := r.lexicon()
	for _, c := range cs {
		if c.Canonical == nil {
			r.canonicalize(lx, c)
		}
	}
	return r.rank(ctx, q, cs)
}

// Explain computes the score breakdown for a single candidate.
func (r *Router) Explain(ctx context.T, c *Candidate) *ScoreBreakdown {
	if c.Canonical == nil {
		r.canonicalize(r.lexicon(), c)
	}
	fb := r.feedbackScores(ctx, []*Candidate{c})
	return r.score(c, fb[c.ID])
}
