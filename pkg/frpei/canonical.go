package frpei

import (
	"strings"
	"time"

	"beacon.dev/pkg/ontology"
	"beacon.dev/pkg/query"
	"beacon.dev/pkg/utils/context"
)

// Canonical match base weights by surface form kind, scaled by the alias
// weight and topped up when the match appears in the title.
const (
	canonTermBase    = 0.90
	canonSynonymBase = 0.75
	canonAliasBase   = 0.65
	canonTitleBonus  = 0.05
)

// canonicalize links the candidate to its best ontology concept, scoring
// every token of title and snippet against the lexicon.
func (r *Router) canonicalize(lx *ontology.Lexicon, c *Candidate) {
	if lx == nil || lx.Empty() {
		return
	}
	title := query.Normalize(c.Title)
	tokens := query.Tokenize(title + " " + query.Normalize(c.Snippet))
	var best *CanonicalMatch
	for _, tok := range tokens {
		for _, m := range lx.Lookup(tok) {
			base := canonAliasBase
			switch m.MatchedBy {
			case ontology.MatchTerm:
				base = canonTermBase
			case ontology.MatchSynonym:
				base = canonSynonymBase
			}
			conf := base * m.AliasWeight
			if strings.Contains(title, tok) {
				conf += canonTitleBonus
			}
			if conf > 1 {
				conf = 1
			}
			if best == nil || conf > best.Confidence {
				best = &CanonicalMatch{
					ConceptID:     m.Concept.ID,
					PreferredTerm: m.Concept.PreferredTerm,
					MatchedTerm:   tok,
					MatchedBy:     string(m.MatchedBy),
					Confidence:    conf,
				}
			}
		}
	}
	c.Canonical = best
}

// enrich attaches the ontology neighborhood and dictionary synonyms of the
// candidate's canonical concept.
func (r *Router) enrich(lx *ontology.Lexicon, c *Candidate) {
	if c.Canonical == nil || lx == nil {
		return
	}
	concept, ok := lx.Concept(c.Canonical.ConceptID)
	if !ok {
		return
	}
	e := &Enrichment{
		Synonyms:   append([]string{}, concept.Synonyms...),
		Taxonomies: append([]string{}, concept.Taxonomies...),
		Confidence: c.Canonical.Confidence,
		Provenance: Provenance{
			Sources:    []string{"ontology"},
			EnrichedAt: time.Now(),
		},
	}
	for _, rel := range concept.Relations {
		if target, found := lx.Concept(rel.TargetID); found {
			e.Related = append(e.Related, target.PreferredTerm)
		}
	}
	if entry, found := lx.Dictionary(concept.PreferredTerm); found {
		e.Synonyms = append(e.Synonyms, entry.Synonyms...)
		e.Provenance.Sources = append(e.Provenance.Sources, "dictionary")
	}
	c.Enrichment = e
}

// Enrich canonicalizes and enriches a caller-supplied candidate set against
// the current lexicon.
func (r *Router) Enrich(ctx context.T, cs []*Candidate) []*Candidate {
	lx := r.lexicon()
	for _, c := range cs {
		if c.Canonical == nil {
			r.canonicalize(lx, c)
		}
		r.enrich(lx, c)
	}
	return cs
}
