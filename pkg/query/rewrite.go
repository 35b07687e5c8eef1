package query

import (
	"sort"
	"strings"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/ontology"
)

// Expansion weights. Original query terms carry 1.0, except tokens that
// reached a concept only through an alias or synonym: those drop to the
// preferred weight so the canonical term never ranks below the surface form
// that found it.
const (
	weightOriginal   = 1.0
	weightPreferred  = 0.90
	weightAlias      = 0.70
	weightRelated    = 0.45
	weightHierarchy  = 0.40
	weightAbbrev     = 0.60
	weightFuzzy      = 0.35
	dictionaryFactor = 0.70
)

// Options control one rewrite.
type Options struct {
	Expand               bool `json:"expand"`
	EnableFuzzy          bool `json:"enableFuzzy"`
	EnableAbbrev         bool `json:"enableAbbrev"`
	MaxExpansionsPerTerm int  `json:"maxExpansionsPerTerm"`
	MaxTotalExpansions   int  `json:"maxTotalExpansions"`
	MaxFuzzyMatches      int  `json:"maxFuzzyMatches"`
	FuzzyMaxDistance     int  `json:"fuzzyMaxDistance"`
	VectorTermLimit      int  `json:"vectorTermLimit"`
}

// DefaultOptions returns the configured rewrite limits with all expansion
// stages enabled.
func DefaultOptions(cfg *config.C) Options {
	return Options{
		Expand:               true,
		EnableFuzzy:          true,
		EnableAbbrev:         true,
		MaxExpansionsPerTerm: cfg.MaxExpansionsPerTerm,
		MaxTotalExpansions:   cfg.MaxTotalExpansions,
		MaxFuzzyMatches:      cfg.MaxFuzzyMatches,
		FuzzyMaxDistance:     cfg.FuzzyMaxDistance,
		VectorTermLimit:      cfg.VectorTermLimit,
	}
}

// WeightedTerm is one term of the final expansion set.
type WeightedTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Expansion records where one derived term came from.
type Expansion struct {
	Term   string  `json:"term"`
	From   string  `json:"from"`
	Source string  `json:"source"`
	Weight float64 `json:"weight"`
}

// ConceptMatch is one ontology hit for an original query term.
type ConceptMatch struct {
	Term          string   `json:"term"`
	ConceptID     string   `json:"conceptId"`
	MatchedBy     string   `json:"matchedBy"`
	PreferredTerm string   `json:"preferredTerm"`
	Taxonomies    []string `json:"taxonomies,omitempty"`
}

// FuzzyMatch is one fuzzy correction applied to an unmatched token.
type FuzzyMatch struct {
	Token     string `json:"token"`
	Candidate string `json:"candidate"`
	Distance  int    `json:"distance"`
}

// Explanation is the full rewrite trace.
type Explanation struct {
	Normalized     string         `json:"normalized"`
	Phrases        []string       `json:"phrases,omitempty"`
	Tokens         []string       `json:"tokens,omitempty"`
	ConceptMatches []ConceptMatch `json:"conceptMatches,omitempty"`
	Expansions     []Expansion    `json:"expansions,omitempty"`
	FuzzyMatches   []FuzzyMatch   `json:"fuzzyMatches,omitempty"`
}

// Rewrite is the rewritten query: the weighted term set for lexical OR
// retrieval, the phrase constraints, the vector query string, and the
// explanation of how each term got there.
type Rewrite struct {
	Original    string         `json:"original"`
	Phrases     []string       `json:"phrases,omitempty"`
	Terms       []WeightedTerm `json:"terms"`
	VectorQuery string         `json:"vectorQuery"`
	Explanation *Explanation   `json:"explanation"`
}

// Lexical returns the capped term set as plain strings for the store.
func (r *Rewrite) Lexical() (terms []string) {
	for _, t := range r.Terms {
		terms = append(terms, t.Term)
	}
	return
}

// Rewriter expands queries against one lexicon snapshot.
type Rewriter struct {
	lx *ontology.Lexicon
}

// NewRewriter wraps a lexicon snapshot.
func NewRewriter(lx *ontology.Lexicon) *Rewriter {
	if lx == nil {
		lx = ontology.NewLexicon(nil, nil)
	}
	return &Rewriter{lx: lx}
}

// rewriteAcc accumulates the term → max weight map while honoring the
// per-origin-term expansion cap.
type rewriteAcc struct {
	opt       Options
	weights   map[string]float64
	perOrigin map[string]int
	ex        *Explanation
}

func (acc *rewriteAcc) add(term, from, source string, w float64) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || w <= 0 {
		return
	}
	if source != "original" && term != from {
		if acc.perOrigin[from] >= acc.opt.MaxExpansionsPerTerm {
			return
		}
		if _, known := acc.weights[term]; !known {
			acc.perOrigin[from]++
		}
		acc.ex.Expansions = append(acc.ex.Expansions, Expansion{
			Term: term, From: from, Source: source, Weight: w,
		})
	}
	if w > acc.weights[term] {
		acc.weights[term] = w
	}
}

// Rewrite runs the full rewrite pipeline over a raw query.
func (rw *Rewriter) Rewrite(raw string, opt Options) *Rewrite {
	normalized := Normalize(raw)
	phrases, rest := ExtractPhrases(normalized)
	tokens := Tokenize(rest)

	acc := &rewriteAcc{
		opt:       opt,
		weights:   make(map[string]float64),
		perOrigin: make(map[string]int),
		ex: &Explanation{
			Normalized: normalized,
			Phrases:    phrases,
			Tokens:     tokens,
		},
	}
	matched := make(map[string]bool)
	for _, tok := range tokens {
		w := weightOriginal
		if opt.Expand {
			hit, direct := rw.expandConcepts(acc, tok)
			if hit {
				matched[tok] = true
				if !direct {
					w = weightPreferred
				}
			}
			if rw.expandDictionary(acc, tok, opt.EnableAbbrev) {
				matched[tok] = true
			}
		}
		acc.add(tok, tok, "original", w)
	}
	if opt.EnableFuzzy {
		rw.expandFuzzy(acc, tokens, matched)
	}

	terms := capTerms(acc.weights, opt.MaxTotalExpansions)
	return &Rewrite{
		Original:    raw,
		Phrases:     phrases,
		Terms:       terms,
		VectorQuery: vectorQuery(terms, phrases, opt.VectorTermLimit),
		Explanation: acc.ex,
	}
}

// expandConcepts folds every ontology match of one token into the
// accumulator. direct reports whether the token is itself a preferred term,
// as opposed to reaching its concepts only through aliases or synonyms.
func (rw *Rewriter) expandConcepts(
	acc *rewriteAcc, tok string,
) (hit, direct bool) {
	for _, m := range rw.lx.Lookup(tok) {
		hit = true
		if m.MatchedBy == ontology.MatchTerm {
			direct = true
		}
		c := m.Concept
		acc.ex.ConceptMatches = append(acc.ex.ConceptMatches, ConceptMatch{
			Term:          tok,
			ConceptID:     c.ID,
			MatchedBy:     string(m.MatchedBy),
			PreferredTerm: c.PreferredTerm,
			Taxonomies:    c.Taxonomies,
		})
		acc.add(c.PreferredTerm, tok, "preferred", weightPreferred)
		for _, s := range c.Synonyms {
			acc.add(s, tok, "alias", weightAlias)
		}
		for _, a := range c.Aliases {
			if a.Type == ontology.AliasAbbrev {
				if acc.opt.EnableAbbrev {
					acc.add(a.Alias, tok, "abbrev", weightAbbrev)
				}
				continue
			}
			acc.add(a.Alias, tok, "alias", weightAlias)
		}
		for _, rel := range c.Relations {
			target, ok := rw.lx.Concept(rel.TargetID)
			if !ok {
				continue
			}
			w := weightHierarchy
			if rel.Type == ontology.RelRelated {
				w = weightRelated
			}
			acc.add(target.PreferredTerm, tok, rel.Type, w)
		}
	}
	return
}

// expandDictionary folds the dictionary entry of one token into the
// accumulator.
func (rw *Rewriter) expandDictionary(
	acc *rewriteAcc, tok string, abbrev bool,
) (hit bool) {
	e, ok := rw.lx.Dictionary(tok)
	if !ok {
		return false
	}
	boost := e.BoostWeight
	if boost <= 0 || boost > 1 {
		boost = 1
	}
	for _, s := range e.Synonyms {
		acc.add(s, tok, "dictionary", boost*dictionaryFactor)
	}
	if e.AcronymFor != "" && abbrev {
		acc.add(e.AcronymFor, tok, "abbrev", weightAbbrev)
	}
	return true
}

// expandFuzzy finds the closest lexicon term for each unmatched token.
// Candidates are pruned by first character and length difference before the
// edit distance runs.
func (rw *Rewriter) expandFuzzy(
	acc *rewriteAcc, tokens []string, matched map[string]bool,
) {
	found := 0
	for _, tok := range tokens {
		if found >= acc.opt.MaxFuzzyMatches {
			return
		}
		if matched[tok] {
			continue
		}
		best, bestDist := "", acc.opt.FuzzyMaxDistance+1
		for _, cand := range rw.lx.Terms() {
			if cand == tok || cand[0] != tok[0] {
				continue
			}
			if diff := len(cand) - len(tok); diff > 2 || diff < -2 {
				continue
			}
			d := levenshtein(tok, cand, acc.opt.FuzzyMaxDistance)
			if d < bestDist || (d == bestDist && best != "" && cand < best) {
				best, bestDist = cand, d
			}
		}
		if best == "" || bestDist > acc.opt.FuzzyMaxDistance {
			continue
		}
		found++
		acc.ex.FuzzyMatches = append(acc.ex.FuzzyMatches, FuzzyMatch{
			Token: tok, Candidate: best, Distance: bestDist,
		})
		acc.add(best, tok, "fuzzy", weightFuzzy)
	}
}

// capTerms sorts the merged map by weight descending (term ascending on
// ties) and keeps at most max entries.
func capTerms(weights map[string]float64, max int) (terms []WeightedTerm) {
	for t, w := range weights {
		terms = append(terms, WeightedTerm{Term: t, Weight: w})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Weight == terms[j].Weight {
			return terms[i].Term < terms[j].Term
		}
		return terms[i].Weight > terms[j].Weight
	})
	if max > 0 && len(terms) > max {
		terms = terms[:max]
	}
	return
}

// vectorQuery joins the phrases and the heaviest terms into the string
// handed to the embedder.
func vectorQuery(terms []WeightedTerm, phrases []string, limit int) string {
	parts := append([]string{}, phrases...)
	for i, t := range terms {
		if limit > 0 && i >= limit {
			break
		}
		parts = append(parts, t.Term)
	}
	return strings.Join(parts, " ")
}
