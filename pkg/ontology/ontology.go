// Package ontology models the concept graph the query engine and the
// federated router canonicalize against: concepts with synonyms, typed
// aliases, weighted relations and taxonomy memberships, plus the flat
// dictionary of boosted terms and acronyms. Concepts are mutated only via
// import/export; at runtime the engine works off an immutable Lexicon
// snapshot.
package ontology

import (
	"strings"
)

// Alias types.
const (
	AliasSynonym = "synonym"
	AliasAbbrev  = "abbrev"
	AliasPhrase  = "phrase"
	AliasAlt     = "alt"
)

// Relation types.
const (
	RelBroader  = "broader"
	RelNarrower = "narrower"
	RelRelated  = "related"
)

// Alias is an alternative surface form of a concept.
type Alias struct {
	Alias  string  `json:"alias"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// Relation is a weighted edge to another concept.
type Relation struct {
	TargetID string  `json:"targetId"`
	Type     string  `json:"type"`
	Weight   float64 `json:"weight"`
}

// Concept is one node of the ontology graph. The graph is stored as id-keyed
// rows with adjacency lookups, never as a pointer graph.
type Concept struct {
	ID            string     `json:"id"`
	PreferredTerm string     `json:"preferredTerm"`
	Synonyms      []string   `json:"synonyms,omitempty"`
	ParentID      string     `json:"parentId,omitempty"`
	Aliases       []Alias    `json:"aliases,omitempty"`
	Relations     []Relation `json:"relations,omitempty"`
	Taxonomies    []string   `json:"taxonomies,omitempty"`
}

// DictionaryEntry is a flat expansion entry outside the concept graph.
type DictionaryEntry struct {
	Term        string   `json:"term"`
	Synonyms    []string `json:"synonyms,omitempty"`
	AcronymFor  string   `json:"acronymFor,omitempty"`
	BoostWeight float64  `json:"boostWeight"`
}

// MatchKind says which surface form matched a concept.
type MatchKind string

const (
	MatchTerm    MatchKind = "term"
	MatchSynonym MatchKind = "synonym"
	MatchAlias   MatchKind = "alias"
)

// Match is one concept hit for a lookup term.
type Match struct {
	Concept     *Concept
	MatchedBy   MatchKind
	AliasWeight float64
	AliasType   string
}

// Lexicon is an immutable lookup snapshot over the ontology and dictionary,
// built once per load and shared read-only between queries.
type Lexicon struct {
	concepts   map[string]*Concept // id → concept
	surface    map[string][]Match  // lowercased surface form → matches
	dictionary map[string]*DictionaryEntry
	terms      []string // unique surface forms, for fuzzy candidates
}

// NewLexicon builds the lookup snapshot.
func NewLexicon(concepts []*Concept, dict []*DictionaryEntry) *Lexicon {
	lx := &Lexicon{
		concepts:   make(map[string]*Concept, len(concepts)),
		surface:    make(map[string][]Match),
		dictionary: make(map[string]*DictionaryEntry, len(dict)),
	}
	add := func(form string, m Match) {
		form = strings.ToLower(strings.TrimSpace(form))
		if form == "" {
			return
		}
		if _, known := lx.surface[form]; !known {
			lx.terms = append(lx.terms, form)
		}
		lx.surface[form] = append(lx.surface[form], m)
	}
	for _, c := range concepts {
		lx.concepts[c.ID] = c
		add(c.PreferredTerm, Match{Concept: c, MatchedBy: MatchTerm, AliasWeight: 1})
		for _, s := range c.Synonyms {
			add(s, Match{Concept: c, MatchedBy: MatchSynonym, AliasWeight: 1})
		}
		for _, a := range c.Aliases {
			w := a.Weight
			if w == 0 {
				w = 1
			}
			add(a.Alias, Match{
				Concept: c, MatchedBy: MatchAlias, AliasWeight: w,
				AliasType: a.Type,
			})
		}
	}
	for _, e := range dict {
		term := strings.ToLower(strings.TrimSpace(e.Term))
		if term == "" {
			continue
		}
		lx.dictionary[term] = e
		if _, known := lx.surface[term]; !known {
			lx.terms = append(lx.terms, term)
		}
	}
	return lx
}

// Lookup returns the concept matches for a lowercased term.
func (lx *Lexicon) Lookup(term string) []Match {
	return lx.surface[strings.ToLower(term)]
}

// Concept returns a concept by id.
func (lx *Lexicon) Concept(id string) (*Concept, bool) {
	c, ok := lx.concepts[id]
	return c, ok
}

// Dictionary returns the dictionary entry for a lowercased term.
func (lx *Lexicon) Dictionary(term string) (*DictionaryEntry, bool) {
	e, ok := lx.dictionary[strings.ToLower(term)]
	return e, ok
}

// Terms returns every surface form known to the lexicon, for fuzzy matching.
func (lx *Lexicon) Terms() []string { return lx.terms }

// Empty reports whether the lexicon has no concepts and no dictionary.
func (lx *Lexicon) Empty() bool {
	return len(lx.concepts) == 0 && len(lx.dictionary) == 0
}
