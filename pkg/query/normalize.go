// Package query is the retrieval engine: query normalization, ontology and
// dictionary driven rewriting with weighted expansion, hybrid (lexical +
// vector) execution against the document store, and facet computation. The
// rewriter never hides state: every expansion it makes is reported back in
// the explanation.
package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
	"‘", "'", "’", "'", "‚", "'",
)

// Normalize canonicalizes a raw query: Unicode NFKC, smart quote
// unification, lowercasing, underscores to spaces, whitespace collapse. It is
// idempotent.
func Normalize(raw string) string {
	s := norm.NFKC.String(raw)
	s = smartQuotes.Replace(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// ExtractPhrases pulls quoted spans out of a normalized query verbatim and
// returns them with the unquoted remainder. An opening quote must start a
// word, so apostrophes inside words survive. Unterminated quotes are treated
// as literal text.
func ExtractPhrases(s string) (phrases []string, rest string) {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '"' || r == '\'') && (i == 0 || runes[i-1] == ' ') {
			if end := closeQuote(runes, i+1, r); end > 0 {
				p := strings.TrimSpace(string(runes[i+1 : end]))
				if p != "" {
					phrases = append(phrases, p)
				}
				i = end
				continue
			}
		}
		b.WriteRune(r)
	}
	return phrases, strings.Join(strings.Fields(b.String()), " ")
}

func closeQuote(runes []rune, from int, q rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == q {
			return i
		}
	}
	return -1
}

// stopwords dropped during tokenization.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {},
}

// Tokenize splits normalized text on whitespace, trims edge punctuation and
// drops stopwords and tokens shorter than two runes.
func Tokenize(s string) (tokens []string) {
	for _, f := range strings.Fields(s) {
		t := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(t)) < 2 {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return
}
