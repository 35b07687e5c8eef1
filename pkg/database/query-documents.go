package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/embed"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/errorf"
)

// Hybrid blend: 0.7 on the vector side, 0.3 on the lexical side.
const (
	hybridVectorWeight  = 0.7
	hybridLexicalWeight = 0.3
)

const docColumns = `
	d.id, coalesce(d.external_id, '') AS external_id,
	coalesce(d.source_id, '') AS source_id, d.title, d.content,
	coalesce(d.url, '') AS url, d.document_type, d.content_type,
	d.created_at, d.updated_at, d.attributes AS attrs`

type searchRow struct {
	doc.Document
	RawAttrs  []byte          `db:"attrs"`
	CosineSim sql.NullFloat64 `db:"cosine_sim"`
	LexRank   sql.NullFloat64 `db:"lex_rank"`
	RowScore  sql.NullFloat64 `db:"score"`
}

// Search executes a rewritten query in the requested mode. Results are
// ordered by score with a stable updated_at, id tiebreak.
func (d *D) Search(
	c context.T, q *doc.SearchQuery,
) (results []*doc.SearchResult, err error) {
	if err = d.checkDim(q.Vector); chk.E(err) {
		return
	}
	var args []any
	var where []string
	tsq := tsQuery(q.Lexical, q.Phrases)

	var selectExtra, order string
	switch q.Mode {
	case doc.ModeVector:
		if len(q.Vector) == 0 {
			return nil, errorf.E("vector mode requires a query embedding")
		}
		args = append(args, embed.Literal(q.Vector))
		selectExtra = `,
			1 - (d.embedding <=> $1::vector) AS cosine_sim,
			NULL::float8 AS lex_rank,
			1 - (d.embedding <=> $1::vector) AS score`
		where = append(where, "d.embedding IS NOT NULL")
		order = "d.embedding <=> $1::vector ASC"
	case doc.ModeText:
		if tsq == "" {
			return nil, nil
		}
		args = append(args, tsq)
		selectExtra = `,
			NULL::float8 AS cosine_sim,
			ts_rank(d.tsv, to_tsquery('english', $1)) AS lex_rank,
			ts_rank(d.tsv, to_tsquery('english', $1)) AS score`
		where = append(where, "d.tsv @@ to_tsquery('english', $1)")
		order = "score DESC"
	case doc.ModeHybrid, "":
		if len(q.Vector) == 0 {
			return nil, errorf.E("hybrid mode requires a query embedding")
		}
		args = append(args, embed.Literal(q.Vector))
		lexExpr := "0"
		match := "d.embedding IS NOT NULL"
		if tsq != "" {
			args = append(args, tsq)
			lexExpr = "coalesce(ts_rank(d.tsv, to_tsquery('english', $2)), 0)"
			match = "(d.embedding IS NOT NULL OR d.tsv @@ to_tsquery('english', $2))"
		}
		selectExtra = fmt.Sprintf(`,
			1 - (d.embedding <=> $1::vector) AS cosine_sim,
			%s AS lex_rank,
			%.1f * coalesce(1 - (d.embedding <=> $1::vector), 0)
				+ %.1f * %s AS score`,
			lexExpr, hybridVectorWeight, hybridLexicalWeight, lexExpr)
		where = append(where, match)
		order = "score DESC"
	default:
		return nil, errorf.E("unknown search mode %q", q.Mode)
	}

	where, args = appendFilters(where, args, &q.Filters)
	sqlText := "SELECT " + docColumns + selectExtra + "\n\tFROM documents d"
	if len(where) > 0 {
		sqlText += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	sqlText += "\n\tORDER BY " + order + ", d.updated_at DESC, d.id"
	sqlText += fmt.Sprintf("\n\tLIMIT %d OFFSET %d", q.Limit, q.Offset)

	var rows []searchRow
	if err = d.db.SelectContext(c, &rows, sqlText, args...); chk.E(err) {
		return
	}
	for i := range rows {
		results = append(results, rowToResult(&rows[i]))
	}
	return
}

func rowToResult(row *searchRow) *doc.SearchResult {
	dc := row.Document
	if len(row.RawAttrs) > 0 {
		chk.D(json.Unmarshal(row.RawAttrs, &dc.Attributes))
	}
	res := &doc.SearchResult{Document: &dc}
	if row.RowScore.Valid {
		res.Score = row.RowScore.Float64
	}
	if row.CosineSim.Valid {
		res.CosineSim = row.CosineSim.Float64
	}
	if row.LexRank.Valid {
		res.LexRank = row.LexRank.Float64
	}
	return res
}

// tsQuery builds the to_tsquery input: expansions OR-joined, each phrase an
// adjacency group ANDed in.
func tsQuery(lexical, phrases []string) string {
	var groups []string
	var terms []string
	for _, t := range lexical {
		if t = tsToken(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) > 0 {
		groups = append(groups, "("+strings.Join(terms, " | ")+")")
	}
	for _, p := range phrases {
		var parts []string
		for _, w := range strings.Fields(p) {
			if w = tsToken(w); w != "" {
				parts = append(parts, w)
			}
		}
		if len(parts) > 0 {
			groups = append(groups, "("+strings.Join(parts, " <-> ")+")")
		}
	}
	return strings.Join(groups, " & ")
}

// tsToken strips tsquery syntax from one term. Multi-word expansions become
// adjacency groups themselves.
func tsToken(t string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '&', '|', '!', '(', ')', ':', '\'', '"', '<', '>', '*':
			return ' '
		}
		return r
	}, t)
	words := strings.Fields(clean)
	if len(words) == 0 {
		return ""
	}
	if len(words) == 1 {
		return words[0]
	}
	return "(" + strings.Join(words, " <-> ") + ")"
}

// appendFilters translates the search filters into WHERE clauses.
func appendFilters(
	where []string, args []any, f *doc.Filters,
) ([]string, []any) {
	add := func(clause string, vals ...any) {
		n := len(args)
		for i := range vals {
			clause = strings.ReplaceAll(
				clause, fmt.Sprintf("?%d", i+1), fmt.Sprintf("$%d", n+i+1))
		}
		args = append(args, vals...)
		where = append(where, clause)
	}
	if f.ContentType != "" {
		add("d.content_type = ?1", string(f.ContentType))
	}
	if f.DocumentType != "" {
		add("d.document_type = ?1", f.DocumentType)
	}
	if f.Author != "" {
		add(`(d.attributes->>'author' = ?1
			OR d.attributes->>'pubkey' = ?1
			OR EXISTS (
				SELECT 1 FROM document_metadata m
				WHERE m.document_id = d.id
				  AND m.key IN ('author', 'detected_author')
				  AND m.value = ?1))`, f.Author)
	}
	for key, val := range f.Attributes {
		if !safeAttrKey(key) {
			continue
		}
		path := "{" + strings.ReplaceAll(key, ".", ",") + "}"
		add("d.attributes#>>'"+path+"' = ?1", val)
	}
	if f.Since != nil {
		add("d.created_at >= ?1", *f.Since)
	}
	if f.UntilTime != nil {
		add("d.created_at <= ?1", *f.UntilTime)
	}
	return where, args
}

// safeAttrKey admits only dotted identifier paths; attribute keys end up
// inside the SQL text as jsonb paths.
func safeAttrKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
