package database

import (
	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
)

// Facet caps.
const (
	maxTagFacets    = 30
	maxAuthorFacets = 30
	maxEntityFacets = 20
)

// Facets computes the faceted breakdown of the whole index: tags, authors,
// content and document types, sentiment, entity values per type, and date
// buckets.
func (d *D) Facets(c context.T) (f *doc.Facets, err error) {
	f = &doc.Facets{Entities: make(map[string][]doc.FacetCount)}
	if f.Tags, err = d.facetQuery(c, `
		SELECT tag AS value, count(*) AS count
		FROM document_tags GROUP BY tag
		ORDER BY count DESC, value LIMIT $1`, maxTagFacets,
	); chk.E(err) {
		return
	}
	if f.Authors, err = d.facetQuery(c, `
		SELECT value, sum(count)::bigint AS count FROM (
			SELECT coalesce(attributes->>'author', attributes->>'pubkey')
				AS value, count(*) AS count
			FROM documents
			WHERE coalesce(attributes->>'author', attributes->>'pubkey')
				IS NOT NULL
			GROUP BY 1
			UNION ALL
			SELECT value, count(*) AS count
			FROM document_metadata
			WHERE key IN ('author', 'detected_author')
			GROUP BY value
		) u GROUP BY value
		ORDER BY count DESC, value LIMIT $1`, maxAuthorFacets,
	); chk.E(err) {
		return
	}
	if f.ContentTypes, err = d.facetQuery(c, `
		SELECT content_type AS value, count(*) AS count
		FROM documents GROUP BY content_type
		ORDER BY count DESC, value`,
	); chk.E(err) {
		return
	}
	if f.DocumentTypes, err = d.facetQuery(c, `
		SELECT document_type AS value, count(*) AS count
		FROM documents WHERE document_type <> ''
		GROUP BY document_type ORDER BY count DESC, value`,
	); chk.E(err) {
		return
	}
	if f.Sentiments, err = d.facetQuery(c, `
		SELECT value, count(*) AS count
		FROM document_metadata WHERE key = 'sentiment'
		GROUP BY value ORDER BY count DESC, value`,
	); chk.E(err) {
		return
	}
	if err = d.entityFacets(c, f); chk.E(err) {
		return
	}
	if err = d.dateFacets(c, f); chk.E(err) {
		return
	}
	return f, nil
}

func (d *D) facetQuery(
	c context.T, q string, args ...any,
) (counts []doc.FacetCount, err error) {
	err = d.db.SelectContext(c, &counts, q, args...)
	return
}

type entityRow struct {
	EntityType string `db:"entity_type"`
	Value      string `db:"value"`
	Count      int64  `db:"count"`
}

func (d *D) entityFacets(c context.T, f *doc.Facets) (err error) {
	var rows []entityRow
	if err = d.db.SelectContext(c, &rows, `
		SELECT entity_type, value, count FROM (
			SELECT entity_type, entity_value AS value, count(*) AS count,
				row_number() OVER (
					PARTITION BY entity_type ORDER BY count(*) DESC
				) AS rn
			FROM document_entities
			WHERE entity_type IN ('PERSON', 'ORGANIZATION', 'LOCATION')
			GROUP BY entity_type, entity_value
		) t WHERE rn <= $1
		ORDER BY entity_type, count DESC, value`, maxEntityFacets,
	); chk.E(err) {
		return
	}
	for _, row := range rows {
		f.Entities[row.EntityType] = append(
			f.Entities[row.EntityType],
			doc.FacetCount{Value: row.Value, Count: row.Count})
	}
	return
}

type dateRow struct {
	Day24 int64 `db:"day24"`
	Week  int64 `db:"week"`
	Month int64 `db:"month"`
	Qtr   int64 `db:"qtr"`
	All   int64 `db:"total"`
}

func (d *D) dateFacets(c context.T, f *doc.Facets) (err error) {
	var row dateRow
	if err = d.db.GetContext(c, &row, `
		SELECT
			count(*) FILTER (WHERE created_at > now() - interval '24 hours')
				AS day24,
			count(*) FILTER (WHERE created_at > now() - interval '7 days')
				AS week,
			count(*) FILTER (WHERE created_at > now() - interval '30 days')
				AS month,
			count(*) FILTER (WHERE created_at > now() - interval '90 days')
				AS qtr,
			count(*) AS total
		FROM documents`,
	); chk.E(err) {
		return
	}
	f.Dates = map[string]int64{
		"24h": row.Day24,
		"7d":  row.Week,
		"30d": row.Month,
		"90d": row.Qtr,
		"all": row.All,
	}
	return
}

// TopAuthors returns the most prolific pubkeys in the local index.
func (d *D) TopAuthors(c context.T, n int) (pubkeys []string, err error) {
	err = d.db.SelectContext(c, &pubkeys, `
		SELECT pubkey FROM nostr_events
		GROUP BY pubkey ORDER BY count(*) DESC, pubkey LIMIT $1`, n)
	return
}
