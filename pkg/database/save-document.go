package database

import (
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/embed"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
)

// UpsertDocument writes a document, its event record, tags and metadata in
// one transaction. Re-running an already indexed event id touches only the
// quality score and indexed_at; event_created_at never changes.
func (d *D) UpsertDocument(
	c context.T, dc *doc.Document, ev *doc.EventRecord,
) (id string, err error) {
	if err = d.checkDim(dc.Embedding); chk.E(err) {
		return
	}
	var tx *sqlx.Tx
	if tx, err = d.db.BeginTxx(c, nil); chk.E(err) {
		return
	}
	defer func() {
		if err != nil {
			chk.D(tx.Rollback())
		}
	}()

	if ev != nil {
		// idempotent re-ingest path
		var existing string
		gerr := tx.GetContext(c, &existing,
			`SELECT document_id FROM nostr_events WHERE event_id = $1`,
			ev.EventID)
		if gerr == nil {
			if _, err = tx.ExecContext(c,
				`UPDATE nostr_events
				    SET quality_score = $2, indexed_at = now()
				  WHERE event_id = $1`,
				ev.EventID, ev.QualityScore,
			); chk.E(err) {
				return
			}
			if err = tx.Commit(); chk.E(err) {
				return
			}
			return existing, nil
		}
	}

	attrs := []byte("{}")
	if dc.Attributes != nil {
		if attrs, err = json.Marshal(dc.Attributes); chk.E(err) {
			return
		}
	}
	var vec any
	if len(dc.Embedding) > 0 {
		vec = embed.Literal(dc.Embedding)
	}
	if err = tx.GetContext(c, &id, `
		INSERT INTO documents (
			external_id, source_id, title, content, url,
			document_type, content_type, created_at, updated_at,
			attributes, embedding
		) VALUES (
			NULLIF($1, ''), NULLIF($2, ''), $3, $4, NULLIF($5, ''),
			$6, $7, $8, now(), $9, $10::vector
		)
		ON CONFLICT (source_id, external_id)
			WHERE source_id IS NOT NULL AND external_id IS NOT NULL
		DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			url = EXCLUDED.url,
			document_type = EXCLUDED.document_type,
			content_type = EXCLUDED.content_type,
			attributes = EXCLUDED.attributes,
			embedding = COALESCE(EXCLUDED.embedding, documents.embedding),
			updated_at = now()
		RETURNING id`,
		dc.ExternalID, dc.SourceID, dc.Title, dc.Content, dc.URL,
		dc.DocumentType, string(dc.ContentType), dc.CreatedAt, attrs, vec,
	); chk.E(err) {
		return
	}

	if ev != nil {
		var tags []byte
		if tags, err = json.Marshal(ev.Tags); chk.E(err) {
			return
		}
		if _, err = tx.ExecContext(c, `
			INSERT INTO nostr_events (
				event_id, pubkey, kind, event_created_at, tags,
				document_id, quality_score
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (event_id) DO UPDATE SET
				quality_score = EXCLUDED.quality_score,
				indexed_at = now()`,
			ev.EventID, ev.Pubkey, ev.Kind, ev.EventCreatedAt, tags,
			id, ev.QualityScore,
		); chk.E(err) {
			return
		}
	}
	if err = d.saveTags(c, tx, id, dc.Tags); chk.E(err) {
		return
	}
	if err = d.saveMetadata(c, tx, id, dc.Metadata); chk.E(err) {
		return
	}
	if err = tx.Commit(); chk.E(err) {
		return
	}
	return id, nil
}

func (d *D) saveTags(
	c context.T, tx *sqlx.Tx, docID string, tags []string,
) (err error) {
	if _, err = tx.ExecContext(c,
		`DELETE FROM document_tags WHERE document_id = $1`, docID,
	); chk.E(err) {
		return
	}
	for _, tag := range tags {
		if _, err = tx.ExecContext(c, `
			INSERT INTO document_tags (document_id, tag) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			docID, tag,
		); chk.E(err) {
			return
		}
	}
	return
}

func (d *D) saveMetadata(
	c context.T, tx *sqlx.Tx, docID string, md map[string]string,
) (err error) {
	if _, err = tx.ExecContext(c,
		`DELETE FROM document_metadata WHERE document_id = $1`, docID,
	); chk.E(err) {
		return
	}
	for key, value := range md {
		if _, err = tx.ExecContext(c, `
			INSERT INTO document_metadata (document_id, key, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (document_id, key) DO UPDATE SET value = EXCLUDED.value`,
			docID, key, value,
		); chk.E(err) {
			return
		}
	}
	return
}

// DeleteDocument removes a document; tags, metadata, entities and the event
// record cascade.
func (d *D) DeleteDocument(c context.T, id string) (err error) {
	_, err = d.db.ExecContext(c,
		`DELETE FROM documents WHERE id = $1`, id)
	return
}
