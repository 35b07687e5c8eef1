package database

import (
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"beacon.dev/pkg/ontology"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
)

// LoadLexicon reads the whole concept graph and dictionary into an immutable
// lookup snapshot.
func (d *D) LoadLexicon(c context.T) (lx *ontology.Lexicon, err error) {
	var concepts []*ontology.Concept
	var dict []*ontology.DictionaryEntry
	if concepts, dict, err = d.ExportConcepts(c); chk.E(err) {
		return
	}
	return ontology.NewLexicon(concepts, dict), nil
}

// ImportConcepts replaces the concept graph and dictionary atomically.
// Synonyms are stored as aliases typed "synonym" so one table carries every
// surface form.
func (d *D) ImportConcepts(
	c context.T, concepts []*ontology.Concept,
	dict []*ontology.DictionaryEntry,
) (err error) {
	var tx *sqlx.Tx
	if tx, err = d.db.BeginTxx(c, nil); chk.E(err) {
		return
	}
	defer func() {
		if err != nil {
			chk.D(tx.Rollback())
		}
	}()
	for _, stmt := range []string{
		`DELETE FROM ontology`,
		`DELETE FROM ontology_taxonomies`,
		`DELETE FROM dictionary`,
	} {
		if _, err = tx.ExecContext(c, stmt); chk.E(err) {
			return
		}
	}
	taxonomies := make(map[string]struct{})
	for _, concept := range concepts {
		if _, err = tx.ExecContext(c, `
			INSERT INTO ontology (id, preferred_term, parent_id)
			VALUES ($1, $2, NULLIF($3, ''))`,
			concept.ID, concept.PreferredTerm, concept.ParentID,
		); chk.E(err) {
			return
		}
		for _, s := range concept.Synonyms {
			if err = insertAlias(
				c, tx, concept.ID, s, ontology.AliasSynonym, 1,
			); chk.E(err) {
				return
			}
		}
		for _, a := range concept.Aliases {
			w := a.Weight
			if w == 0 {
				w = 1
			}
			if err = insertAlias(
				c, tx, concept.ID, a.Alias, a.Type, w,
			); chk.E(err) {
				return
			}
		}
		for _, t := range concept.Taxonomies {
			taxonomies[t] = struct{}{}
		}
	}
	for t := range taxonomies {
		if _, err = tx.ExecContext(c,
			`INSERT INTO ontology_taxonomies (name) VALUES ($1)`, t,
		); chk.E(err) {
			return
		}
	}
	// relations and taxonomy links go last so every target row exists
	for _, concept := range concepts {
		for _, rel := range concept.Relations {
			if _, err = tx.ExecContext(c, `
				INSERT INTO ontology_relations (
					concept_id, target_id, relation_type, weight
				) VALUES ($1, $2, $3, $4)
				ON CONFLICT DO NOTHING`,
				concept.ID, rel.TargetID, rel.Type, rel.Weight,
			); chk.E(err) {
				return
			}
		}
		for _, t := range concept.Taxonomies {
			if _, err = tx.ExecContext(c, `
				INSERT INTO ontology_concept_taxonomies (
					concept_id, taxonomy_name
				) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`,
				concept.ID, t,
			); chk.E(err) {
				return
			}
		}
	}
	for _, e := range dict {
		var syns []byte
		if syns, err = json.Marshal(e.Synonyms); chk.E(err) {
			return
		}
		if _, err = tx.ExecContext(c, `
			INSERT INTO dictionary (term, synonyms, acronym_for, boost_weight)
			VALUES ($1, $2, NULLIF($3, ''), $4)
			ON CONFLICT (term) DO UPDATE SET
				synonyms = EXCLUDED.synonyms,
				acronym_for = EXCLUDED.acronym_for,
				boost_weight = EXCLUDED.boost_weight`,
			e.Term, syns, e.AcronymFor, e.BoostWeight,
		); chk.E(err) {
			return
		}
	}
	return tx.Commit()
}

func insertAlias(
	c context.T, tx *sqlx.Tx, conceptID, alias, aliasType string, w float64,
) (err error) {
	_, err = tx.ExecContext(c, `
		INSERT INTO ontology_aliases (concept_id, alias, alias_type, weight)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`,
		conceptID, alias, aliasType, w)
	return
}

type conceptRow struct {
	ID            string `db:"id"`
	PreferredTerm string `db:"preferred_term"`
	ParentID      string `db:"parent_id"`
}

type aliasRow struct {
	ConceptID string  `db:"concept_id"`
	Alias     string  `db:"alias"`
	AliasType string  `db:"alias_type"`
	Weight    float64 `db:"weight"`
}

type relationRow struct {
	ConceptID    string  `db:"concept_id"`
	TargetID     string  `db:"target_id"`
	RelationType string  `db:"relation_type"`
	Weight       float64 `db:"weight"`
}

type taxonomyRow struct {
	ConceptID    string `db:"concept_id"`
	TaxonomyName string `db:"taxonomy_name"`
}

type dictionaryRow struct {
	Term        string  `db:"term"`
	Synonyms    []byte  `db:"synonyms"`
	AcronymFor  string  `db:"acronym_for"`
	BoostWeight float64 `db:"boost_weight"`
}

// ExportConcepts reads the full concept graph and dictionary back out.
func (d *D) ExportConcepts(
	c context.T,
) (concepts []*ontology.Concept, dict []*ontology.DictionaryEntry, err error) {
	var crows []conceptRow
	if err = d.db.SelectContext(c, &crows, `
		SELECT id, preferred_term, coalesce(parent_id, '') AS parent_id
		FROM ontology ORDER BY id`,
	); chk.E(err) {
		return
	}
	byID := make(map[string]*ontology.Concept, len(crows))
	for _, row := range crows {
		concept := &ontology.Concept{
			ID:            row.ID,
			PreferredTerm: row.PreferredTerm,
			ParentID:      row.ParentID,
		}
		byID[row.ID] = concept
		concepts = append(concepts, concept)
	}
	var arows []aliasRow
	if err = d.db.SelectContext(c, &arows, `
		SELECT concept_id, alias, alias_type, weight
		FROM ontology_aliases ORDER BY concept_id, alias`,
	); chk.E(err) {
		return
	}
	for _, row := range arows {
		concept, ok := byID[row.ConceptID]
		if !ok {
			continue
		}
		if row.AliasType == ontology.AliasSynonym {
			concept.Synonyms = append(concept.Synonyms, row.Alias)
			continue
		}
		concept.Aliases = append(concept.Aliases, ontology.Alias{
			Alias: row.Alias, Type: row.AliasType, Weight: row.Weight,
		})
	}
	var rrows []relationRow
	if err = d.db.SelectContext(c, &rrows, `
		SELECT concept_id, target_id, relation_type, weight
		FROM ontology_relations ORDER BY concept_id, target_id`,
	); chk.E(err) {
		return
	}
	for _, row := range rrows {
		if concept, ok := byID[row.ConceptID]; ok {
			concept.Relations = append(concept.Relations, ontology.Relation{
				TargetID: row.TargetID, Type: row.RelationType,
				Weight: row.Weight,
			})
		}
	}
	var trows []taxonomyRow
	if err = d.db.SelectContext(c, &trows, `
		SELECT concept_id, taxonomy_name
		FROM ontology_concept_taxonomies ORDER BY concept_id, taxonomy_name`,
	); chk.E(err) {
		return
	}
	for _, row := range trows {
		if concept, ok := byID[row.ConceptID]; ok {
			concept.Taxonomies = append(concept.Taxonomies, row.TaxonomyName)
		}
	}
	var drows []dictionaryRow
	if err = d.db.SelectContext(c, &drows, `
		SELECT term, synonyms, coalesce(acronym_for, '') AS acronym_for,
			boost_weight
		FROM dictionary ORDER BY term`,
	); chk.E(err) {
		return
	}
	for _, row := range drows {
		e := &ontology.DictionaryEntry{
			Term:        row.Term,
			AcronymFor:  row.AcronymFor,
			BoostWeight: row.BoostWeight,
		}
		if len(row.Synonyms) > 0 {
			if err = json.Unmarshal(row.Synonyms, &e.Synonyms); chk.E(err) {
				return
			}
		}
		dict = append(dict, e)
	}
	return
}
