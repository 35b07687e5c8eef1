package database

import (
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
)

// SaveRequest records one federated retrieve request.
func (d *D) SaveRequest(
	c context.T, requestID, query string, providers []string,
) (err error) {
	var ps []byte
	if ps, err = json.Marshal(providers); chk.E(err) {
		return
	}
	_, err = d.db.ExecContext(c, `
		INSERT INTO frpei_requests (request_id, query, providers)
		VALUES ($1, $2, $3)
		ON CONFLICT (request_id) DO NOTHING`,
		requestID, query, ps)
	return
}

// SaveCandidates records the ranked outcome of one request: the candidate
// rows, the rank log, and any enrichment attached along the way.
func (d *D) SaveCandidates(
	c context.T, requestID string, cs []*store.CandidateRecord,
) (err error) {
	if len(cs) == 0 {
		return nil
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
	for _, rec := range cs {
		if _, err = tx.ExecContext(c, `
			INSERT INTO frpei_candidates (request_id, candidate_id, provider)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			requestID, rec.ID, rec.Provider,
		); chk.E(err) {
			return
		}
		if _, err = tx.ExecContext(c, `
			INSERT INTO frpei_rank_log (
				request_id, candidate_id, rank, total_score
			) VALUES ($1, $2, $3, $4)
			ON CONFLICT (request_id, candidate_id) DO UPDATE SET
				rank = EXCLUDED.rank, total_score = EXCLUDED.total_score`,
			requestID, rec.ID, rec.Rank, rec.TotalScore,
		); chk.E(err) {
			return
		}
		if rec.Enrichment == nil {
			continue
		}
		var enr []byte
		if enr, err = json.Marshal(rec.Enrichment); chk.E(err) {
			return
		}
		if _, err = tx.ExecContext(c, `
			INSERT INTO frpei_enrichment (request_id, candidate_id, enrichment)
			VALUES ($1, $2, $3)
			ON CONFLICT (request_id, candidate_id) DO UPDATE SET
				enrichment = EXCLUDED.enrichment`,
			requestID, rec.ID, enr,
		); chk.E(err) {
			return
		}
	}
	return tx.Commit()
}
