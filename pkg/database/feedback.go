package database

import (
	"encoding/json"

	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
)

// SaveFeedback appends one feedback entry. The log is append-only; entries
// are never updated or deleted.
func (d *D) SaveFeedback(c context.T, e *store.FeedbackEntry) (err error) {
	var md []byte
	if e.Metadata != nil {
		if md, err = json.Marshal(e.Metadata); chk.E(err) {
			return
		}
	}
	_, err = d.db.ExecContext(c, `
		INSERT INTO frpei_feedback (
			id, candidate_id, request_id, provider, feedback, rating,
			notes, metadata, created_at
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5,
			NULLIF($6, 0), NULLIF($7, ''), $8, $9)`,
		e.ID, e.CandidateID, e.RequestID, e.Provider, e.Feedback,
		e.Rating, e.Notes, md, e.CreatedAt)
	return
}

type feedbackScoreRow struct {
	CandidateID string  `db:"candidate_id"`
	Score       float64 `db:"score"`
}

// FeedbackScores returns the mean signed feedback per candidate: positive 1,
// negative −1, neutral 0. Candidates with no feedback are absent.
func (d *D) FeedbackScores(
	c context.T, candidateIDs []string,
) (scores map[string]float64, err error) {
	scores = make(map[string]float64)
	if len(candidateIDs) == 0 {
		return
	}
	var rows []feedbackScoreRow
	if err = d.db.SelectContext(c, &rows, `
		SELECT candidate_id, avg(
			CASE feedback
				WHEN 'positive' THEN 1.0
				WHEN 'negative' THEN -1.0
				ELSE 0.0
			END
		) AS score
		FROM frpei_feedback
		WHERE candidate_id = ANY($1)
		GROUP BY candidate_id`,
		candidateIDs,
	); chk.E(err) {
		return
	}
	for _, row := range rows {
		scores[row.CandidateID] = row.Score
	}
	return
}
