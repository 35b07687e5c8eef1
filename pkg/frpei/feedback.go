package frpei

import (
	"time"

	"github.com/google/uuid"

	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/errorf"
)

// Feedback values.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
	FeedbackNeutral  = "neutral"
)

// actionFeedback maps UI action synonyms onto feedback values.
var actionFeedback = map[string]string{
	"click":    FeedbackPositive,
	"save":     FeedbackPositive,
	"like":     FeedbackPositive,
	"upvote":   FeedbackPositive,
	"hide":     FeedbackNegative,
	"downvote": FeedbackNegative,
	"dismiss":  FeedbackNegative,
}

// FeedbackRequest is one feedback submission. Either Feedback or Action must
// be set; Action wins when both are.
type FeedbackRequest struct {
	CandidateID string            `json:"candidateId"`
	RequestID   string            `json:"requestId,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Feedback    string            `json:"feedback,omitempty"`
	Action      string            `json:"action,omitempty"`
	Rating      int               `json:"rating,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SaveFeedback validates and appends one feedback entry.
func (r *Router) SaveFeedback(
	ctx context.T, req *FeedbackRequest,
) (entry *store.FeedbackEntry, err error) {
	if r.feedback == nil {
		return nil, errorf.E("feedback store not configured")
	}
	if req.CandidateID == "" {
		return nil, errorf.E("candidateId is required")
	}
	fb := req.Feedback
	if req.Action != "" {
		mapped, known := actionFeedback[req.Action]
		if !known {
			return nil, errorf.E("unknown action %q", req.Action)
		}
		fb = mapped
	}
	switch fb {
	case FeedbackPositive, FeedbackNegative, FeedbackNeutral:
	default:
		return nil, errorf.E("feedback must be positive, negative or neutral")
	}
	entry = &store.FeedbackEntry{
		ID:          uuid.NewString(),
		CandidateID: req.CandidateID,
		RequestID:   req.RequestID,
		Provider:    req.Provider,
		Feedback:    fb,
		Rating:      req.Rating,
		Notes:       req.Notes,
		Metadata:    req.Metadata,
		CreatedAt:   time.Now(),
	}
	if err = r.feedback.SaveFeedback(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
