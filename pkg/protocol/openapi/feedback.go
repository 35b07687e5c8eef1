package openapi

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// FeedbackInput is the feedback submission body.
type FeedbackInput struct {
	Body frpei.FeedbackRequest
}

// FeedbackOutput acknowledges the appended entry.
type FeedbackOutput struct {
	Status int
	Body   struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"createdAt"`
	}
}

// RegisterFeedback implements the feedback HTTP API method.
func (x *Operations) RegisterFeedback(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID:   "feedback",
			Summary:       "Feedback",
			Description:   "Append one feedback entry for a retrieved candidate. Action synonyms (click, save, like, upvote, hide, downvote, dismiss) are accepted in place of an explicit feedback value.",
			Path:          x.path + "/feedback",
			Method:        http.MethodPost,
			DefaultStatus: http.StatusCreated,
			Tags:          []string{"frpei"},
		}, func(ctx context.T, input *FeedbackInput) (
			output *FeedbackOutput, err error,
		) {
			var entry *store.FeedbackEntry
			if entry, err = x.Router.SaveFeedback(ctx, &input.Body); err != nil {
				log.D.F("feedback rejected: %v", err)
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			output = &FeedbackOutput{Status: http.StatusCreated}
			output.Body.ID = entry.ID
			output.Body.CreatedAt = entry.CreatedAt
			return output, nil
		},
	)
}
