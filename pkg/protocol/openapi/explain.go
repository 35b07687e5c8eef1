package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/utils/context"
)

// ExplainInput is the explain request body.
type ExplainInput struct {
	Body struct {
		Candidate *frpei.Candidate `json:"candidate"`
	}
}

// ExplainOutput is the explain response body.
type ExplainOutput struct {
	Body struct {
		CandidateID string                `json:"candidateId"`
		Explanation *frpei.ScoreBreakdown `json:"explanation"`
	}
}

// RegisterExplain implements the explain HTTP API method.
func (x *Operations) RegisterExplain(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "explain",
			Summary:     "Explain",
			Description: "Break one candidate's ranking down into its score components.",
			Path:        x.path + "/explain",
			Method:      http.MethodPost,
			Tags:        []string{"frpei"},
		}, func(ctx context.T, input *ExplainInput) (
			output *ExplainOutput, err error,
		) {
			if input.Body.Candidate == nil {
				return nil, huma.Error422UnprocessableEntity(
					"candidate is required")
			}
			output = &ExplainOutput{}
			output.Body.CandidateID = input.Body.Candidate.ID
			output.Body.Explanation = x.Router.Explain(
				ctx, input.Body.Candidate)
			return output, nil
		},
	)
}
