package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/utils/context"
)

// RankInput is the rank request body.
type RankInput struct {
	Body struct {
		Query      string             `json:"query,omitempty"`
		Candidates []*frpei.Candidate `json:"candidates"`
	}
}

// RankOutput is the rank response body.
type RankOutput struct {
	Body struct {
		Ranked []*frpei.Candidate `json:"ranked"`
	}
}

// RegisterRank implements the rank HTTP API method.
func (x *Operations) RegisterRank(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "rank",
			Summary:     "Rank",
			Description: "Score and order a caller-supplied candidate set with the composite provider, canonical, freshness and feedback weighting.",
			Path:        x.path + "/rank",
			Method:      http.MethodPost,
			Tags:        []string{"frpei"},
		}, func(ctx context.T, input *RankInput) (
			output *RankOutput, err error,
		) {
			output = &RankOutput{}
			output.Body.Ranked = x.Router.Rank(
				ctx, input.Body.Query, input.Body.Candidates)
			return output, nil
		},
	)
}
