package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/utils/context"
)

// EnrichInput is the enrich request body.
type EnrichInput struct {
	Body struct {
		Candidates []*frpei.Candidate `json:"candidates"`
	}
}

// EnrichOutput is the enrich response body.
type EnrichOutput struct {
	Body struct {
		Enriched []*frpei.Candidate `json:"enriched"`
	}
}

// RegisterEnrich implements the enrich HTTP API method.
func (x *Operations) RegisterEnrich(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "enrich",
			Summary:     "Enrich",
			Description: "Canonicalize candidates against the ontology and attach synonyms, related concepts and taxonomies.",
			Path:        x.path + "/enrich",
			Method:      http.MethodPost,
			Tags:        []string{"frpei"},
		}, func(ctx context.T, input *EnrichInput) (
			output *EnrichOutput, err error,
		) {
			output = &EnrichOutput{}
			output.Body.Enriched = x.Router.Enrich(ctx, input.Body.Candidates)
			return output, nil
		},
	)
}
