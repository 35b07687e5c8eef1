package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// RetrieveInput is the federated retrieve request body.
type RetrieveInput struct {
	Body frpei.RetrieveRequest
}

// RetrieveOutput is the federated retrieve response body.
type RetrieveOutput struct {
	Body *frpei.RetrieveResponse
}

// RegisterRetrieve implements the federated retrieve HTTP API method.
func (x *Operations) RegisterRetrieve(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "retrieve",
			Summary:     "Retrieve",
			Description: "Federated retrieval across the registered providers with caching, deduplication, canonicalization and ranking. Partial provider failures are reported inside the response.",
			Path:        x.path + "/retrieve",
			Method:      http.MethodPost,
			Tags:        []string{"frpei"},
		}, func(ctx context.T, input *RetrieveInput) (
			output *RetrieveOutput, err error,
		) {
			var resp *frpei.RetrieveResponse
			if resp, err = x.Router.Retrieve(ctx, &input.Body); err != nil {
				log.D.F("retrieve rejected: %v", err)
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			return &RetrieveOutput{Body: resp}, nil
		},
	)
}
