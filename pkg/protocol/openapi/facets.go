package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// FacetsOutput is the facets response body.
type FacetsOutput struct {
	Body *doc.Facets
}

// RegisterFacets implements the facets HTTP API method.
func (x *Operations) RegisterFacets(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "facets",
			Summary:     "Facets",
			Description: "Faceted counts over the whole index: tags, authors, types, sentiment, entities and date buckets.",
			Path:        x.path + "/facets",
			Method:      http.MethodGet,
			Tags:        []string{"query"},
		}, func(ctx context.T, _ *struct{}) (
			output *FacetsOutput, err error,
		) {
			var f *doc.Facets
			if f, err = x.Engine.Facets(ctx); err != nil {
				log.E.F("facets failed: %v", err)
				return nil, huma.Error500InternalServerError("facets failed")
			}
			return &FacetsOutput{Body: f}, nil
		},
	)
}
