package openapi

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/query"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// SearchInput is the parameters of the search method.
type SearchInput struct {
	Q            string `query:"q" required:"true" doc:"query string; quoted spans become phrase constraints"`
	Mode         string `query:"mode" enum:"vector,text,hybrid" doc:"retrieval mode, hybrid when omitted"`
	Limit        int    `query:"limit" doc:"page size, capped at 100"`
	Offset       int    `query:"offset" doc:"pagination offset"`
	ContentType  string `query:"contentType" doc:"restrict to one content type"`
	DocumentType string `query:"documentType" doc:"restrict to one document type"`
	Author       string `query:"author" doc:"restrict to one author or pubkey"`
	Since        string `query:"since" doc:"RFC3339 lower bound on created_at"`
	Until        string `query:"until" doc:"RFC3339 upper bound on created_at"`
	Explain      bool   `query:"explain" doc:"include the query rewrite trace"`
	NoExpand     bool   `query:"noExpand" doc:"disable ontology expansion"`
}

// SearchOutput is the search response body.
type SearchOutput struct {
	Body *query.Response
}

// RegisterSearch implements the search HTTP API method.
func (x *Operations) RegisterSearch(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "search",
			Summary:     "Search",
			Description: "Hybrid lexical and vector search over the document index, with ontology driven query expansion.",
			Path:        x.path + "/search",
			Method:      http.MethodGet,
			Tags:        []string{"query"},
		}, func(ctx context.T, input *SearchInput) (
			output *SearchOutput, err error,
		) {
			req := &query.Request{
				Query:   input.Q,
				Mode:    doc.SearchMode(input.Mode),
				Limit:   input.Limit,
				Offset:  input.Offset,
				Explain: input.Explain,
				Filters: doc.Filters{
					ContentType:  doc.ContentType(input.ContentType),
					DocumentType: input.DocumentType,
					Author:       input.Author,
				},
			}
			if req.Filters.Since, err = parseTime(input.Since); err != nil {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			if req.Filters.UntilTime, err = parseTime(input.Until); err != nil {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			if input.NoExpand {
				opt := query.DefaultOptions(x.Config)
				opt.Expand = false
				req.Options = &opt
			}
			var resp *query.Response
			if resp, err = x.Engine.Search(ctx, req); err != nil {
				log.E.F("search failed: %v", err)
				return nil, huma.Error500InternalServerError("search failed")
			}
			return &SearchOutput{Body: resp}, nil
		},
	)
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
