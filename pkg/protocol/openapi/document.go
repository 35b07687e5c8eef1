package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// DocumentDeleteInput names the document to remove.
type DocumentDeleteInput struct {
	ID string `path:"id" doc:"document id"`
}

// RegisterDocumentDelete implements the document delete HTTP API method.
// Tags, metadata, entities and the event record cascade with the row.
func (x *Operations) RegisterDocumentDelete(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID:   "document-delete",
			Summary:       "DocumentDelete",
			Description:   "Remove one document and everything referencing it.",
			Path:          x.path + "/documents/{id}",
			Method:        http.MethodDelete,
			DefaultStatus: http.StatusNoContent,
			Tags:          []string{"admin"},
		}, func(ctx context.T, input *DocumentDeleteInput) (
			output *struct{}, err error,
		) {
			if err = x.Docs.DeleteDocument(ctx, input.ID); err != nil {
				log.E.F("document delete failed: %v", err)
				return nil, huma.Error500InternalServerError("delete failed")
			}
			return nil, nil
		},
	)
}
