package openapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/ontology"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// OntologyDump is the wire form of the concept graph and dictionary.
type OntologyDump struct {
	Concepts   []*ontology.Concept         `json:"concepts"`
	Dictionary []*ontology.DictionaryEntry `json:"dictionary,omitempty"`
}

// OntologyImportInput carries a replacement ontology.
type OntologyImportInput struct {
	Body OntologyDump
}

// OntologyImportOutput reports what was imported.
type OntologyImportOutput struct {
	Body struct {
		Concepts   int `json:"concepts"`
		Dictionary int `json:"dictionary"`
	}
}

// RegisterOntologyImport implements the ontology import HTTP API method. The
// import replaces the stored graph and swaps the engine's lexicon snapshot.
func (x *Operations) RegisterOntologyImport(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "ontology-import",
			Summary:     "OntologyImport",
			Description: "Replace the concept graph and dictionary. Running queries keep the previous snapshot; new queries see the import.",
			Path:        x.path + "/ontology/import",
			Method:      http.MethodPost,
			Tags:        []string{"admin"},
		}, func(ctx context.T, input *OntologyImportInput) (
			output *OntologyImportOutput, err error,
		) {
			if err = x.Ontology.ImportConcepts(
				ctx, input.Body.Concepts, input.Body.Dictionary,
			); err != nil {
				log.E.F("ontology import failed: %v", err)
				return nil, huma.Error500InternalServerError("import failed")
			}
			var lx *ontology.Lexicon
			if lx, err = x.Ontology.LoadLexicon(ctx); err != nil {
				log.E.F("lexicon reload failed: %v", err)
				return nil, huma.Error500InternalServerError("reload failed")
			}
			x.Engine.SetLexicon(lx)
			log.I.F("ontology imported: %d concepts, %d dictionary entries",
				len(input.Body.Concepts), len(input.Body.Dictionary))
			output = &OntologyImportOutput{}
			output.Body.Concepts = len(input.Body.Concepts)
			output.Body.Dictionary = len(input.Body.Dictionary)
			return output, nil
		},
	)
}

// OntologyExportOutput is the exported graph.
type OntologyExportOutput struct {
	Body OntologyDump
}

// RegisterOntologyExport implements the ontology export HTTP API method.
func (x *Operations) RegisterOntologyExport(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "ontology-export",
			Summary:     "OntologyExport",
			Description: "Export the stored concept graph and dictionary.",
			Path:        x.path + "/ontology/export",
			Method:      http.MethodGet,
			Tags:        []string{"admin"},
		}, func(ctx context.T, _ *struct{}) (
			output *OntologyExportOutput, err error,
		) {
			output = &OntologyExportOutput{}
			if output.Body.Concepts, output.Body.Dictionary,
				err = x.Ontology.ExportConcepts(ctx); err != nil {
				log.E.F("ontology export failed: %v", err)
				return nil, huma.Error500InternalServerError("export failed")
			}
			return output, nil
		},
	)
}
