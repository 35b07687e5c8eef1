// Package openapi registers the HTTP API: search and facets from the query
// engine, the five federated router operations, ontology administration and
// the status snapshot. One file per operation, registered together through
// huma's AutoRegister.
package openapi

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/crawler"
	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/protocol/servemux"
	"beacon.dev/pkg/query"
)

// Deps is everything the HTTP operations reach into.
type Deps struct {
	Config   *config.C
	Engine   *query.Engine
	Router   *frpei.Router
	Crawler  *crawler.Crawler
	Docs     store.Docs
	Ontology store.Ontology
}

// Operations carries the registered API methods.
type Operations struct {
	*Deps
	path string
}

// NewHuma builds a huma API over the mux.
func NewHuma(sm *servemux.S, name, version, description string) huma.API {
	cfg := huma.DefaultConfig(name, version)
	cfg.Info.Description = description
	return humachi.New(sm.Mux, cfg)
}

// New registers every operation under path.
func New(api huma.API, deps *Deps, path string) {
	huma.AutoRegister(api, &Operations{Deps: deps, path: path})
}
