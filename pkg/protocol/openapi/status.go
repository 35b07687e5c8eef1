package openapi

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/version"
)

// StatusOutput is the engine status snapshot.
type StatusOutput struct {
	Body struct {
		Version   string                           `json:"version"`
		Providers map[string]frpei.ProviderMetrics `json:"providers"`
		CrawlKind map[string]string                `json:"crawlKinds,omitempty"`
	}
}

// RegisterStatus implements the status HTTP API method.
func (x *Operations) RegisterStatus(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "status",
			Summary:     "Status",
			Description: "Per-provider circuit state and health, plus the per-kind crawl state.",
			Path:        x.path + "/status",
			Method:      http.MethodGet,
			Tags:        []string{"admin"},
		}, func(ctx context.T, _ *struct{}) (
			output *StatusOutput, err error,
		) {
			output = &StatusOutput{}
			output.Body.Version = version.V
			output.Body.Providers = x.Router.Status()
			if x.Crawler != nil {
				output.Body.CrawlKind = make(map[string]string)
				for kind, st := range x.Crawler.StatusByKind() {
					output.Body.CrawlKind[strconv.Itoa(kind)] = st
				}
			}
			return output, nil
		},
	)
}

// MetricsOutput mirrors the provider counters as JSON, the prometheus
// exposition lives at /metrics on the root mux.
type MetricsOutput struct {
	Body struct {
		Providers map[string]frpei.ProviderMetrics `json:"providers"`
	}
}

// RegisterMetrics implements the metrics snapshot HTTP API method.
func (x *Operations) RegisterMetrics(api huma.API) {
	huma.Register(
		api, huma.Operation{
			OperationID: "metrics-snapshot",
			Summary:     "Metrics",
			Description: "JSON snapshot of the per-provider counters.",
			Path:        x.path + "/metrics",
			Method:      http.MethodGet,
			Tags:        []string{"admin"},
		}, func(ctx context.T, _ *struct{}) (
			output *MetricsOutput, err error,
		) {
			output = &MetricsOutput{}
			output.Body.Providers = x.Router.Status()
			return output, nil
		},
	)
}
