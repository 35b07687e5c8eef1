package providers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/errorf"
)

// HTTP is a generic JSON search provider: GET endpoint?q=…&limit=…&types=…
// answering {"results": [...]}.
type HTTP struct {
	name     string
	endpoint string
	weight   float64
	timeout  time.Duration
	types    []string
	client   *http.Client
}

// NewWeb builds the general web search provider.
func NewWeb(endpoint string, timeout time.Duration) *HTTP {
	return newHTTP(frpei.ProviderWeb, endpoint, WebWeight, timeout,
		[]string{"text", "article"})
}

// NewMedia builds the audio/video search provider.
func NewMedia(endpoint string, timeout time.Duration) *HTTP {
	return newHTTP(frpei.ProviderMedia, endpoint, MediaWeight, timeout,
		[]string{"audio", "video", "image", "podcast_episode"})
}

func newHTTP(
	name, endpoint string, weight float64, timeout time.Duration,
	types []string,
) *HTTP {
	return &HTTP{
		name:     name,
		endpoint: endpoint,
		weight:   weight,
		timeout:  timeout,
		types:    types,
		client:   &http.Client{Timeout: timeout},
	}
}

func (h *HTTP) Name() string           { return h.name }
func (h *HTTP) Weight() float64        { return h.weight }
func (h *HTTP) Timeout() time.Duration { return h.timeout }

// Types declares what this provider can serve, used when a retrieve filters
// providers by requested types.
func (h *HTTP) Types() []string { return h.types }

type httpResult struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet"`
	URL         string     `json:"url"`
	Type        string     `json:"type"`
	Score       float64    `json:"score"`
	PublishedAt *time.Time `json:"publishedAt"`
}

type httpEnvelope struct {
	Results []httpResult `json:"results"`
}

// Search issues one search call against the endpoint.
func (h *HTTP) Search(
	ctx context.T, q string, limit int, types []string,
) (cs []*frpei.Candidate, err error) {
	if h.endpoint == "" {
		return nil, errorf.E("provider %s has no endpoint configured", h.name)
	}
	v := url.Values{}
	v.Set("q", q)
	v.Set("limit", strconv.Itoa(limit))
	if len(types) > 0 {
		v.Set("types", strings.Join(types, ","))
	}
	var req *http.Request
	if req, err = http.NewRequestWithContext(
		ctx, http.MethodGet, h.endpoint+"?"+v.Encode(), nil,
	); chk.E(err) {
		return
	}
	req.Header.Set("Accept", "application/json")
	var res *http.Response
	if res, err = h.client.Do(req); err != nil {
		return
	}
	defer func() { chk.D(res.Body.Close()) }()
	if res.StatusCode != http.StatusOK {
		return nil, errorf.E("provider %s answered %s", h.name, res.Status)
	}
	var env httpEnvelope
	if err = json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, errorf.E("provider %s sent malformed JSON: %w", h.name, err)
	}
	for _, item := range env.Results {
		id := item.ID
		if id == "" {
			id = item.URL
		}
		cs = append(cs, &frpei.Candidate{
			ID:          id,
			Provider:    h.name,
			Title:       item.Title,
			Snippet:     item.Snippet,
			URL:         item.URL,
			Type:        item.Type,
			Score:       item.Score,
			PublishedAt: item.PublishedAt,
		})
	}
	return
}
