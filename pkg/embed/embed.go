// Package embed defines the embedding function the engine is parameterized
// over, an HTTP client implementation of it, and a deterministic in-process
// embedder for tests. Producing embeddings is otherwise out of scope.
package embed

import (
	"bytes"
	"encoding/json"
	"errors"
	"hash/fnv"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/errorf"
)

// Func turns text into a dense vector of the deployment's fixed dimension.
type Func func(c context.T, text string) (vec []float32, err error)

// ErrUnavailable is returned when no embedder is configured; callers degrade
// to lexical retrieval.
var ErrUnavailable = errors.New("no embedding endpoint configured")

// Client calls an external embedding endpoint over HTTP.
type Client struct {
	url string
	dim int
	hc  *http.Client
}

// NewClient returns a client for an endpoint accepting
// {"input": "..."} and answering {"embedding": [...]}.
func NewClient(url string, dim int) *Client {
	return &Client{
		url: url, dim: dim,
		hc: &http.Client{Timeout: 10 * time.Second},
	}
}

type embedRequest struct {
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests a vector for text. A dimension mismatch is a fatal schema
// violation and is reported as such.
func (c *Client) Embed(ctx context.T, text string) (vec []float32, err error) {
	var body []byte
	if body, err = json.Marshal(embedRequest{Input: text}); chk.E(err) {
		return
	}
	var req *http.Request
	if req, err = http.NewRequestWithContext(
		ctx, http.MethodPost, c.url, bytes.NewReader(body),
	); chk.E(err) {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	var resp *http.Response
	if resp, err = c.hc.Do(req); err != nil {
		return nil, errorf.W("embedding endpoint unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errorf.W(
			"embedding endpoint returned %d", resp.StatusCode,
		)
	}
	var er embedResponse
	if err = json.NewDecoder(resp.Body).Decode(&er); chk.E(err) {
		return
	}
	if len(er.Embedding) != c.dim {
		return nil, errorf.E(
			"embedding dimension mismatch: got %d want %d",
			len(er.Embedding), c.dim,
		)
	}
	return er.Embedding, nil
}

// Deterministic returns an embedder that hashes token n-grams into a unit
// vector. It has no semantic value; it exists so vector paths are exercisable
// in tests without a model.
func Deterministic(dim int) Func {
	return func(_ context.T, text string) (vec []float32, err error) {
		vec = make([]float32, dim)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			idx := int(h.Sum32()) % dim
			if idx < 0 {
				idx += dim
			}
			vec[idx] += 1
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			vec[0] = 1
			return
		}
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
		return
	}
}

// Cosine returns the cosine similarity of two equal dimension vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Literal renders a vector as a pgvector literal, e.g. "[0.1,0.2]".
func Literal(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
