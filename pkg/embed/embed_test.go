package embed

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"beacon.dev/pkg/utils/context"
)

func TestDeterministic(t *testing.T) {
	ef := Deterministic(16)
	a, err := ef(context.Bg(), "bitcoin lightning relay")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 16 {
		t.Fatalf("dimension = %d, want 16", len(a))
	}
	b, _ := ef(context.Bg(), "bitcoin lightning relay")
	if !reflect.DeepEqual(a, b) {
		t.Error("same input produced different vectors")
	}
	c, _ := ef(context.Bg(), "something else entirely")
	if reflect.DeepEqual(a, c) {
		t.Error("different inputs collided exactly")
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("vector norm² = %v, want unit length", norm)
	}
}

func TestDeterministicEmptyInput(t *testing.T) {
	vec, err := Deterministic(4)(context.Bg(), "")
	if err != nil {
		t.Fatal(err)
	}
	if vec[0] != 1 {
		t.Errorf("empty input vector = %v", vec)
	}
}

func TestCosine(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := Cosine(a, a); math.Abs(got-1) > 1e-9 {
		t.Errorf("self similarity = %v", got)
	}
	if got := Cosine(a, []float32{0, 1, 0}); got != 0 {
		t.Errorf("orthogonal similarity = %v", got)
	}
	if got := Cosine(a, []float32{1, 0}); got != 0 {
		t.Errorf("dimension mismatch similarity = %v", got)
	}
	if got := Cosine(a, []float32{-1, 0, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite similarity = %v", got)
	}
}

func TestLiteral(t *testing.T) {
	if got := Literal([]float32{0.5, -1, 2}); got != "[0.5,-1,2]" {
		t.Errorf("literal = %q", got)
	}
	if got := Literal(nil); got != "[]" {
		t.Errorf("empty literal = %q", got)
	}
}

func TestClientEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			var req embedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Error(err)
			}
			if req.Input != "hello" {
				t.Errorf("input = %q", req.Input)
			}
			json.NewEncoder(w).Encode(embedResponse{
				Embedding: []float32{0.1, 0.2, 0.3},
			})
		}))
	defer srv.Close()

	vec, err := NewClient(srv.URL, 3).Embed(context.Bg(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vector = %v", vec)
	}
}

func TestClientEmbedDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(embedResponse{
				Embedding: []float32{0.1, 0.2},
			})
		}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, 3).Embed(context.Bg(), "hello"); err == nil {
		t.Fatal("dimension mismatch accepted")
	}
}

func TestClientEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, 3).Embed(context.Bg(), "hello"); err == nil {
		t.Fatal("bad gateway accepted")
	}
}
