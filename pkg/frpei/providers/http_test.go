package providers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"beacon.dev/pkg/utils/context"
)

func TestHTTPSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("q") != "bitcoin" || q.Get("limit") != "10" {
				t.Errorf("query = %v", q)
			}
			if q.Get("types") != "video,audio" {
				t.Errorf("types = %q", q.Get("types"))
			}
			json.NewEncoder(w).Encode(httpEnvelope{Results: []httpResult{
				{ID: "r1", Title: "clip", URL: "https://m.example/1", Score: 0.8},
				{Title: "untagged", URL: "https://m.example/2", Score: 0.5},
			}})
		}))
	defer srv.Close()

	p := NewMedia(srv.URL, time.Second)
	cs, err := p.Search(context.Bg(), "bitcoin", 10, []string{"video", "audio"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 2 {
		t.Fatalf("candidates = %d", len(cs))
	}
	if cs[0].ID != "r1" || cs[0].Provider != "media" {
		t.Errorf("first = %+v", cs[0])
	}
	// items without an id fall back to their url
	if cs[1].ID != "https://m.example/2" {
		t.Errorf("fallback id = %q", cs[1].ID)
	}
}

func TestHTTPSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
	defer srv.Close()

	if _, err := NewWeb(srv.URL, time.Second).Search(
		context.Bg(), "q", 10, nil,
	); err == nil {
		t.Fatal("503 accepted")
	}
}

func TestHTTPSearchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
	defer srv.Close()

	if _, err := NewWeb(srv.URL, time.Second).Search(
		context.Bg(), "q", 10, nil,
	); err == nil {
		t.Fatal("malformed body accepted")
	}
}

func TestHTTPSearchNoEndpoint(t *testing.T) {
	if _, err := NewWeb("", time.Second).Search(
		context.Bg(), "q", 10, nil,
	); err == nil {
		t.Fatal("missing endpoint accepted")
	}
}

func TestProviderTypeDeclarations(t *testing.T) {
	web := NewWeb("https://w.example", time.Second)
	if web.Name() != "web" || web.Weight() != WebWeight {
		t.Errorf("web = %s/%v", web.Name(), web.Weight())
	}
	media := NewMedia("https://m.example", time.Second)
	found := false
	for _, typ := range media.Types() {
		if typ == "podcast_episode" {
			found = true
		}
	}
	if !found {
		t.Errorf("media types = %v", media.Types())
	}
}
