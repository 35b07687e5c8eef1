// Package servemux wraps the chi router the HTTP API registers on, with the
// permissive CORS defaults a public search endpoint needs.
package servemux

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// S is the process-wide HTTP mux.
type S struct {
	*chi.Mux
}

// New creates the mux.
func New() (s *S) {
	return &S{chi.NewRouter()}
}

// ServeHTTP answers preflight requests directly and delegates the rest.
func (s *S) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if r.Method == http.MethodOptions {
		return
	}
	s.Mux.ServeHTTP(w, r)
}
