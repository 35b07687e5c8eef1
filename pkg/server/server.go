// Package server assembles the HTTP process: the mux with the API
// operations and the prometheus exposition, the crawler lifecycle, and
// graceful shutdown of every component.
package server

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/crawler"
	"beacon.dev/pkg/crawlstate"
	"beacon.dev/pkg/database"
	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/protocol/openapi"
	"beacon.dev/pkg/protocol/servemux"
	"beacon.dev/pkg/query"
	"beacon.dev/pkg/relaypool"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
	"beacon.dev/pkg/version"
)

// APIPath is the mount point of the HTTP API.
const APIPath = "/api"

// Server is the running beacon-search process.
type Server struct {
	Ctx    context.T
	Cancel context.F
	cfg    *config.C

	mux        *servemux.S
	httpServer *http.Server

	DB      *database.D
	State   *crawlstate.Store
	Pool    *relaypool.Pool
	Crawler *crawler.Crawler
	Engine  *query.Engine
	Router  *frpei.Router
}

// Params carries the assembled collaborators into NewServer.
type Params struct {
	Ctx     context.T
	Cancel  context.F
	Cfg     *config.C
	DB      *database.D
	State   *crawlstate.Store
	Pool    *relaypool.Pool
	Crawler *crawler.Crawler
	Engine  *query.Engine
	Router  *frpei.Router
}

// NewServer wires the mux and registers the API operations.
func NewServer(sp *Params) (s *Server) {
	s = &Server{
		Ctx:     sp.Ctx,
		Cancel:  sp.Cancel,
		cfg:     sp.Cfg,
		mux:     servemux.New(),
		DB:      sp.DB,
		State:   sp.State,
		Pool:    sp.Pool,
		Crawler: sp.Crawler,
		Engine:  sp.Engine,
		Router:  sp.Router,
	}
	api := openapi.NewHuma(
		s.mux, sp.Cfg.AppName, version.V,
		"multi-source semantic search with federated retrieval",
	)
	openapi.New(api, &openapi.Deps{
		Config:   sp.Cfg,
		Engine:   sp.Engine,
		Router:   sp.Router,
		Crawler:  sp.Crawler,
		Docs:     sp.DB,
		Ontology: sp.DB,
	}, APIPath)
	s.mux.Handle("/metrics", promhttp.Handler())
	return
}

// Start runs the crawler in the background and serves HTTP until the
// listener dies or Shutdown is called.
func (s *Server) Start(started ...chan bool) (err error) {
	if s.Crawler != nil {
		go func() {
			if cerr := s.Crawler.Run(s.Ctx); cerr != nil &&
				!errors.Is(cerr, context.Canceled) {
				log.E.F("crawler stopped: %v", cerr)
			}
		}()
	}
	addr := net.JoinHostPort(s.cfg.Listen, strconv.Itoa(s.cfg.Port))
	log.I.F("starting listener at http://%s%s", addr, APIPath)
	var ln net.Listener
	if ln, err = net.Listen("tcp", addr); err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Handler:           cors.Default().Handler(s.mux),
		Addr:              addr,
		ReadHeaderTimeout: 7 * time.Second,
		IdleTimeout:       28 * time.Second,
	}
	for _, startedC := range started {
		close(startedC)
	}
	if err = s.httpServer.Serve(ln); errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return
}

// Shutdown stops the HTTP server and releases every component in reverse
// dependency order.
func (s *Server) Shutdown() {
	log.W.F("shutting down")
	s.Cancel()
	if s.httpServer != nil {
		ctx, cancel := context.Timeout(context.Bg(), 5*time.Second)
		defer cancel()
		chk.E(s.httpServer.Shutdown(ctx))
	}
	if s.Router != nil {
		s.Router.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.State != nil {
		chk.E(s.State.Close())
	}
	if s.DB != nil {
		chk.E(s.DB.Close())
	}
	log.I.F("shutdown complete")
}
