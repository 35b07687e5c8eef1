// Package main is a multi-source semantic search engine: an adaptive nostr
// relay crawler feeding a hybrid lexical and vector document index, with a
// federated retrieval router over the local index and external providers.
// Configuration is via environment variables or an optional .env file.
package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/pkg/profile"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/crawler"
	"beacon.dev/pkg/crawlstate"
	"beacon.dev/pkg/database"
	"beacon.dev/pkg/discovery"
	"beacon.dev/pkg/embed"
	"beacon.dev/pkg/frpei"
	"beacon.dev/pkg/frpei/providers"
	"beacon.dev/pkg/ingest"
	"beacon.dev/pkg/ontology"
	"beacon.dev/pkg/query"
	"beacon.dev/pkg/relaypool"
	"beacon.dev/pkg/server"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/interrupt"
	"beacon.dev/pkg/utils/log"
	"beacon.dev/pkg/utils/lol"
	"beacon.dev/pkg/version"
)

func main() {
	var err error
	var cfg *config.C
	if cfg, err = config.New(); chk.T(err) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err)
		}
		config.PrintHelp(cfg, os.Stderr)
		os.Exit(0)
	}
	log.I.F("starting %s %s", cfg.AppName, version.V)
	if config.GetEnv() {
		config.PrintEnv(cfg, os.Stdout)
		os.Exit(0)
	}
	if config.HelpRequested() {
		config.PrintHelp(cfg, os.Stderr)
		os.Exit(0)
	}
	lol.SetLogLevel(cfg.LogLevel)
	if cfg.Pprof {
		defer profile.Start(profile.MemProfile).Stop()
		go func() {
			chk.E(http.ListenAndServe("127.0.0.1:6060", nil))
		}()
	}
	c, cancel := context.Cancel(context.Bg())

	var db *database.D
	if db, err = database.New(
		c, cfg.DatabaseURL, cfg.EmbedDimension,
	); chk.E(err) {
		os.Exit(1)
	}
	var state *crawlstate.Store
	if state, err = crawlstate.Open(
		filepath.Join(cfg.DataDir, "crawlstate"),
	); chk.E(err) {
		os.Exit(1)
	}

	var embedFn embed.Func
	if cfg.EmbedURL != "" {
		embedFn = embed.NewClient(cfg.EmbedURL, cfg.EmbedDimension).Embed
	} else {
		log.W.F("no embedding endpoint configured; lexical retrieval only")
	}

	var lx *ontology.Lexicon
	if lx, err = db.LoadLexicon(c); chk.E(err) {
		os.Exit(1)
	}
	engine := query.New(cfg, db, embedFn, lx)

	pool := relaypool.New(cfg)
	disc := discovery.New(state)
	pipe := ingest.New(cfg, db, embedFn)
	crawl := crawler.New(cfg, pool, disc, pipe, state)

	ps := []frpei.Provider{
		providers.NewLocal(engine, cfg.ProviderTimeout),
	}
	if cfg.WebProviderURL != "" {
		ps = append(ps, providers.NewWeb(cfg.WebProviderURL, cfg.ProviderTimeout))
	}
	if cfg.MediaProviderURL != "" {
		ps = append(ps,
			providers.NewMedia(cfg.MediaProviderURL, cfg.ProviderTimeout))
	}
	router := frpei.NewRouter(cfg, engine.Lexicon, db, db, ps...)

	s := server.NewServer(&server.Params{
		Ctx:     c,
		Cancel:  cancel,
		Cfg:     cfg,
		DB:      db,
		State:   state,
		Pool:    pool,
		Crawler: crawl,
		Engine:  engine,
		Router:  router,
	})
	interrupt.AddHandler(func() { s.Shutdown() })
	if err = s.Start(); chk.E(err) {
		log.F.F("server terminated: %v", err)
	}
}
