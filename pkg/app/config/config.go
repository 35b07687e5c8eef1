// Package config provides the go-simpler.org/env configuration table for the
// engine. Values come from the environment, or from a .env file under the XDG
// config directory which overrides anything else.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go-simpler.org/env"

	"beacon.dev/pkg/utils/apputil"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/log"
	"beacon.dev/pkg/utils/lol"
)

// C is the configuration for the beacon-search engine. Every tunable named in
// the component designs is a field here; nothing is hard-coded at call sites.
type C struct {
	AppName  string `env:"BEACON_APP_NAME" default:"beacon-search"`
	Config   string `env:"BEACON_CONFIG_DIR" usage:"location of the optional .env configuration file"`
	DataDir  string `env:"BEACON_DATA_DIR" usage:"storage location for the crawl state store"`
	Listen   string `env:"BEACON_LISTEN" default:"0.0.0.0" usage:"network listen address"`
	Port     int    `env:"BEACON_PORT" default:"3336" usage:"port to listen on"`
	LogLevel string `env:"BEACON_LOG_LEVEL" default:"info" usage:"log level: off fatal error warn info debug trace"`
	Pprof    bool   `env:"BEACON_PPROF" default:"false" usage:"enable pprof on 127.0.0.1:6060"`

	DatabaseURL string `env:"BEACON_DATABASE_URL" usage:"postgres connection URL for the document store"`

	EmbedURL       string `env:"BEACON_EMBED_URL" usage:"HTTP endpoint returning dense vectors for text"`
	EmbedDimension int    `env:"BEACON_EMBED_DIMENSION" default:"768" usage:"dimension D of document embeddings"`

	SeedRelays []string `env:"BEACON_SEED_RELAYS" default:"wss://relay.damus.io,wss://nos.lol,wss://relay.nostr.band" usage:"initial relay set for the crawler"`

	// Relay pool defaults, applied to every relay on first contact.
	RelayMaxEventsPerSecond int           `env:"BEACON_RELAY_MAX_EPS" default:"5" usage:"per relay request rate ceiling"`
	RelayBurstSize          int           `env:"BEACON_RELAY_BURST" default:"10" usage:"per relay burst ceiling inside one second"`
	RelayCooldown           time.Duration `env:"BEACON_RELAY_COOLDOWN" default:"100ms" usage:"sleep applied when a relay burst ceiling is hit"`
	RelayMaxFilterSize      int           `env:"BEACON_RELAY_MAX_FILTER" default:"500" usage:"largest filter limit sent to a relay"`
	RelayDiscoverTimeout    time.Duration `env:"BEACON_RELAY_DISCOVER_TIMEOUT" default:"7s" usage:"NIP-11 capability fetch budget"`
	RelayFetchTimeout       time.Duration `env:"BEACON_RELAY_FETCH_TIMEOUT" default:"30s" usage:"single relay subscription budget"`

	// Crawler.
	CrawlKinds     []int `env:"BEACON_CRAWL_KINDS" default:"1,30023,30024,30402,30040,1063,30311" usage:"event kinds crawled, in priority order"`
	CrawlBatchSize int   `env:"BEACON_CRAWL_BATCH" default:"500" usage:"pagination batch size"`
	CrawlRelays    int   `env:"BEACON_CRAWL_RELAYS" default:"8" usage:"relays selected per pagination step"`

	// Spam filter thresholds. The composite filter is all-or-nothing.
	SpamMinLength      int     `env:"BEACON_SPAM_MIN_LENGTH" default:"12" usage:"minimum content length after stripping punctuation"`
	SpamMaxRepetition  float64 `env:"BEACON_SPAM_MAX_REPETITION" default:"0.4" usage:"maximum most-frequent-token ratio"`
	SpamMaxNonASCII    float64 `env:"BEACON_SPAM_MAX_NON_ASCII" default:"0.6" usage:"maximum ratio of non-ASCII or emoji runes"`
	SpamMaxURLRatio    float64 `env:"BEACON_SPAM_MAX_URL_RATIO" default:"0.5" usage:"maximum URL-to-text ratio"`
	SpamMaxPostsPerMin int     `env:"BEACON_SPAM_MAX_POSTS_PER_MIN" default:"20" usage:"per pubkey posting rate ceiling"`

	// Query rewriting caps.
	MaxExpansionsPerTerm int `env:"BEACON_MAX_EXPANSIONS_PER_TERM" default:"8" usage:"expansions kept per query term"`
	MaxTotalExpansions   int `env:"BEACON_MAX_TOTAL_EXPANSIONS" default:"32" usage:"total expansion cap per query"`
	MaxFuzzyMatches      int `env:"BEACON_MAX_FUZZY_MATCHES" default:"4" usage:"fuzzy candidates kept per query"`
	FuzzyMaxDistance     int `env:"BEACON_FUZZY_MAX_DISTANCE" default:"2" usage:"Levenshtein distance ceiling for fuzzy matching"`
	VectorTermLimit      int `env:"BEACON_VECTOR_TERM_LIMIT" default:"6" usage:"terms forming the vector query"`

	// Federated router.
	FRPEICacheTTL    time.Duration `env:"BEACON_FRPEI_CACHE_TTL" default:"5m" usage:"retrieve cache entry lifetime"`
	FRPEITimeout     time.Duration `env:"BEACON_FRPEI_TIMEOUT" default:"5s" usage:"default request budget for retrieve"`
	ProviderTimeout  time.Duration `env:"BEACON_PROVIDER_TIMEOUT" default:"3s" usage:"default per provider budget"`
	BreakerFailures  int           `env:"BEACON_BREAKER_FAILURES" default:"3" usage:"consecutive failures that open a provider breaker"`
	BreakerSuccesses int           `env:"BEACON_BREAKER_SUCCESSES" default:"2" usage:"half-open successes that close a provider breaker"`
	BreakerReset     time.Duration `env:"BEACON_BREAKER_RESET" default:"30s" usage:"open state duration before probes are admitted"`
	WebProviderURL   string        `env:"BEACON_WEB_PROVIDER_URL" usage:"search endpoint for the web provider"`
	MediaProviderURL string        `env:"BEACON_MEDIA_PROVIDER_URL" usage:"search endpoint for the media provider"`
}

// New creates a new config.C, loading the environment and then the optional
// .env override file.
func New() (cfg *C, err error) {
	cfg = &C{}
	if err = env.Load(cfg, &env.Options{SliceSep: ","}); chk.T(err) {
		return
	}
	if cfg.Config == "" {
		cfg.Config = filepath.Join(xdg.ConfigHome, cfg.AppName)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(xdg.DataHome, cfg.AppName)
	}
	envPath := filepath.Join(cfg.Config, ".env")
	if apputil.FileExists(envPath) {
		if err = loadEnvFile(envPath); chk.E(err) {
			return
		}
		if err = env.Load(cfg, &env.Options{SliceSep: ","}); chk.E(err) {
			return
		}
		lol.SetLogLevel(cfg.LogLevel)
		log.I.F("loaded configuration from %s", envPath)
	}
	return
}

// loadEnvFile reads KEY=value lines into the process environment without
// overriding keys that are already set.
func loadEnvFile(path string) (err error) {
	var b []byte
	if b, err = os.ReadFile(path); chk.E(err) {
		return
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if _, present := os.LookupEnv(k); !present {
			if err = os.Setenv(k, v); chk.E(err) {
				return
			}
		}
	}
	return
}

// HelpRequested reports whether the first argument asks for usage output.
func HelpRequested() (help bool) {
	if len(os.Args) > 1 {
		switch strings.ToLower(os.Args[1]) {
		case "help", "-h", "--h", "-help", "--help", "?":
			help = true
		}
	}
	return
}

// GetEnv reports whether the first argument asks for a dump of the current
// configuration in .env form.
func GetEnv() (requested bool) {
	if len(os.Args) > 1 && strings.ToLower(os.Args[1]) == "env" {
		requested = true
	}
	return
}

// KV is one environment key and its current value.
type KV struct{ Key, Value string }

// EnvKV returns the configuration as sorted KEY=value pairs.
func EnvKV(cfg *C) (list []KV) {
	t := reflect.TypeOf(*cfg)
	v := reflect.ValueOf(*cfg)
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		val := v.Field(i)
		var rendered string
		switch val.Kind() {
		case reflect.Slice:
			var parts []string
			for j := 0; j < val.Len(); j++ {
				parts = append(parts, fmt.Sprint(val.Index(j).Interface()))
			}
			rendered = strings.Join(parts, ",")
		default:
			rendered = fmt.Sprint(val.Interface())
		}
		list = append(list, KV{Key: key, Value: rendered})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return
}

// PrintEnv writes the current configuration as a .env document.
func PrintEnv(cfg *C, w io.Writer) {
	for _, kv := range EnvKV(cfg) {
		fmt.Fprintf(w, "%s=%s\n", kv.Key, kv.Value)
	}
}

// PrintHelp writes usage, the environment table and the .env search path.
func PrintHelp(cfg *C, w io.Writer) {
	fmt.Fprintf(
		w, "%s - multi-source semantic search engine\n\n"+
			"configuration is via environment variables, or a .env file in %s\n\n",
		cfg.AppName, cfg.Config,
	)
	t := reflect.TypeOf(*cfg)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("env")
		if key == "" {
			continue
		}
		fmt.Fprintf(
			w, "  %-36s %-14s %s (default %q)\n", key, f.Type.String(),
			f.Tag.Get("usage"), f.Tag.Get("default"),
		)
	}
	fmt.Fprintln(w)
}
