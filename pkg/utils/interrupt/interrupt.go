// Package interrupt runs registered handlers when the process receives an
// interrupt or termination signal, giving components a chance to close
// sockets and flush state.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"beacon.dev/pkg/utils/log"
)

var (
	mx       sync.Mutex
	handlers []func()
	started  bool
)

// AddHandler registers fn to run on SIGINT/SIGTERM. Handlers run in
// registration order, then the process exits.
func AddHandler(fn func()) {
	mx.Lock()
	defer mx.Unlock()
	handlers = append(handlers, fn)
	if started {
		return
	}
	started = true
	go listen()
}

func listen() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	log.I.F("received %v, shutting down", sig)
	mx.Lock()
	hs := make([]func(), len(handlers))
	copy(hs, handlers)
	mx.Unlock()
	for _, fn := range hs {
		fn()
	}
	os.Exit(0)
}
