// Package log exposes the short level frontends used everywhere in this
// codebase: log.F (fatal), log.E, log.W, log.I, log.D and log.T.
package log

import (
	"beacon.dev/pkg/utils/lol"
)

var (
	F = lol.New(lol.Fatal)
	E = lol.New(lol.Error)
	W = lol.New(lol.Warn)
	I = lol.New(lol.Info)
	D = lol.New(lol.Debug)
	T = lol.New(lol.Trace)
)
