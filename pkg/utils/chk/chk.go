// Package chk provides the error check helpers that pair with the if
// assignment idiom: if err = op(); chk.E(err) { return }.
package chk

import (
	"beacon.dev/pkg/utils/log"
)

// E logs err at error level and reports whether it was non-nil.
func E(err error) bool { return log.E.Chk(err) }

// W logs err at warn level and reports whether it was non-nil.
func W(err error) bool { return log.W.Chk(err) }

// D logs err at debug level and reports whether it was non-nil.
func D(err error) bool { return log.D.Chk(err) }

// T logs err at trace level and reports whether it was non-nil.
func T(err error) bool { return log.T.Chk(err) }
