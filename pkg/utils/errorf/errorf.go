// Package errorf constructs errors while logging them at the matching level,
// so a failure site never goes dark just because the caller swallows it.
package errorf

import (
	"fmt"

	"beacon.dev/pkg/utils/log"
)

// E creates a formatted error and logs it at error level.
func E(format string, a ...interface{}) error {
	err := fmt.Errorf(format, a...)
	log.E.Chk(err)
	return err
}

// W creates a formatted error and logs it at warn level.
func W(format string, a ...interface{}) error {
	err := fmt.Errorf(format, a...)
	log.W.Chk(err)
	return err
}
