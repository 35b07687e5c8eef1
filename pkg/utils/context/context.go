// Package context is a set of shorter names for the very stuttery context
// library.
package context

import (
	"context"
	"time"
)

type (
	// T - context.Context
	T = context.Context
	// F - context.CancelFunc
	F = context.CancelFunc
)

var (
	// Bg - context.Background
	Bg = context.Background
	// Cancel - context.WithCancel
	Cancel = context.WithCancel
	// TODO - context.TODO
	TODO = context.TODO
	// Value - context.WithValue
	Value = context.WithValue
	// Canceled - context.Canceled
	Canceled = context.Canceled
	// DeadlineExceeded - context.DeadlineExceeded
	DeadlineExceeded = context.DeadlineExceeded
)

// Timeout - context.WithTimeout
func Timeout(c T, d time.Duration) (T, F) { return context.WithTimeout(c, d) }
