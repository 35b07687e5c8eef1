// Package version carries the release string stamped into builds.
package version

// V is the current version of beacon-search.
var V = "v0.3.1"
