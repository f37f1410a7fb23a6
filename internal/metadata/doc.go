// Package metadata looks up descriptive package information (homepage and
// license) from public registries. Lookups are memoized per query and share
// the host throttle of the HTTP client they are given. A failed lookup is
// never fatal: callers get an empty Info and a logged error.
package metadata
