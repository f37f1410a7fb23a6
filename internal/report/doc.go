// Package report renders a computed build order: the base compile-order CSV
// written to the cache directory and the text, JSON and CSV views printed
// for the user.
package report
