// Package enrich produces the enriched artifact: the base order plus, for
// every node, where its artifacts came from, where they sit in the cache and
// what the registries say about the package. The base order file is only
// ever read by this package; enrichment always goes to its own file.
package enrich
