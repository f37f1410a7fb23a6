// Package buildcache decides, from content digests, which artifacts of a run
// can be reused and which must be produced again.
//
// Three files are tracked: the source bill of materials, the base order
// artifact and the enriched artifact. Each has its last-known digest in a
// small file under the cache root, next to filters.json, which holds the
// normalized filter fingerprint of the run that wrote the base order.
//
// Missing or unreadable digest files are never an error. They read as "no
// prior state", which always leads to regeneration.
//
// The base order artifact is immutable for a given (source digest, filter
// fingerprint) pair. Enrichment is written to the separate enriched
// artifact, so the base digest stays a stable reference point across
// incremental runs.
package buildcache
