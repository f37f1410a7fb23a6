// Package fetch resolves and downloads the artifacts attached to graph
// nodes: Maven POM manifests, Maven jars and npm tarballs.
//
// # Attempt chain
//
// Every (node, artifact kind) pair walks the same chain and stops at the
// first success or at the first authentication failure:
//
//  1. Local cache. A file named after the cache key already exists under
//     the artifact directory. No network I/O happens.
//  2. External tool. When a tool such as mvn is installed, it is asked to
//     fetch the artifact. Its output is validated before it is adopted.
//  3. Primary URL. A single GET against the canonical registry location.
//  4. Fallback URL. The same path against a secondary mirror.
//
// HTTP responses are classified as follows:
//   - 401 and 403 mean the artifact needs credentials. The chain stops with
//     StatusAuthRequired.
//   - 404 and transport errors move on to the next link.
//   - A 200 response is accepted only when its body passes structural
//     validation. An empty or invalid body is never written to the cache,
//     and the chain moves on to the next link.
//
// # Deduplication
//
// A Fetcher performs network I/O at most once per cache key for its whole
// lifetime. Concurrent callers for the same key share one in-flight attempt
// through singleflight, and later callers receive the completed record.
//
// # Pool
//
// Pool runs a task list on a fixed number of workers. Start returns a Handle
// whose Wait reports whether every task finished within the timeout. After a
// false return the workers keep going in the background. Results that land
// later are visible through Results, but nothing guarantees they land before
// the process exits.
package fetch
