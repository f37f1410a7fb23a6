// Package app wires the pipeline together: it parses the SBOM, applies the
// filter, computes the build order, maintains the cached base and enriched
// artifacts and renders the report. It is decoupled from any specific
// entrypoint like a CLI.
package app
