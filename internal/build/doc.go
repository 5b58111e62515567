// Package build orchestrates full and content-only builds of a site.
//
// A full build regenerates everything: the output directory, the scratch copy of the
// template tree, the reference bundle fragments and the template registry. A content
// build re-renders the source tree against the registry of the last successful full
// build. Every build produces a Report; the Builder keeps the State of the last full
// build and replaces it wholesale when a new full build succeeds.
package build
