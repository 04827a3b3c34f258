// Package preflight provides readiness checks for the filesystem paths, the
// availability cache, and the JustWatch catalog that refreshes depend on.
//
// The CLI "mubi status" command runs RunAll and prints each Result; the
// streaming refresh calls CheckDirectoryAccess on the data directory before
// taking the refresh lock so a doomed run fails before any lookup.
package preflight
