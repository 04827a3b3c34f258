// Package identity canonicalizes movie titles and years for matching and for
// availability cache keys.
//
// Normalize folds a title to lower-case letters and digits only, decomposing
// accented characters first so "Amélie" and "Amelie" share a key. The
// function is total and idempotent; every other package compares titles
// through it rather than with ad-hoc string handling.
package identity
