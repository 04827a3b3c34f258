// Package justwatch searches the JustWatch GraphQL catalog for movie titles.
//
// The Client paces calls with a minimum interval, retries transient failures
// (timeouts, 429s, 5xx) with exponential backoff, and reports anything that
// survives the retry budget as ErrCatalogUnavailable. An empty result is a
// valid answer and is returned as an empty slice.
package justwatch
