// Package streamcache persists the raw, unfiltered streaming availability
// looked up for each movie.
//
// Store keeps an in-memory copy of every record and writes each change to an
// injected Backend before returning, so a crash mid-refresh loses at most the
// record being written. Backends exist for a JSON file (the default, and the
// format other tools read), SQLite, Redis, and memory (tests).
//
// Nothing here filters offers; the availability package projects records for
// display at read time so policy changes never require a refetch.
package streamcache
