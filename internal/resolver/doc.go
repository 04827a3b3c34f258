// Package resolver runs availability refresh batches: for every movie in
// list order it decides whether the cached record is fresh, searches the
// catalog when it is not, picks a candidate, and upserts the outcome.
//
// The batch is sequential. One movie is looked up at a time and a pacing
// delay separates consecutive catalog calls. Per-movie failures are
// collected into the Report; only configuration problems found before the
// first movie (an invalid country, a held refresh lock) abort a run.
//
// Cancellation is honored between movies. A movie whose lookup has started
// is finished and persisted, so an interrupted batch leaves every cached
// record complete.
package resolver
