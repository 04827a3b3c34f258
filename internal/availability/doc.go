// Package availability turns raw cached offers into the per-service view shown
// to users.
//
// Projection is pure and runs at read time: monetization filter, reseller
// filter, alias collapse, dedupe, then an optional "my services" filter. The
// cache always holds the unfiltered offers, so a policy change takes effect on
// the next read without refetching anything.
//
// Index serves the merged movie list to readers and reloads the list and the
// cache only when their modification times change.
package availability
