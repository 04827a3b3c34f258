package resolver

import "time"

// Report aggregates the outcome of one refresh batch. Refreshed, NotFound,
// SkippedFresh and Failed are disjoint; their sum is the number of movies
// processed before the batch ended.
type Report struct {
	RunID   string
	Country string

	Total        int
	Refreshed    int
	NotFound     int
	SkippedFresh int
	Failed       int
	FailedTitles []string

	// WithStreaming counts processed movies whose cached record now has at
	// least one offer, whether refreshed or skipped as fresh.
	WithStreaming int

	StartedAt   time.Time
	Duration    time.Duration
	Interrupted bool
}

// Processed returns how many movies reached an outcome.
func (r Report) Processed() int {
	return r.Refreshed + r.NotFound + r.SkippedFresh + r.Failed
}

// Queried returns how many movies triggered a catalog search.
func (r Report) Queried() int {
	return r.Refreshed + r.NotFound + r.Failed
}
