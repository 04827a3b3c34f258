package streamcache

import "errors"

var (
	// ErrCorruptCache reports persisted cache data that could not be parsed.
	ErrCorruptCache = errors.New("availability cache is corrupt")
	// ErrLocked reports that another refresh holds the cache lock.
	ErrLocked = errors.New("availability cache is locked by another refresh")
	// ErrNotFound reports a missing cache record.
	ErrNotFound = errors.New("cache record not found")
)
