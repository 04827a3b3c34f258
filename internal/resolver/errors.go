package resolver

import (
	"errors"

	"mubi1000/internal/streamcache"
)

var (
	// ErrInvalidCountry reports a country code that is not two ASCII letters.
	ErrInvalidCountry = errors.New("invalid country code")
	// ErrLocked reports that another refresh holds the cache lock.
	ErrLocked = streamcache.ErrLocked
)
