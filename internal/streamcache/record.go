package streamcache

import (
	"fmt"
	"strings"
	"time"
)

// Offer is a raw catalog offer as cached. Offers are stored unfiltered.
type Offer struct {
	ServiceName      string `json:"name"`
	TechnicalName    string `json:"technical_name"`
	MonetizationType string `json:"monetization_type"`
	ProviderChannel  string `json:"provider_channel,omitempty"`
}

// Record is the cached lookup outcome for one movie. A record with
// MatchFound=false and no offers is a valid "nothing found" result.
type Record struct {
	Key        string    `json:"-"`
	Title      string    `json:"title,omitempty"`
	Year       string    `json:"year,omitempty"`
	Offers     []Offer   `json:"services"`
	CatalogID  string    `json:"justwatch_id,omitempty"`
	LookedUpAt time.Time `json:"last_updated"`
	MatchFound bool      `json:"match_found"`
}

// Metadata summarizes the most recent refresh batch.
type Metadata struct {
	Country      string    `json:"country,omitempty"`
	LastFullRun  time.Time `json:"last_full_run"`
	TotalQueried int       `json:"total_queried"`
	TotalMatched int       `json:"total_matched"`
}

// Snapshot is everything a backend holds. Records that fail to decode are
// left out of Records and reported in Skipped by key, so the movie is looked
// up again instead of taking its siblings down with it.
type Snapshot struct {
	Records  map[string]Record
	Metadata Metadata
	Skipped  map[string]error
	// MetadataErr is set when the run summary could not be decoded; Metadata
	// is zero in that case.
	MetadataErr error
}

func (s *Snapshot) skip(key string, err error) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]error)
	}
	s.Skipped[key] = err
}

// HasOffers reports whether any offer was cached for the record.
func (r Record) HasOffers() bool {
	return len(r.Offers) > 0
}

// DedupeOffers drops repeated (technical name, monetization type) pairs,
// keeping the first occurrence.
func DedupeOffers(offers []Offer) []Offer {
	out := make([]Offer, 0, len(offers))
	seen := make(map[string]struct{}, len(offers))
	for _, offer := range offers {
		key := offer.TechnicalName + "\x00" + offer.MonetizationType
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, offer)
	}
	return out
}

func (r Record) normalized() (Record, error) {
	r.Key = strings.TrimSpace(r.Key)
	if r.Key == "" {
		return Record{}, fmt.Errorf("cache key cannot be empty")
	}
	if r.LookedUpAt.IsZero() {
		return Record{}, fmt.Errorf("record %q has no lookup time", r.Key)
	}
	r.LookedUpAt = r.LookedUpAt.UTC()
	if r.Offers == nil {
		r.Offers = []Offer{}
	}
	return r, nil
}

// IsStale reports whether a record needs a new lookup. Missing records are
// stale, as is everything when skipDays <= 0.
func IsStale(rec Record, found bool, skipDays int, now time.Time) bool {
	if !found || skipDays <= 0 || rec.LookedUpAt.IsZero() {
		return true
	}
	age := now.UTC().Sub(rec.LookedUpAt.UTC())
	return age >= time.Duration(skipDays)*24*time.Hour
}

// legacyTimestampLayouts covers timestamps written without a zone; they are
// read as UTC.
var legacyTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	for _, layout := range legacyTimestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}
