package streamcache

import (
	"encoding/json"
	"fmt"
)

// encodedRecord is the persisted JSON form of a Record. Timestamps are kept
// as strings so files written without a zone still load.
type encodedRecord struct {
	Title       string  `json:"title,omitempty"`
	Year        string  `json:"year,omitempty"`
	Services    []Offer `json:"services"`
	JustWatchID *string `json:"justwatch_id"`
	LastUpdated string  `json:"last_updated"`
	MatchFound  *bool   `json:"match_found,omitempty"`
}

type encodedMetadata struct {
	Country      string `json:"country,omitempty"`
	LastFullRun  string `json:"last_full_run,omitempty"`
	TotalQueried int    `json:"total_queried"`
	TotalMatched int    `json:"total_matched"`
}

func encodeRecord(rec Record) encodedRecord {
	out := encodedRecord{
		Title:       rec.Title,
		Year:        rec.Year,
		Services:    rec.Offers,
		LastUpdated: formatTimestamp(rec.LookedUpAt),
		MatchFound:  &rec.MatchFound,
	}
	if out.Services == nil {
		out.Services = []Offer{}
	}
	if rec.CatalogID != "" {
		id := rec.CatalogID
		out.JustWatchID = &id
	}
	return out
}

func decodeRecord(key string, in encodedRecord) (Record, error) {
	lookedUp, err := parseTimestamp(in.LastUpdated)
	if err != nil {
		return Record{}, fmt.Errorf("record %q: %w", key, err)
	}
	rec := Record{
		Key:        key,
		Title:      in.Title,
		Year:       in.Year,
		Offers:     in.Services,
		LookedUpAt: lookedUp,
	}
	if rec.Offers == nil {
		rec.Offers = []Offer{}
	}
	if in.JustWatchID != nil {
		rec.CatalogID = *in.JustWatchID
	}
	if in.MatchFound != nil {
		rec.MatchFound = *in.MatchFound
	} else {
		// Older files did not store the flag; a catalog id means a match.
		rec.MatchFound = rec.CatalogID != ""
	}
	return rec, nil
}

func encodeMetadata(meta Metadata) encodedMetadata {
	return encodedMetadata{
		Country:      meta.Country,
		LastFullRun:  formatTimestamp(meta.LastFullRun),
		TotalQueried: meta.TotalQueried,
		TotalMatched: meta.TotalMatched,
	}
}

func decodeMetadata(in encodedMetadata) (Metadata, error) {
	lastRun, err := parseTimestamp(in.LastFullRun)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata: %w", err)
	}
	return Metadata{
		Country:      in.Country,
		LastFullRun:  lastRun,
		TotalQueried: in.TotalQueried,
		TotalMatched: in.TotalMatched,
	}, nil
}

func marshalRecord(rec Record) ([]byte, error) {
	return json.Marshal(encodeRecord(rec))
}

func unmarshalRecord(key string, data []byte) (Record, error) {
	var in encodedRecord
	if err := json.Unmarshal(data, &in); err != nil {
		return Record{}, fmt.Errorf("record %q: %w", key, err)
	}
	return decodeRecord(key, in)
}
