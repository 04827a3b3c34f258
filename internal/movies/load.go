package movies

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadResult is the outcome of reading a movie list. Invalid records are
// reported and dropped; the rest keep their list order.
type LoadResult struct {
	Movies  []Movie
	Invalid []error
}

// LoadFile reads a scraped list from path.
func LoadFile(path string) (LoadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("open movie list: %w", err)
	}
	defer file.Close()
	result, err := Load(file)
	if err != nil {
		return LoadResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}

// Load decodes a JSON array of movie records.
func Load(r io.Reader) (LoadResult, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return LoadResult{}, fmt.Errorf("decode movie list: %w", err)
	}
	result := LoadResult{Movies: make([]Movie, 0, len(records))}
	for i, rec := range records {
		movie, err := New(rec)
		if err != nil {
			result.Invalid = append(result.Invalid, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		result.Movies = append(result.Movies, movie)
	}
	return result, nil
}
