package streamcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"mubi1000/internal/fileutil"
)

// jsonDocument is the on-disk layout of streaming.json.
type jsonDocument struct {
	Metadata encodedMetadata          `json:"metadata"`
	Movies   map[string]encodedRecord `json:"movies"`
}

// JSONBackend stores the whole cache in one JSON file, rewritten atomically
// on every change.
type JSONBackend struct {
	path string

	mu  sync.Mutex
	doc jsonDocument
}

// NewJSONBackend returns a backend for the file at path. The file is created
// on the first write.
func NewJSONBackend(path string) (*JSONBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path required")
	}
	return &JSONBackend{path: path, doc: emptyDocument()}, nil
}

// Path returns the cache file location.
func (b *JSONBackend) Path() string {
	return b.path
}

// Load implements Backend.
func (b *JSONBackend) Load(context.Context) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.doc = emptyDocument()
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{Records: map[string]Record{}}, nil
		}
		return Snapshot{}, fmt.Errorf("read cache file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Snapshot{Records: map[string]Record{}}, nil
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: parse %s: %v", ErrCorruptCache, b.path, err)
	}
	if doc.Movies == nil {
		doc.Movies = map[string]encodedRecord{}
	}

	snapshot := Snapshot{Records: make(map[string]Record, len(doc.Movies))}
	for key, encoded := range doc.Movies {
		rec, err := decodeRecord(key, encoded)
		if err != nil {
			// Dropped from the document too; the next save leaves it out.
			snapshot.skip(key, err)
			delete(doc.Movies, key)
			continue
		}
		snapshot.Records[key] = rec
	}
	meta, err := decodeMetadata(doc.Metadata)
	if err != nil {
		snapshot.MetadataErr = err
		doc.Metadata = encodedMetadata{}
	}
	snapshot.Metadata = meta
	b.doc = doc
	return snapshot, nil
}

// Put implements Backend.
func (b *JSONBackend) Put(_ context.Context, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	previous, existed := b.doc.Movies[rec.Key]
	b.doc.Movies[rec.Key] = encodeRecord(rec)
	if err := b.save(); err != nil {
		if existed {
			b.doc.Movies[rec.Key] = previous
		} else {
			delete(b.doc.Movies, rec.Key)
		}
		return err
	}
	return nil
}

// Delete implements Backend.
func (b *JSONBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	previous, existed := b.doc.Movies[key]
	if !existed {
		return nil
	}
	delete(b.doc.Movies, key)
	if err := b.save(); err != nil {
		b.doc.Movies[key] = previous
		return err
	}
	return nil
}

// Clear implements Backend.
func (b *JSONBackend) Clear(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc = emptyDocument()
	return b.save()
}

// PutMetadata implements Backend.
func (b *JSONBackend) PutMetadata(_ context.Context, meta Metadata) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	previous := b.doc.Metadata
	b.doc.Metadata = encodeMetadata(meta)
	if err := b.save(); err != nil {
		b.doc.Metadata = previous
		return err
	}
	return nil
}

// ModTime implements Backend using the file's modification time.
func (b *JSONBackend) ModTime(context.Context) (time.Time, error) {
	info, err := os.Stat(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("stat cache file: %w", err)
	}
	return info.ModTime(), nil
}

// Close implements Backend.
func (b *JSONBackend) Close() error { return nil }

// save writes the cache to disk atomically.
func (b *JSONBackend) save() error {
	data, err := json.MarshalIndent(b.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := fileutil.WriteAtomic(b.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func emptyDocument() jsonDocument {
	return jsonDocument{Movies: map[string]encodedRecord{}}
}
