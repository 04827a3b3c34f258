package streamcache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLiteBackend stores one row per cache record.
type SQLiteBackend struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens or creates the cache database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	backend := &SQLiteBackend{db: db, path: path, now: time.Now}
	if err := backend.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

func (b *SQLiteBackend) initSchema(ctx context.Context) error {
	var tableExists int
	err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return b.createSchema(ctx)
	}

	var version int
	if err := b.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'mubi cache clear' or delete the database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (b *SQLiteBackend) createSchema(ctx context.Context) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Load implements Backend.
func (b *SQLiteBackend) Load(ctx context.Context) (Snapshot, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT cache_key, title, year, services_json, catalog_id, looked_up_at, match_found
         FROM availability`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	snapshot := Snapshot{Records: make(map[string]Record)}
	for rows.Next() {
		var (
			rec          Record
			servicesJSON string
			lookedUpAt   string
			matchFound   int
		)
		if err := rows.Scan(&rec.Key, &rec.Title, &rec.Year, &servicesJSON, &rec.CatalogID, &lookedUpAt, &matchFound); err != nil {
			return Snapshot{}, fmt.Errorf("scan availability: %w", err)
		}
		if err := json.Unmarshal([]byte(servicesJSON), &rec.Offers); err != nil {
			snapshot.skip(rec.Key, fmt.Errorf("record %q services: %w", rec.Key, err))
			continue
		}
		if rec.Offers == nil {
			rec.Offers = []Offer{}
		}
		if rec.LookedUpAt, err = parseTimestamp(lookedUpAt); err != nil {
			snapshot.skip(rec.Key, fmt.Errorf("record %q: %w", rec.Key, err))
			continue
		}
		rec.MatchFound = matchFound != 0
		snapshot.Records[rec.Key] = rec
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate availability: %w", err)
	}

	var (
		meta    encodedMetadata
		lastRun string
	)
	err = b.db.QueryRowContext(ctx,
		"SELECT country, last_full_run, total_queried, total_matched FROM cache_metadata WHERE id = 1",
	).Scan(&meta.Country, &lastRun, &meta.TotalQueried, &meta.TotalMatched)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Snapshot{}, fmt.Errorf("query metadata: %w", err)
	default:
		meta.LastFullRun = lastRun
		if decoded, err := decodeMetadata(meta); err != nil {
			snapshot.MetadataErr = err
		} else {
			snapshot.Metadata = decoded
		}
	}
	return snapshot, nil
}

// Put implements Backend.
func (b *SQLiteBackend) Put(ctx context.Context, rec Record) error {
	services, err := json.Marshal(rec.Offers)
	if err != nil {
		return fmt.Errorf("marshal services: %w", err)
	}
	return b.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO availability (cache_key, title, year, services_json, catalog_id, looked_up_at, match_found)
             VALUES (?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(cache_key) DO UPDATE SET
                title = excluded.title,
                year = excluded.year,
                services_json = excluded.services_json,
                catalog_id = excluded.catalog_id,
                looked_up_at = excluded.looked_up_at,
                match_found = excluded.match_found`,
			rec.Key, rec.Title, rec.Year, string(services), rec.CatalogID,
			formatTimestamp(rec.LookedUpAt), boolToInt(rec.MatchFound),
		)
		if err != nil {
			return fmt.Errorf("upsert availability: %w", err)
		}
		return nil
	})
}

// Delete implements Backend.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	return b.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM availability WHERE cache_key = ?", key); err != nil {
			return fmt.Errorf("delete availability: %w", err)
		}
		return nil
	})
}

// Clear implements Backend.
func (b *SQLiteBackend) Clear(ctx context.Context) error {
	return b.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{"DELETE FROM availability", "DELETE FROM cache_metadata"} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
		}
		return nil
	})
}

// PutMetadata implements Backend.
func (b *SQLiteBackend) PutMetadata(ctx context.Context, meta Metadata) error {
	return b.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cache_metadata (id, country, last_full_run, total_queried, total_matched)
             VALUES (1, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                country = excluded.country,
                last_full_run = excluded.last_full_run,
                total_queried = excluded.total_queried,
                total_matched = excluded.total_matched`,
			meta.Country, formatTimestamp(meta.LastFullRun), meta.TotalQueried, meta.TotalMatched,
		)
		if err != nil {
			return fmt.Errorf("upsert metadata: %w", err)
		}
		return nil
	})
}

// ModTime implements Backend from the last recorded write.
func (b *SQLiteBackend) ModTime(ctx context.Context) (time.Time, error) {
	var updatedAt string
	err := b.db.QueryRowContext(ctx, "SELECT updated_at FROM cache_state WHERE id = 1").Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query cache state: %w", err)
	}
	return parseTimestamp(updatedAt)
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// withTx runs fn and stamps cache_state in the same transaction.
func (b *SQLiteBackend) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cache_state (id, updated_at) VALUES (1, ?)
         ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		formatTimestamp(b.now()),
	)
	if err != nil {
		return fmt.Errorf("stamp cache state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
