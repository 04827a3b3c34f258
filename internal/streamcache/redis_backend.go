package streamcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores records in a hash keyed by cache key, with the batch
// metadata and last-write time in sibling keys.
type RedisBackend struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisBackend creates a Redis-backed cache. Keys are namespaced by prefix.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "mubi1000"
	}
	return &RedisBackend{client: client, prefix: prefix, now: time.Now}
}

func (b *RedisBackend) recordsKey() string { return b.prefix + ":records" }
func (b *RedisBackend) metaKey() string    { return b.prefix + ":meta" }
func (b *RedisBackend) updatedKey() string { return b.prefix + ":updated_at" }

// Load implements Backend.
func (b *RedisBackend) Load(ctx context.Context) (Snapshot, error) {
	entries, err := b.client.HGetAll(ctx, b.recordsKey()).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis hgetall: %w", err)
	}
	snapshot := Snapshot{Records: make(map[string]Record, len(entries))}
	for key, raw := range entries {
		rec, err := unmarshalRecord(key, []byte(raw))
		if err != nil {
			snapshot.skip(key, err)
			continue
		}
		snapshot.Records[key] = rec
	}

	data, err := b.client.Get(ctx, b.metaKey()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return Snapshot{}, fmt.Errorf("redis get: %w", err)
	default:
		var encoded encodedMetadata
		if err := json.Unmarshal(data, &encoded); err != nil {
			snapshot.MetadataErr = fmt.Errorf("metadata: %w", err)
			break
		}
		if meta, err := decodeMetadata(encoded); err != nil {
			snapshot.MetadataErr = err
		} else {
			snapshot.Metadata = meta
		}
	}
	return snapshot, nil
}

// Put implements Backend.
func (b *RedisBackend) Put(ctx context.Context, rec Record) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("serialize record: %w", err)
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.recordsKey(), rec.Key, data)
		b.stamp(ctx, pipe)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, b.recordsKey(), key)
		b.stamp(ctx, pipe)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

// Clear implements Backend.
func (b *RedisBackend) Clear(ctx context.Context) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.recordsKey(), b.metaKey())
		b.stamp(ctx, pipe)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// PutMetadata implements Backend.
func (b *RedisBackend) PutMetadata(ctx context.Context, meta Metadata) error {
	data, err := json.Marshal(encodeMetadata(meta))
	if err != nil {
		return fmt.Errorf("serialize metadata: %w", err)
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.metaKey(), data, 0)
		b.stamp(ctx, pipe)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// ModTime implements Backend.
func (b *RedisBackend) ModTime(ctx context.Context) (time.Time, error) {
	raw, err := b.client.Get(ctx, b.updatedKey()).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis get: %w", err)
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", b.updatedKey(), err)
	}
	return time.Unix(0, nanos).UTC(), nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) stamp(ctx context.Context, pipe redis.Pipeliner) {
	pipe.Set(ctx, b.updatedKey(), strconv.FormatInt(b.now().UnixNano(), 10), 0)
}
