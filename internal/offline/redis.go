package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	keyPrefix    = "lyrics:translations:"
	songsKey     = "lyrics:translation-songs"
	updatedKey   = "lyrics:translation-meta"
	updatedField = "lastUpdated"
)

var _ Cache = (*RedisCache)(nil)

// HashStore RedisCache 用到的 redis 操作，pkg/redis.Client 实现了它
type HashStore interface {
	HSet(ctx context.Context, key string, values ...interface{}) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SAdd(ctx context.Context, key string, members ...interface{}) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}

// RedisCache 每首歌一个 hash：lyrics:translations:<songId>，字段为语言代码
type RedisCache struct {
	store HashStore
	now   func() time.Time
}

func NewRedisCache(store HashStore) *RedisCache {
	return &RedisCache{store: store, now: time.Now}
}

func songKey(songID string) string {
	return keyPrefix + songID
}

func (c *RedisCache) Get(ctx context.Context, songID, language string) (Entry, bool, error) {
	raw, found, err := c.store.HGet(ctx, songKey(songID), language)
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis hget: %w", err)
	}
	if !found {
		return Entry{}, false, nil
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		log.Warn().Err(err).Str("song_id", songID).Str("language", language).Msg("Dropping corrupt cache entry")
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (c *RedisCache) Put(ctx context.Context, e Entry) error {
	now := c.now()
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.store.HSet(ctx, songKey(e.SongID), e.Language, string(data)); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	if err := c.store.SAdd(ctx, songsKey, e.SongID); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	if err := c.store.HSet(ctx, updatedKey, updatedField, now.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (c *RedisCache) All(ctx context.Context) ([]Entry, error) {
	songs, err := c.store.SMembers(ctx, songsKey)
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	var out []Entry
	for _, songID := range songs {
		fields, err := c.store.HGetAll(ctx, songKey(songID))
		if err != nil {
			return nil, fmt.Errorf("redis hgetall: %w", err)
		}
		for _, raw := range fields {
			var e Entry
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				continue
			}
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (c *RedisCache) Stats(ctx context.Context) (Stats, error) {
	entries, err := c.All(ctx)
	if err != nil {
		return Stats{}, err
	}

	var lastUpdated time.Time
	raw, found, err := c.store.HGet(ctx, updatedKey, updatedField)
	if err != nil {
		return Stats{}, fmt.Errorf("redis hget: %w", err)
	}
	if found {
		lastUpdated, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return statsOf("redis", entries, lastUpdated), nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	songs, err := c.store.SMembers(ctx, songsKey)
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}
	keys := make([]string, 0, len(songs)+2)
	for _, songID := range songs {
		keys = append(keys, songKey(songID))
	}
	keys = append(keys, songsKey, updatedKey)

	n, err := c.store.Del(ctx, keys...)
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	log.Info().Int64("keys", n).Msg("Offline cache cleared")
	return nil
}
