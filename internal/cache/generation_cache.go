package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/telemetry"
)

// KeyPrefix namespaces every generation entry in Redis
const KeyPrefix = "synth:"

// ErrUnserializable marks a generation that cannot be encoded for storage.
// Redis was never contacted when Set returns it.
var ErrUnserializable = errors.New("generation is not serializable")

// GenerationCacheEntry represents a cached generation with metadata
type GenerationCacheEntry struct {
	Generation models.Generation `json:"generation"`
	Seed       uint64            `json:"seed"`
	CachedAt   time.Time         `json:"cached_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// GenerationCacheStats tracks cache performance metrics
type GenerationCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// HitRate returns hits as a percentage of lookups
func (s GenerationCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// GenerationCache stores seeded generations in Redis. Only seeded requests
// are deterministic, so callers must never cache an unseeded result.
type GenerationCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
	prefix string

	mu    sync.RWMutex
	stats GenerationCacheStats
}

// NewGenerationCache creates a new Redis-based generation cache
func NewGenerationCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *GenerationCache {
	return &GenerationCache{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
		prefix: KeyPrefix,
	}
}

// Key hashes the canonical JSON form of a request into a cache key
func Key(request any) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("error encoding cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:]), nil
}

// Get retrieves a generation by key
func (c *GenerationCache) Get(ctx context.Context, key string) (*GenerationCacheEntry, bool) {
	ctx, span := telemetry.GetCacheTracer().Start(ctx, "cache.get")
	defer span.End()

	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(func(s *GenerationCacheStats) { s.Misses++ })
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis error getting generation")
		c.record(func(s *GenerationCacheStats) { s.Misses++; s.Errors++ })
		return nil, false
	}

	var entry GenerationCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Error deserializing cached generation")
		c.record(func(s *GenerationCacheStats) { s.Misses++; s.Errors++ })
		return nil, false
	}

	c.record(func(s *GenerationCacheStats) { s.Hits++ })
	return &entry, true
}

// Set stores a generation under key with the configured TTL
func (c *GenerationCache) Set(ctx context.Context, key string, seed uint64, gen models.Generation) error {
	ctx, span := telemetry.GetCacheTracer().Start(ctx, "cache.set")
	defer span.End()

	now := time.Now().UTC()
	entry := GenerationCacheEntry{
		Generation: gen,
		Seed:       seed,
		CachedAt:   now,
		ExpiresAt:  now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.record(func(s *GenerationCacheStats) { s.Errors++ })
		return fmt.Errorf("%w: %w", ErrUnserializable, err)
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.record(func(s *GenerationCacheStats) { s.Errors++ })
		return fmt.Errorf("redis error setting generation: %w", err)
	}

	c.record(func(s *GenerationCacheStats) { s.Sets++ })
	c.logger.WithFields(logrus.Fields{
		"key":  key,
		"rows": gen.Table.Len(),
		"ttl":  c.ttl.String(),
	}).Debug("Cached generation")
	return nil
}

// GetStats returns current cache statistics
func (c *GenerationCache) GetStats() GenerationCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LogStats logs current cache performance statistics
func (c *GenerationCache) LogStats() {
	stats := c.GetStats()
	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"errors":   stats.Errors,
		"hit_rate": fmt.Sprintf("%.2f%%", stats.HitRate()),
	}).Info("Generation cache stats")
}

// Clear removes all cached generations and returns how many were removed
func (c *GenerationCache) Clear(ctx context.Context) (int, error) {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("entries", len(keys)).Info("Cleared generation cache")
	return len(keys), nil
}

func (c *GenerationCache) record(update func(s *GenerationCacheStats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}
