package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"wrapregistry/internal/registry/models"
	id "wrapregistry/pkg/domain"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wrapregistry_record_cache_hits_total",
		Help: "Wrap record lookups served from Redis.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wrapregistry_record_cache_misses_total",
		Help: "Wrap record lookups that fell through to the store.",
	})
)

const recordKeyPrefix = "wrap:record:"

const defaultCacheTTL = 24 * time.Hour

// cachedRecord is the Redis value shape. The hash travels as raw bytes
// through JSON's base64 encoding.
type cachedRecord struct {
	User      string    `json:"user"`
	Period    uint64    `json:"period"`
	Archetype string    `json:"archetype"`
	Hash      []byte    `json:"hash"`
	MintedAt  time.Time `json:"minted_at"`
}

// CachedStore layers a Redis read-through cache over another Store.
//
// Only positive record lookups are cached: records are immutable, so a
// cached hit can never go stale. Counters and the admin record are
// deliberately never cached; BalanceOf must reflect every committed
// mint immediately, and admin reads gate authorization.
type CachedStore struct {
	Store
	client   *redis.Client
	instance id.InstanceID
	ttl      time.Duration
	logger   *slog.Logger
}

// CacheOption configures a CachedStore.
type CacheOption func(*CachedStore)

// WithCacheTTL bounds how long a cached record lives. Records never
// change, so the TTL only caps memory, not staleness.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedStore) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger attaches a structured logger for cache faults.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedStore) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCached wraps inner with a Redis read-through record cache.
func NewCached(inner Store, client *redis.Client, instance id.InstanceID, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		Store:    inner,
		client:   client,
		instance: instance,
		ttl:      defaultCacheTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *CachedStore) key(user id.AccountID, period uint64) string {
	return fmt.Sprintf("%s%s:%s:%d", recordKeyPrefix, c.instance, user, period)
}

func (c *CachedStore) Get(ctx context.Context, user id.AccountID, period uint64) (*models.WrapRecord, error) {
	if record, ok := c.lookup(ctx, user, period); ok {
		return record, nil
	}

	record, err := c.Store.Get(ctx, user, period)
	if err != nil || record == nil {
		return record, err
	}
	c.fill(ctx, record)
	return record, nil
}

// Exists consults the cache first: a cached record is proof of
// existence. Absence still requires the store, since a miss may simply
// mean the record was never read through here.
func (c *CachedStore) Exists(ctx context.Context, user id.AccountID, period uint64) (bool, error) {
	if _, ok := c.lookup(ctx, user, period); ok {
		return true, nil
	}
	return c.Store.Exists(ctx, user, period)
}

// lookup reads the cache. Any Redis fault degrades to a miss; the
// source of truth is always reachable through the inner store.
func (c *CachedStore) lookup(ctx context.Context, user id.AccountID, period uint64) (*models.WrapRecord, bool) {
	raw, err := c.client.Get(ctx, c.key(user, period)).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheMisses.Inc()
		return nil, false
	}
	if err != nil {
		cacheMisses.Inc()
		c.logger.Warn("record cache read failed", "error", err)
		return nil, false
	}

	var cached cachedRecord
	if err := json.Unmarshal(raw, &cached); err != nil {
		cacheMisses.Inc()
		c.logger.Warn("record cache entry corrupt, ignoring", "error", err)
		return nil, false
	}

	cacheHits.Inc()
	record := &models.WrapRecord{
		User:      id.AccountID(cached.User),
		Period:    cached.Period,
		Archetype: cached.Archetype,
		MintedAt:  cached.MintedAt,
	}
	copy(record.ContentHash[:], cached.Hash)
	return record, true
}

func (c *CachedStore) fill(ctx context.Context, record *models.WrapRecord) {
	value, err := json.Marshal(cachedRecord{
		User:      string(record.User),
		Period:    record.Period,
		Archetype: record.Archetype,
		Hash:      record.ContentHash[:],
		MintedAt:  record.MintedAt,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(record.User, record.Period), value, c.ttl).Err(); err != nil {
		c.logger.Warn("record cache write failed", "error", err)
	}
}
