package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the part of go-redis the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// CachingFetcher serves repeated GETs from redis. POSTs and empty payloads
// are never cached, so the orchestrator's empty-payload retry still reaches
// the network. A body the cacheable check rejects is returned but not stored.
type CachingFetcher struct {
	next      Fetcher
	redis     RedisClient
	ttl       time.Duration
	prefix    string
	cacheable func([]byte) bool
	logger    *slog.Logger
}

type CacheOption func(*CachingFetcher)

// WithPrefix sets the redis key prefix. The default is "fetch:".
func WithPrefix(prefix string) CacheOption {
	return func(c *CachingFetcher) { c.prefix = prefix }
}

// CacheOnly stores only bodies accepted by fn, on top of the empty-payload
// rule.
func CacheOnly(fn func([]byte) bool) CacheOption {
	return func(c *CachingFetcher) { c.cacheable = fn }
}

// ValidJSON accepts bodies that parse as JSON. Detail and option endpoints
// are cached with it so an HTML error page is never replayed.
func ValidJSON(body []byte) bool {
	return json.Valid(body)
}

func NewCachingFetcher(next Fetcher, client RedisClient, ttl time.Duration, logger *slog.Logger, opts ...CacheOption) *CachingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	c := &CachingFetcher{
		next:   next,
		redis:  client,
		ttl:    ttl,
		prefix: "fetch:",
		logger: logger.With("component", "fetch_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRedisClient connects and pings, the way every caller of the cache needs.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *CachingFetcher) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	key := c.makeKey(Get(rawURL, params))

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.logger.Debug("cache hit", "url", rawURL)
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache get failed", "url", rawURL, "error", err)
	}

	body, err := c.next.Get(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}

	switch {
	case IsEmptyPayload(body):
	case c.cacheable != nil && !c.cacheable(body):
		c.logger.Debug("response not cached", "url", rawURL, "bytes", len(body))
	default:
		if err := c.redis.Set(ctx, key, body, c.ttl).Err(); err != nil {
			c.logger.Warn("cache set failed", "url", rawURL, "error", err)
		}
	}
	return body, nil
}

func (c *CachingFetcher) Post(ctx context.Context, rawURL string, body []byte) ([]byte, error) {
	return c.next.Post(ctx, rawURL, body)
}

func (c *CachingFetcher) Close() error {
	return c.redis.Close()
}

func (c *CachingFetcher) makeKey(req Request) string {
	hash := sha256.Sum256([]byte(req.String()))
	return c.prefix + hex.EncodeToString(hash[:])
}
