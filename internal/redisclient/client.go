package redisclient

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shoestore/config"
	"shoestore/internal/policy"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/touch_session.lua
var touchSessionScript string

const (
	catalogVersionKey = "catalog:version"
	sessionPrefix     = "session:"
)

type Client struct {
	rdb         *redis.Client
	cacheTTL    time.Duration
	touchScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb, cfg.CacheTTL), nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client, cacheTTL time.Duration) *Client {
	return &Client{
		rdb:         rdb,
		cacheTTL:    cacheTTL,
		touchScript: redis.NewScript(touchSessionScript),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks that Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) catalogVersion(ctx context.Context) (string, error) {
	v, err := c.rdb.Get(ctx, catalogVersionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func catalogKey(version, key string) string {
	return fmt.Sprintf("catalog:v%s:%s", version, key)
}

// CachedCatalog loads a cached catalog result into dest. It reports false on a miss.
// The returned version is the one observed by the read; pass it to CacheCatalog
// so a result fetched before an invalidation is never stored as current.
func (c *Client) CachedCatalog(ctx context.Context, key string, dest interface{}) (string, bool, error) {
	version, err := c.catalogVersion(ctx)
	if err != nil {
		return "", false, err
	}

	data, err := c.rdb.Get(ctx, catalogKey(version, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return version, false, nil
	}
	if err != nil {
		return version, false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return version, false, fmt.Errorf("decode cached catalog: %w", err)
	}
	return version, true, nil
}

// CacheCatalog stores a catalog result under the version seen by the matching read
func (c *Client) CacheCatalog(ctx context.Context, version, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return c.rdb.Set(ctx, catalogKey(version, key), data, c.cacheTTL).Err()
}

// InvalidateCatalog bumps the catalog version so every cached result goes stale
func (c *Client) InvalidateCatalog(ctx context.Context) error {
	return c.rdb.Incr(ctx, catalogVersionKey).Err()
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateSession stores the principal under a fresh random id
func (c *Client) CreateSession(ctx context.Context, p policy.Principal, ttl time.Duration) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	if err := c.rdb.Set(ctx, sessionPrefix+id, data, ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

// GetSession returns the principal for a session id and slides its expiry
func (c *Client) GetSession(ctx context.Context, id string, ttl time.Duration) (policy.Principal, bool, error) {
	var p policy.Principal

	res, err := c.touchScript.Run(ctx, c.rdb, []string{sessionPrefix + id}, ttl.Milliseconds()).Result()
	if errors.Is(err, redis.Nil) {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("touch session script failed: %w", err)
	}

	payload, ok := res.(string)
	if !ok {
		return p, false, fmt.Errorf("unexpected script result type")
	}
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return p, false, fmt.Errorf("decode session: %w", err)
	}
	return p, true, nil
}

// DeleteSession removes a session (logout)
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, sessionPrefix+id).Err()
}
