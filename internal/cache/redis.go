// Package cache provides a Redis-backed caching layer.
//
// Key strategy:
//   - Search responses:    som:search:v1:{sha256(address)}   → TTL 6 h
//   - Place details:       som:place:v1:{place_id}           → TTL 7 d
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	SearchTTL = 6 * time.Hour
	PlaceTTL  = 7 * 24 * time.Hour

	searchPrefix = "som:search:v1:"
	placePrefix  = "som:place:v1:"
)

// Client wraps redis.Client with domain-aware helpers.
type Client struct {
	rdb *redis.Client
}

// New creates a new cache Client. addr example: "localhost:6379".
func New(addr, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{rdb: rdb}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }

// ─── Search cache ─────────────────────────────────────────────────────────────

// SearchKey returns the cache key for a search. The address is normalized
// (lowercase, trimmed) so "Goiânia, GO" and "goiânia, go " share an entry.
func SearchKey(address string) string {
	raw := strings.ToLower(strings.TrimSpace(address))
	h := sha256.Sum256([]byte(raw))
	return searchPrefix + fmt.Sprintf("%x", h)
}

// GetSearch returns a cached response (as raw JSON bytes) or nil on miss.
func (c *Client) GetSearch(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	return val, err
}

// SetSearch stores a response with SearchTTL.
func (c *Client) SetSearch(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, SearchTTL).Err()
}

// DeleteSearch removes a search cache entry.
func (c *Client) DeleteSearch(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// ─── Place details cache ──────────────────────────────────────────────────────

// CachedPlace is the structure stored per place_id.
type CachedPlace struct {
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	MapLink string `json:"map_link,omitempty"`
}

// GetPlace returns cached details for a place, or nil on miss.
func (c *Client) GetPlace(ctx context.Context, placeID string) (*CachedPlace, error) {
	val, err := c.rdb.Get(ctx, placePrefix+placeID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p CachedPlace
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPlace stores place details with PlaceTTL.
func (c *Client) SetPlace(ctx context.Context, placeID string, p *CachedPlace) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, placePrefix+placeID, b, PlaceTTL).Err()
}
