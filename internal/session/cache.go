package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightpath-hq/brightpath/internal/shared"
)

// Entry is a cached resolution of a bearer token.
type Entry struct {
	SessionID string          `json:"session_id"`
	User      shared.Identity `json:"user"`
}

// Cache keeps rehydrated identities in Redis so repeated page loads within
// the TTL skip the upstream profile call. A nil Cache disables caching.
type Cache struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewCache constructs a Cache. Keys are derived from an HMAC of the token so
// raw credentials never appear in Redis.
func NewCache(client *redis.Client, secret string, ttl time.Duration) *Cache {
	return &Cache{client: client, secret: []byte(secret), ttl: ttl}
}

// Get returns the cached entry for token, or nil on a miss.
func (c *Cache) Get(ctx context.Context, token string) (*Entry, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, c.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put stores the entry under the token's derived key.
func (c *Cache) Put(ctx context.Context, token string, entry Entry) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(token), payload, c.ttl).Err()
}

// Invalidate drops the cached entry for token.
func (c *Cache) Invalidate(ctx context.Context, token string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(token)).Err()
}

func (c *Cache) key(token string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(token))
	return "identity:" + hex.EncodeToString(mac.Sum(nil))
}
