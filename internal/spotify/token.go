package spotify

import (
	"context"
	"sync"
	"time"
)

// refreshSkew renews a token this long before it actually expires.
const refreshSkew = 60 * time.Second

// TokenFetcher returns a fresh access token and how long it stays valid.
type TokenFetcher func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// TokenCache hands out a fetched token until shortly before it expires.
type TokenCache struct {
	fetch TokenFetcher
	now   func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenCache(fetch TokenFetcher) *TokenCache {
	return &TokenCache{fetch: fetch, now: time.Now}
}

// Token implements TokenSource.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}
	token, ttl, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expires = c.now().Add(ttl - refreshSkew)
	return token, nil
}

// Invalidate forces the next Token call to fetch.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
