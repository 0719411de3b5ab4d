package daraja

import (
	"context"
	"sync"
	"time"
)

// Deducted from the gateway reported lifetime so a token is never presented
// within a few seconds of its true expiry
const expiryBuffer = 10 * time.Second

type tokenIssuer interface {
	// Issue a fresh access token, returning it with its lifetime in seconds
	IssueToken(ctx context.Context) (token string, expiresIn int, err error)
}

// TokenCache owns the gateway bearer credential: it hands out the cached token
// while it is valid and refreshes it lazily on expiry or forced invalidation.
//
// The mutex is held across the issuance call on purpose. Payment requests
// racing on an empty cache then coalesce into a single outbound issuance call
// instead of each hitting the oauth endpoint.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	issuer tokenIssuer
	now    func() time.Time
}

func NewTokenCache(issuer tokenIssuer) *TokenCache {
	return &TokenCache{
		issuer: issuer,
		now:    time.Now,
	}
}

// Token returns a currently valid access token, refreshing it if the cache is
// empty or the cached one expired
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	token, expiresIn, err := c.issuer.IssueToken(ctx)
	if err != nil {
		c.token = ""
		c.expiresAt = time.Time{}
		return "", err
	}

	// Token and expiry are replaced together, never one without the other
	c.token = token
	c.expiresAt = c.now().Add(time.Duration(expiresIn)*time.Second - expiryBuffer)

	return c.token, nil
}

// Invalidate drops the cached credential so the next Token call refreshes.
// Safe to call at any time, also when nothing is cached
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiresAt = time.Time{}
}
