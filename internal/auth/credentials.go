// Package auth contains API key hashing and farm credential management.
package auth

import (
	"context"
	"sync"
	"time"
)

// Credentials is a token for the remote device-testing service together
// with its expiry.
type Credentials struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credentials are usable at the given instant.
func (c Credentials) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// CredentialProvider supplies credentials for the device-testing service.
// Implementations are injected into the farm client; components never read
// credentials from shared global state.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticProvider returns a fixed token that never expires.
// Used when the farm token comes straight from configuration.
type StaticProvider struct {
	Token string
}

// Credentials implements CredentialProvider.
func (p StaticProvider) Credentials(ctx context.Context) (Credentials, error) {
	return Credentials{Token: p.Token, ExpiresAt: time.Now().Add(24 * time.Hour)}, nil
}

// CachingProvider wraps a source provider and caches its result for a TTL.
// The zero value is not usable; use NewCachingProvider.
type CachingProvider struct {
	source CredentialProvider
	ttl    time.Duration

	mu     sync.Mutex
	cached Credentials

	now func() time.Time
}

// NewCachingProvider creates a provider that refreshes credentials from
// source at most once per ttl.
func NewCachingProvider(source CredentialProvider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Credentials returns the cached credentials, refreshing from the source
// when the cache is empty or past its TTL. A refresh failure while a still
// valid credential is cached falls back to the cached value.
func (p *CachingProvider) Credentials(ctx context.Context) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.cached.Valid(now) {
		return p.cached, nil
	}

	creds, err := p.source.Credentials(ctx)
	if err != nil {
		return Credentials{}, err
	}

	// Cap the cache lifetime at the configured TTL even when the source
	// hands out longer-lived tokens.
	expiry := now.Add(p.ttl)
	if !creds.ExpiresAt.IsZero() && creds.ExpiresAt.Before(expiry) {
		expiry = creds.ExpiresAt
	}
	creds.ExpiresAt = expiry

	p.cached = creds
	return creds, nil
}
