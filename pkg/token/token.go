// Package token manages the marketplace OAuth credential lifecycle:
// durable storage, expiry tracking and single-flight refresh.
package token

import (
	"context"
	"errors"
	"time"
)

// Credential is the persisted OAuth credential set. ExpiresAt is always
// absolute, derived from issue time + expires_in when the credential is
// seeded or refreshed.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Account      string    `json:"account"`
}

// Valid reports whether the credential can authenticate a call at the
// given instant. An expired credential is invalid regardless of any
// cached state.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Expiring reports whether the credential is inside the refresh safety
// margin (or already past expiry).
func (c *Credential) Expiring(now time.Time, margin time.Duration) bool {
	if c == nil {
		return true
	}
	return !now.Add(margin).Before(c.ExpiresAt)
}

// RemainingLifetime returns how long the credential stays valid, never
// negative.
func (c *Credential) RemainingLifetime(now time.Time) time.Duration {
	if c == nil {
		return 0
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

var (
	// ErrNotFound indicates the store holds no credential record.
	ErrNotFound = errors.New("credential not found")

	// ErrNoCredential indicates no credential was ever seeded; a fresh
	// out-of-band authorization flow is required.
	ErrNoCredential = errors.New("no credential available")

	// ErrRefreshFailed indicates the refresh call itself failed. The
	// prior credential is kept untouched for diagnostics.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Store persists the credential record. Save must be atomic so a
// concurrent reader never observes a partial write.
type Store interface {
	Load() (*Credential, error)
	Save(cred *Credential) error
}

// Refresher exchanges a refresh token for a fresh credential set at the
// remote authorization server.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Credential, error)
}
