package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshMargin is how long before expiry a refresh is attempted.
const DefaultRefreshMargin = 5 * time.Minute

// Status is the read-only introspection view of the credential.
type Status struct {
	Authorized bool
	Account    string
	ExpiresIn  time.Duration
}

// RefreshObserver is notified of refresh outcomes ("success"/"failure").
// Satisfied by internal/telemetry.Metrics.
type RefreshObserver interface {
	RecordTokenRefresh(outcome string)
}

// Manager owns refresh and expiry decisions on top of a Store. The
// credential is loaded once on first use and cached; every mutation is
// written through to the store. Concurrent callers that hit an expired
// credential share a single in-flight refresh — duplicate refreshes
// would invalidate each other's refresh token at the remote end.
type Manager struct {
	store     Store
	refresher Refresher
	margin    time.Duration
	logger    *otelzap.Logger
	observer  RefreshObserver

	group singleflight.Group

	mu     sync.Mutex // guards cred and loaded
	cred   *Credential
	loaded bool

	now func() time.Time // test hook
}

// NewManager creates a credential manager. A nil refresher is allowed;
// the manager then serves the stored credential until it expires.
func NewManager(store Store, refresher Refresher, margin time.Duration, logger *otelzap.Logger) *Manager {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &Manager{
		store:     store,
		refresher: refresher,
		margin:    margin,
		logger:    logger,
		now:       time.Now,
	}
}

// WithObserver attaches a refresh outcome observer.
func (m *Manager) WithObserver(obs RefreshObserver) *Manager {
	m.observer = obs
	return m
}

// Token returns a currently valid access token, refreshing first when
// the credential is expired or inside the safety margin.
func (m *Manager) Token(ctx context.Context) (string, error) {
	cred, err := m.current()
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", ErrNoCredential
	}

	now := m.now()
	if cred.Valid(now) && !cred.Expiring(now, m.margin) {
		return cred.AccessToken, nil
	}

	refreshed, err := m.refresh(ctx)
	if err != nil {
		// A still-valid credential inside the margin keeps serving
		// while refresh attempts fail.
		if cred.Valid(now) {
			return cred.AccessToken, nil
		}
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Seed installs the initial credential obtained from the out-of-band
// authorization flow and persists it.
func (m *Manager) Seed(ctx context.Context, cred *Credential) error {
	if err := m.store.Save(cred); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}

	m.mu.Lock()
	m.cred = cred
	m.loaded = true
	m.mu.Unlock()

	m.logger.Info("Credential seeded",
		zap.String("account", cred.Account),
		zap.Time("expires_at", cred.ExpiresAt),
	)
	return nil
}

// Status reports whether a valid credential exists and its remaining
// lifetime. Never exposes token values.
func (m *Manager) Status() Status {
	cred, err := m.current()
	if err != nil || cred == nil {
		return Status{}
	}
	now := m.now()
	return Status{
		Authorized: cred.Valid(now),
		Account:    cred.Account,
		ExpiresIn:  cred.RemainingLifetime(now),
	}
}

// current returns the cached credential, loading from the store on
// first access. A missing record is cached as nil, not an error.
func (m *Manager) current() (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.cred, nil
	}

	cred, err := m.store.Load()
	if err != nil && err != ErrNotFound {
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	m.cred = cred
	m.loaded = true
	return m.cred, nil
}

// refresh performs one single-flight refresh. All concurrent callers
// receive the result of the same in-flight attempt.
func (m *Manager) refresh(ctx context.Context) (*Credential, error) {
	v, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

func (m *Manager) doRefresh(ctx context.Context) (*Credential, error) {
	cred, err := m.current()
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNoCredential
	}

	// A waiter queued behind a completed refresh sees the fresh
	// credential here and skips the remote call.
	now := m.now()
	if cred.Valid(now) && !cred.Expiring(now, m.margin) {
		return cred, nil
	}

	if m.refresher == nil {
		return nil, fmt.Errorf("%w: no refresher configured", ErrRefreshFailed)
	}

	fresh, err := m.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		m.observeRefresh("failure")
		m.logger.Error("Token refresh failed",
			zap.String("account", cred.Account),
			zap.Time("expired_at", cred.ExpiresAt),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if err := m.store.Save(fresh); err != nil {
		m.observeRefresh("failure")
		return nil, fmt.Errorf("persisting refreshed credential: %w", err)
	}

	m.mu.Lock()
	m.cred = fresh
	m.mu.Unlock()

	m.observeRefresh("success")
	m.logger.Info("Credential refreshed",
		zap.String("account", fresh.Account),
		zap.Time("expires_at", fresh.ExpiresAt),
	)
	return fresh, nil
}

func (m *Manager) observeRefresh(outcome string) {
	if m.observer != nil {
		m.observer.RecordTokenRefresh(outcome)
	}
}
