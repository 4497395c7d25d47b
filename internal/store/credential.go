package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/adiaconou/hermes/internal/core"
)

// expiryMargin is subtracted from a credential's own ExpiresAt when
// computing how long a cached client may live, so a cached client never
// outlives the token it was built from, per spec.md §5's "entries expire
// before their underlying token expires."
const expiryMargin = 2 * time.Minute

type cachedClient struct {
	client    any
	expiresAt time.Time
}

// CredentialStore persists per-(user, provider) OAuth-style credentials
// and caches the authenticated clients built from them, generalizing the
// teacher's observability.SystemStatus sync.RWMutex-guarded singleton
// into a per-entry cache keyed by user and provider.
type CredentialStore struct {
	DB *sql.DB

	mu    sync.RWMutex
	cache map[string]cachedClient
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{DB: db, cache: make(map[string]cachedClient)}
}

// Get returns a stored credential, or ok=false if none exists.
func (s *CredentialStore) Get(ctx context.Context, userID, provider string) (core.Credential, bool, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT user_id, provider, access_token, refresh_token, expires_at
		 FROM credentials WHERE user_id = ? AND provider = ?`, userID, provider)

	var cred core.Credential
	if err := row.Scan(&cred.UserID, &cred.Provider, &cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return core.Credential{}, false, nil
		}
		return core.Credential{}, false, err
	}
	return cred, true, nil
}

// Set upserts a credential, invalidating any cached client built from the
// previous one.
func (s *CredentialStore) Set(ctx context.Context, cred core.Credential) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO credentials (user_id, provider, access_token, refresh_token, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, provider) DO UPDATE SET
			access_token=excluded.access_token, refresh_token=excluded.refresh_token, expires_at=excluded.expires_at`,
		cred.UserID, cred.Provider, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt)
	if err != nil {
		return err
	}
	s.invalidate(cred.UserID, cred.Provider)
	return nil
}

// Delete removes a stored credential and its cached client, if any.
func (s *CredentialStore) Delete(ctx context.Context, userID, provider string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ? AND provider = ?`, userID, provider)
	if err != nil {
		return err
	}
	s.invalidate(userID, provider)
	return nil
}

// Client returns a cached authenticated client for (userID, provider),
// building and caching it via build if absent or past its expiry margin.
func (s *CredentialStore) Client(ctx context.Context, userID, provider string, build func(core.Credential) (any, error)) (any, error) {
	key := cacheKey(userID, provider)

	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.client, nil
	}

	cred, found, err := s.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no credential for user %s provider %s", userID, provider)
	}

	client, err := build(cred)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = cachedClient{client: client, expiresAt: cred.ExpiresAt.Add(-expiryMargin)}
	s.mu.Unlock()
	return client, nil
}

func (s *CredentialStore) invalidate(userID, provider string) {
	s.mu.Lock()
	delete(s.cache, cacheKey(userID, provider))
	s.mu.Unlock()
}

func cacheKey(userID, provider string) string { return userID + "\x1f" + provider }
