package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"qrmenu/internal/config"
	"qrmenu/internal/domain"
	"qrmenu/internal/normalize"
	"qrmenu/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// TokenTTL is the fixed credential lifetime. The POS does not report
	// expiry, so it is tracked locally.
	TokenTTL = 23 * time.Hour

	// NearExpiryWindow is how close to expiry a credential may get before
	// the background refresher renews it.
	NearExpiryWindow = 2 * time.Minute

	// autoRefreshInterval is the background refresher's polling period.
	autoRefreshInterval = 60 * time.Second
)

var ErrNoToken = errors.New("no token in response")

// AuthError wraps a login or refresh failure with its reason.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// tokenPaths is the ordered table of response locations searched for the
// bearer token; the first string longer than 10 characters wins.
var tokenPaths = []string{
	"payload.token",
	"payload.accessToken",
	"payload.access_token",
	"token",
	"accessToken",
	"access_token",
	"data.token",
	"data.accessToken",
}

// TokenManager owns the POS credential: it obtains it via login, caches
// it, mirrors it to the local store, and proactively refreshes it before
// expiry. Concurrent refreshes coalesce into one login call.
type TokenManager struct {
	loginURL string
	apiKey   string
	email    string
	password string

	httpClient *http.Client
	store      *storage.Store
	logger     *zap.Logger

	mu         sync.Mutex
	credential *domain.Credential
	refreshing bool

	group singleflight.Group

	now func() time.Time
}

func NewTokenManager(cfg config.POSConfig, store *storage.Store, logger *zap.Logger) *TokenManager {
	m := &TokenManager{
		loginURL:   cfg.BaseURL + "/login",
		apiKey:     cfg.APIKey,
		email:      cfg.LoginEmail,
		password:   cfg.LoginPassword,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
	m.bootstrap()
	return m
}

// bootstrap restores a previously persisted credential so a restart does
// not force a fresh login while the old token is still valid.
func (m *TokenManager) bootstrap() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cred, err := m.store.LoadCredential(ctx)
	if err != nil {
		if err != storage.ErrNotFound {
			m.logger.Warn("Could not restore persisted credential", zap.Error(err))
		}
		return
	}
	if !cred.Valid(m.now()) {
		return
	}

	m.mu.Lock()
	m.credential = &cred
	m.mu.Unlock()
	m.logger.Info("Restored persisted credential",
		zap.Int64("expires_at", cred.ExpiresAt),
	)
}

// Login requests a fresh credential from the POS. The token is extracted
// by the prioritized path table; expiry is fixed at now + TokenTTL.
func (m *TokenManager) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"email":    m.email,
		"password": m.password,
	})
	if err != nil {
		return &AuthError{Reason: "marshal login request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.loginURL, bytes.NewReader(body))
	if err != nil {
		return &AuthError{Reason: "create login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("x-api-key", m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &AuthError{Reason: "login request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthError{Reason: fmt.Sprintf("login returned status %d", resp.StatusCode)}
	}

	var payload interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return &AuthError{Reason: "decode login response", Err: err}
	}

	token, ok := normalize.StringAtPaths(payload, tokenPaths, 11)
	if !ok {
		return &AuthError{Reason: "no token in response", Err: ErrNoToken}
	}

	cred := domain.Credential{
		Token:     token,
		ExpiresAt: m.now().Add(TokenTTL).UnixMilli(),
	}

	m.mu.Lock()
	m.credential = &cred
	m.mu.Unlock()

	if err := m.store.SaveCredential(ctx, cred); err != nil {
		m.logger.Warn("Could not persist credential", zap.Error(err))
	}

	m.logger.Info("Obtained POS credential",
		zap.Int64("expires_at", cred.ExpiresAt),
	)
	return nil
}

// RefreshToken discards the current credential and performs a login.
// Concurrent callers share one in-flight login and resolve with its
// outcome; no duplicate login calls are issued.
func (m *TokenManager) RefreshToken(ctx context.Context) error {
	_, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		m.mu.Lock()
		m.refreshing = true
		m.credential = nil
		m.mu.Unlock()

		defer func() {
			m.mu.Lock()
			m.refreshing = false
			m.mu.Unlock()
		}()

		return nil, m.Login(ctx)
	})
	return err
}

// Token returns the current credential's token if one is held and valid.
func (m *TokenManager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credential == nil || !m.credential.Valid(m.now()) {
		return "", false
	}
	return m.credential.Token, true
}

// IsValid reports whether a credential is held and not expired.
func (m *TokenManager) IsValid() bool {
	_, ok := m.Token()
	return ok
}

// IsNearExpiry reports whether the held credential expires within the
// refresh window. A missing credential counts as near expiry.
func (m *TokenManager) IsNearExpiry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credential == nil {
		return true
	}
	return m.credential.NearExpiry(m.now(), NearExpiryWindow)
}

// RefreshInFlight reports whether a refresh is currently running.
func (m *TokenManager) RefreshInFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshing
}

// StartAutoRefresh runs the background refresher until ctx is cancelled:
// every minute, if a credential is held, not already refreshing, and near
// expiry, it triggers a refresh. Failures are logged, not escalated.
func (m *TokenManager) StartAutoRefresh(ctx context.Context) {
	ticker := time.NewTicker(autoRefreshInterval)
	defer ticker.Stop()

	m.logger.Info("Auto-refresh worker started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Auto-refresh worker stopped")
			return
		case <-ticker.C:
			m.mu.Lock()
			held := m.credential != nil
			refreshing := m.refreshing
			m.mu.Unlock()

			if !held || refreshing || !m.IsNearExpiry() {
				continue
			}

			m.logger.Info("Credential near expiry, refreshing")
			if err := m.RefreshToken(ctx); err != nil {
				m.logger.Error("Background refresh failed", zap.Error(err))
			}
		}
	}
}
