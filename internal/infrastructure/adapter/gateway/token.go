package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
)

// TokenConfig holds the client-credentials settings for the router token
// endpoint
type TokenConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string

	// RefreshSkew refreshes the token this long before its reported expiry
	RefreshSkew time.Duration
}

// TokenCache holds one process-wide access token and refreshes it when the
// expiry window closes. Refreshes are opportunistic: concurrent callers may
// each fetch a token, the last write wins, and every fetched token is valid.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	httpClient   *http.Client
	config       TokenConfig
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

var _ coreport.TokenSource = (*TokenCache)(nil)

// NewTokenCache creates a TokenCache
func NewTokenCache(config TokenConfig, timeProvider coreport.TimeProvider, logger coreport.Logger) *TokenCache {
	if config.RefreshSkew <= 0 {
		config.RefreshSkew = 30 * time.Second
	}
	return &TokenCache{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		config:       config,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Token returns the cached token or fetches a fresh one
func (t *TokenCache) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.token != "" && t.timeProvider.Now().Before(t.expiresAt) {
		token := t.token
		t.mu.Unlock()
		return token, nil
	}
	t.mu.Unlock()

	// Fetch outside the lock; a slow token endpoint must not serialize all
	// gateway traffic.
	token, expiresIn, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.token = token
	t.expiresAt = t.timeProvider.Now().Add(expiresIn - t.config.RefreshSkew)
	t.mu.Unlock()

	t.logger.Debug("Refreshed gateway access token", map[string]any{
		"expires_in_seconds": expiresIn.Seconds(),
	})
	return token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (t *TokenCache) fetch(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.config.ClientID)
	form.Set("client_secret", t.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("malformed token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned empty access token")
	}
	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}
