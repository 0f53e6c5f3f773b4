package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
	"github.com/quarry-search/quarry/internal/logger"
)

// RefreshBuffer is how long before expiry a token is refreshed.
const RefreshBuffer = 5 * time.Minute

// Ensure OAuthProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*OAuthProvider)(nil)

// OAuthProvider provides OAuth access tokens with automatic refresh.
// The refreshed payload is persisted to the credential store before the
// token is returned, so the credential identity never changes while its
// tokens rotate underneath.
type OAuthProvider struct {
	credentialID string
	credentials  driven.CredentialStore
	httpClient   *http.Client

	mu          sync.RWMutex
	cachedToken string
	cacheExpiry time.Time

	group singleflight.Group
}

// NewOAuthProvider creates a token provider for OAuth-based credentials.
func NewOAuthProvider(credentialID string, credentials driven.CredentialStore) *OAuthProvider {
	return &OAuthProvider{
		credentialID: credentialID,
		credentials:  credentials,
		httpClient:   http.DefaultClient,
	}
}

// GetToken returns a valid access token, refreshing if necessary.
// Concurrent callers needing a refresh share one refresh request.
func (p *OAuthProvider) GetToken(ctx context.Context) (string, error) {
	// Fast path: check cache with read lock
	p.mu.RLock()
	if p.cachedToken != "" && time.Now().Before(p.cacheExpiry) {
		token := p.cachedToken
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	// Slow path: collapse concurrent refreshes into one flight.
	token, err, _ := p.group.Do(p.credentialID, func() (any, error) {
		return p.loadOrRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// loadOrRefresh fetches the credential, refreshes it if it is expired
// or about to expire, and caches the resulting token.
func (p *OAuthProvider) loadOrRefresh(ctx context.Context) (string, error) {
	// Double-check the cache; a previous flight may have filled it.
	p.mu.RLock()
	if p.cachedToken != "" && time.Now().Before(p.cacheExpiry) {
		token := p.cachedToken
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	cred, err := p.credentials.Get(ctx, p.credentialID)
	if err != nil {
		return "", fmt.Errorf("get credential %s: %w", p.credentialID, err)
	}
	if cred.OAuth == nil {
		return "", fmt.Errorf("%w: credential %s has no OAuth payload", domain.ErrAuthRequired, p.credentialID)
	}

	needsRefresh := cred.OAuth.AccessToken == "" ||
		cred.OAuth.IsExpired() ||
		cred.OAuth.ExpiresWithin(RefreshBuffer)

	if needsRefresh {
		if cred.OAuth.RefreshToken == "" {
			return "", fmt.Errorf("%w: credential %s has no refresh token", domain.ErrAuthExpired, p.credentialID)
		}

		logger.Debug("refreshing OAuth token for credential %s", p.credentialID)
		refreshed, err := p.refreshToken(ctx, cred.OAuth)
		if err != nil {
			// The stored payload stays untouched on failure.
			return "", fmt.Errorf("%w: credential %s: %w", domain.ErrTokenRefreshFailed, p.credentialID, err)
		}

		cred.OAuth.AccessToken = refreshed.AccessToken
		if refreshed.RefreshToken != "" {
			cred.OAuth.RefreshToken = refreshed.RefreshToken
		}
		cred.OAuth.TokenType = refreshed.TokenType
		cred.OAuth.Expiry = refreshed.Expiry
		cred.UpdatedAt = time.Now()

		// Persist before returning so a crash never loses the rotation.
		if err := p.credentials.Save(ctx, *cred); err != nil {
			return "", fmt.Errorf("save refreshed credential %s: %w", p.credentialID, err)
		}
	}

	p.mu.Lock()
	p.cachedToken = cred.OAuth.AccessToken
	if !cred.OAuth.Expiry.IsZero() {
		p.cacheExpiry = cred.OAuth.Expiry.Add(-RefreshBuffer)
	} else {
		p.cacheExpiry = time.Now().Add(1 * time.Hour)
	}
	token := p.cachedToken
	p.mu.Unlock()

	return token, nil
}

// refreshToken performs the OAuth2 refresh_token grant.
func (p *OAuthProvider) refreshToken(ctx context.Context, payload *domain.OAuthPayload) (*domain.OAuthPayload, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", payload.RefreshToken)
	data.Set("client_id", payload.ClientID)
	data.Set("client_secret", payload.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, payload.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}

	// Some endpoints omit expires_in entirely. A zero Expiry means the
	// token does not expire; leaving it at now() would force a refresh
	// on every call.
	var expiry time.Time
	if tokenResp.ExpiresIn > 0 {
		expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &domain.OAuthPayload{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Expiry:       expiry,
	}, nil
}

// CredentialID returns the backing credential's ID.
func (p *OAuthProvider) CredentialID() string {
	return p.credentialID
}

// InvalidateCache clears the cached token.
func (p *OAuthProvider) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cachedToken = ""
	p.cacheExpiry = time.Time{}
}
