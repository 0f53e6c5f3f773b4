package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// memCredentialStore is an in-memory credential store for tests.
type memCredentialStore struct {
	mu    sync.Mutex
	creds map[string]domain.Credential
	saves int
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{creds: make(map[string]domain.Credential)}
}

func (s *memCredentialStore) Save(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.ID] = cred
	s.saves++
	return nil
}

func (s *memCredentialStore) Get(_ context.Context, id string) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := cred
	return &copied, nil
}

func (s *memCredentialStore) List(_ context.Context) ([]domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Credential, 0, len(s.creds))
	for _, cred := range s.creds {
		out = append(out, cred)
	}
	return out, nil
}

func (s *memCredentialStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, id)
	return nil
}

// tokenServer serves the refresh_token grant and counts requests.
func tokenServer(t *testing.T, accessToken string, refreshes *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		atomic.AddInt32(refreshes, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer","expires_in":3600,"refresh_token":"new-refresh"}`, accessToken)
	}))
	t.Cleanup(server.Close)
	return server
}

func oauthCredential(id, tokenURL string, expiry time.Time) domain.Credential {
	return domain.Credential{
		ID:     id,
		Source: "box",
		OAuth: &domain.OAuthPayload{
			AccessToken:  "old-access",
			RefreshToken: "old-refresh",
			TokenType:    "bearer",
			Expiry:       expiry,
			ClientID:     "client",
			ClientSecret: "secret",
			TokenURL:     tokenURL,
		},
	}
}

func TestOAuthProvider_GetToken_Valid(t *testing.T) {
	store := newMemCredentialStore()
	cred := oauthCredential("cred-1", "http://unused", time.Now().Add(time.Hour))
	require.NoError(t, store.Save(context.Background(), cred))
	store.saves = 0

	provider := NewOAuthProvider("cred-1", store)

	token, err := provider.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "old-access", token)
	assert.Zero(t, store.saves, "no refresh should be persisted")
}

func TestOAuthProvider_GetToken_RefreshesExpired(t *testing.T) {
	var refreshes int32
	server := tokenServer(t, "fresh-access", &refreshes)

	store := newMemCredentialStore()
	cred := oauthCredential("cred-1", server.URL, time.Now().Add(-time.Minute))
	require.NoError(t, store.Save(context.Background(), cred))

	provider := NewOAuthProvider("cred-1", store)

	token, err := provider.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))

	// The rotated payload is persisted under the same identity.
	saved, err := store.Get(context.Background(), "cred-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", saved.OAuth.AccessToken)
	assert.Equal(t, "new-refresh", saved.OAuth.RefreshToken)
	assert.True(t, saved.OAuth.Expiry.After(time.Now()))
}

func TestOAuthProvider_GetToken_RefreshesNearExpiry(t *testing.T) {
	var refreshes int32
	server := tokenServer(t, "fresh-access", &refreshes)

	store := newMemCredentialStore()
	// Expires inside the refresh buffer but not yet expired.
	cred := oauthCredential("cred-1", server.URL, time.Now().Add(2*time.Minute))
	require.NoError(t, store.Save(context.Background(), cred))

	provider := NewOAuthProvider("cred-1", store)

	token, err := provider.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestOAuthProvider_GetToken_NoExpiresIn(t *testing.T) {
	var refreshes int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-access","token_type":"bearer"}`)
	}))
	t.Cleanup(server.Close)

	store := newMemCredentialStore()
	cred := oauthCredential("cred-1", server.URL, time.Now().Add(-time.Minute))
	require.NoError(t, store.Save(context.Background(), cred))

	provider := NewOAuthProvider("cred-1", store)

	token, err := provider.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)

	// A response without expires_in means a non-expiring token; the
	// stored zero expiry must not push every later call back through
	// the refresh path.
	saved, err := store.Get(context.Background(), "cred-1")
	require.NoError(t, err)
	assert.True(t, saved.OAuth.Expiry.IsZero())

	provider.InvalidateCache()
	token, err = provider.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestOAuthProvider_GetToken_RefreshFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	store := newMemCredentialStore()
	cred := oauthCredential("cred-1", server.URL, time.Now().Add(-time.Minute))
	require.NoError(t, store.Save(context.Background(), cred))

	provider := NewOAuthProvider("cred-1", store)

	_, err := provider.GetToken(context.Background())

	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)

	// The stored payload is untouched on failure.
	saved, getErr := store.Get(context.Background(), "cred-1")
	require.NoError(t, getErr)
	assert.Equal(t, "old-access", saved.OAuth.AccessToken)
	assert.Equal(t, "old-refresh", saved.OAuth.RefreshToken)
}

func TestOAuthProvider_GetToken_NoRefreshToken(t *testing.T) {
	store := newMemCredentialStore()
	cred := oauthCredential("cred-1", "http://unused", time.Now().Add(-time.Minute))
	cred.OAuth.RefreshToken = ""
	require.NoError(t, store.Save(context.Background(), cred))

	provider := NewOAuthProvider("cred-1", store)

	_, err := provider.GetToken(context.Background())

	assert.ErrorIs(t, err, domain.ErrAuthExpired)
}

func TestOAuthProvider_GetToken_SingleRefreshUnderContention(t *testing.T) {
	var refreshes int32
	server := tokenServer(t, "fresh-access", &refreshes)

	store := newMemCredentialStore()
	cred := oauthCredential("cred-1", server.URL, time.Now().Add(-time.Minute))
	require.NoError(t, store.Save(context.Background(), cred))

	provider := NewOAuthProvider("cred-1", store)

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = provider.GetToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh-access", tokens[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes), "concurrent callers must share one refresh")
}

func TestOAuthProvider_GetToken_CacheHitSkipsStore(t *testing.T) {
	store := newMemCredentialStore()
	cred := oauthCredential("cred-1", "http://unused", time.Now().Add(time.Hour))
	require.NoError(t, store.Save(context.Background(), cred))

	provider := NewOAuthProvider("cred-1", store)

	_, err := provider.GetToken(context.Background())
	require.NoError(t, err)

	// Delete the credential; a cached token must still be served.
	require.NoError(t, store.Delete(context.Background(), "cred-1"))

	token, err := provider.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old-access", token)
}

func TestOAuthProvider_InvalidateCache(t *testing.T) {
	store := newMemCredentialStore()
	cred := oauthCredential("cred-1", "http://unused", time.Now().Add(time.Hour))
	require.NoError(t, store.Save(context.Background(), cred))

	provider := NewOAuthProvider("cred-1", store)
	_, err := provider.GetToken(context.Background())
	require.NoError(t, err)

	provider.InvalidateCache()
	require.NoError(t, store.Delete(context.Background(), "cred-1"))

	_, err = provider.GetToken(context.Background())
	assert.Error(t, err)
}
