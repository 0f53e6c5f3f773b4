package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// ProviderFactory creates TokenProviders from stored credentials.
// Providers are cached per credential so every connector using the same
// credential shares one refresh path.
type ProviderFactory struct {
	credentials driven.CredentialStore

	mu    sync.Mutex
	cache map[string]driven.TokenProvider
}

// NewProviderFactory creates a token provider factory.
func NewProviderFactory(credentials driven.CredentialStore) *ProviderFactory {
	return &ProviderFactory{
		credentials: credentials,
		cache:       make(map[string]driven.TokenProvider),
	}
}

// CreateTokenProvider returns the appropriate TokenProvider for a
// credential. An empty ID yields a NullProvider for no-auth connectors.
func (f *ProviderFactory) CreateTokenProvider(ctx context.Context, credentialID string) (driven.TokenProvider, error) {
	if credentialID == "" {
		return NewNullProvider(), nil
	}

	f.mu.Lock()
	if provider, ok := f.cache[credentialID]; ok {
		f.mu.Unlock()
		return provider, nil
	}
	f.mu.Unlock()

	cred, err := f.credentials.Get(ctx, credentialID)
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", credentialID, err)
	}

	var provider driven.TokenProvider
	switch {
	case cred.OAuth != nil:
		provider = NewOAuthProvider(credentialID, f.credentials)
	case cred.Static != nil:
		provider = NewStaticProvider(credentialID, f.credentials)
	default:
		// No auth material set - treat as no-auth.
		provider = NewNullProvider()
	}

	f.mu.Lock()
	f.cache[credentialID] = provider
	f.mu.Unlock()
	return provider, nil
}
