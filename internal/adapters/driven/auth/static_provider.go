package auth

import (
	"context"
	"fmt"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// Ensure StaticProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*StaticProvider)(nil)

// StaticProvider provides static tokens such as personal access tokens.
// Static tokens don't expire and don't require refresh.
type StaticProvider struct {
	credentialID string
	credentials  driven.CredentialStore
}

// NewStaticProvider creates a token provider for static credentials.
func NewStaticProvider(credentialID string, credentials driven.CredentialStore) *StaticProvider {
	return &StaticProvider{
		credentialID: credentialID,
		credentials:  credentials,
	}
}

// GetToken returns the stored token. No refresh logic is needed.
func (p *StaticProvider) GetToken(ctx context.Context) (string, error) {
	cred, err := p.credentials.Get(ctx, p.credentialID)
	if err != nil {
		return "", fmt.Errorf("get credential %s: %w", p.credentialID, err)
	}
	if cred.Static == nil || cred.Static.Token == "" {
		return "", fmt.Errorf("%w: credential %s has no static token", domain.ErrAuthRequired, p.credentialID)
	}
	return cred.Static.Token, nil
}

// CredentialID returns the backing credential's ID.
func (p *StaticProvider) CredentialID() string {
	return p.credentialID
}
