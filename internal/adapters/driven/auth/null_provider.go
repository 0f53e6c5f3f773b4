package auth

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// Ensure NullProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*NullProvider)(nil)

// NullProvider is for connectors that require no authentication.
// Used by the localdir connector and other local data sources.
type NullProvider struct{}

// NewNullProvider creates a token provider for no-auth connectors.
func NewNullProvider() *NullProvider {
	return &NullProvider{}
}

// GetToken returns an empty string since no authentication is needed.
func (p *NullProvider) GetToken(_ context.Context) (string, error) {
	return "", nil
}

// CredentialID returns an empty string since there's no credential.
func (p *NullProvider) CredentialID() string {
	return ""
}
