package connectors

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// TokenProviderFactory resolves a TokenProvider for a credential.
// The auth adapter implements this.
type TokenProviderFactory interface {
	CreateTokenProvider(ctx context.Context, credentialID string) (driven.TokenProvider, error)
}

// Factory creates connectors from connector configuration.
// It maintains a registry of source types and their builders.
type Factory struct {
	mu        sync.RWMutex
	builders  map[string]driven.ConnectorBuilder
	providers TokenProviderFactory
}

// NewFactory creates a connector factory. Builders for the built-in
// source types must be registered by the caller (see RegisterBuiltins).
func NewFactory(providers TokenProviderFactory) *Factory {
	return &Factory{
		builders:  make(map[string]driven.ConnectorBuilder),
		providers: providers,
	}
}

// Register adds a connector builder for the given source type.
func (f *Factory) Register(source string, builder driven.ConnectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[source] = builder
}

// Create returns a Connector for the given connector configuration.
// The TokenProvider is resolved from the credential internally; a
// connector without auth gets a null provider.
func (f *Factory) Create(ctx context.Context, connector domain.Connector, credentialID string) (driven.Connector, error) {
	f.mu.RLock()
	builder, ok := f.builders[connector.Source]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, connector.Source)
	}

	tokenProvider, err := f.providers.CreateTokenProvider(ctx, credentialID)
	if err != nil {
		return nil, fmt.Errorf("create token provider for credential %s: %w", credentialID, err)
	}

	conn, err := builder(connector, tokenProvider)
	if err != nil {
		return nil, fmt.Errorf("build %s connector %s: %w", connector.Source, connector.ID, err)
	}
	return conn, nil
}

// SupportedTypes returns all registered source types.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	return types
}
