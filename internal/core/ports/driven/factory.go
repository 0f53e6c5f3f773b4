package driven

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// ConnectorBuilder creates a Connector from a connector entity with auth
// support. TokenProvider is nil for source types that require no auth.
type ConnectorBuilder func(connector domain.Connector, tokenProvider TokenProvider) (Connector, error)

// ConnectorFactory creates connectors from connector configuration.
// It maintains a registry of source types and their builders.
type ConnectorFactory interface {
	// Create returns a Connector for the given connector entity and
	// credential. Returns ErrUnsupportedType if the source type is
	// unknown; in that case no attempt is ever claimed.
	Create(ctx context.Context, connector domain.Connector, credentialID string) (Connector, error)

	// Register adds a connector builder for the given source type.
	Register(source string, builder ConnectorBuilder)

	// SupportedTypes returns all registered source types, sorted.
	SupportedTypes() []string
}
