package driving

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// CCPairView is a pair joined with its connector for status display.
type CCPairView struct {
	Pair      domain.CCPair
	Connector domain.Connector
}

// AdminService manages connectors, credentials and pairs.
// It backs the administrative CLI surface.
type AdminService interface {
	// CreateConnector validates and stores a new connector.
	// The source type must be registered with the connector factory.
	CreateConnector(ctx context.Context, connector domain.Connector) (*domain.Connector, error)

	// ListConnectors returns all configured connectors.
	ListConnectors(ctx context.Context) ([]domain.Connector, error)

	// CreateCredential stores new auth material.
	CreateCredential(ctx context.Context, cred domain.Credential) (*domain.Credential, error)

	// CreateCCPair binds a connector to a credential.
	CreateCCPair(ctx context.Context, connectorID, credentialID string) (*domain.CCPair, error)

	// ListCCPairs returns all pairs with their connectors.
	ListCCPairs(ctx context.Context) ([]CCPairView, error)

	// PauseCCPair suspends scheduling for a pair.
	PauseCCPair(ctx context.Context, ccpairID string) error

	// ResumeCCPair reactivates a paused or failed pair and resets its
	// failure streak.
	ResumeCCPair(ctx context.Context, ccpairID string) error
}
