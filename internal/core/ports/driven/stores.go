package driven

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// ConnectorStore persists connector configurations.
type ConnectorStore interface {
	// Save stores or updates a connector.
	Save(ctx context.Context, connector domain.Connector) error

	// Get retrieves a connector by ID.
	Get(ctx context.Context, id string) (*domain.Connector, error)

	// List returns all configured connectors.
	List(ctx context.Context) ([]domain.Connector, error)

	// Delete removes a connector.
	Delete(ctx context.Context, id string) error
}

// CredentialStore persists credentials.
// Payload updates from token refresh go through Save; a refresh must be
// persisted before the refreshed token is handed to any caller.
type CredentialStore interface {
	// Save stores or updates a credential.
	Save(ctx context.Context, cred domain.Credential) error

	// Get retrieves a credential by ID.
	Get(ctx context.Context, id string) (*domain.Credential, error)

	// List returns all credentials.
	List(ctx context.Context) ([]domain.Credential, error)

	// Delete removes a credential. Returns ErrCredentialInUse while any
	// pair still references it.
	Delete(ctx context.Context, id string) error
}

// CCPairStore persists connector-credential pairs.
type CCPairStore interface {
	// Save stores or updates a pair.
	Save(ctx context.Context, pair domain.CCPair) error

	// Get retrieves a pair by ID.
	Get(ctx context.Context, id string) (*domain.CCPair, error)

	// List returns all pairs.
	List(ctx context.Context) ([]domain.CCPair, error)

	// Delete removes a pair and its document associations.
	Delete(ctx context.Context, id string) error
}
