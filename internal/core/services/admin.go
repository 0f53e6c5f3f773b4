package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
	"github.com/quarry-search/quarry/internal/core/ports/driving"
	"github.com/quarry-search/quarry/internal/logger"
)

var _ driving.AdminService = (*AdminService)(nil)

// DefaultRefreshInterval is applied to connectors created without one.
const DefaultRefreshInterval = 10 * time.Minute

// AdminService manages connectors, credentials and pairs. It backs the
// administrative CLI commands.
type AdminService struct {
	connectors  driven.ConnectorStore
	credentials driven.CredentialStore
	pairs       driven.CCPairStore
	factory     driven.ConnectorFactory
}

// NewAdminService creates a new admin service.
func NewAdminService(
	connectors driven.ConnectorStore,
	credentials driven.CredentialStore,
	pairs driven.CCPairStore,
	factory driven.ConnectorFactory,
) *AdminService {
	return &AdminService{
		connectors:  connectors,
		credentials: credentials,
		pairs:       pairs,
		factory:     factory,
	}
}

// CreateConnector validates and stores a new connector.
func (a *AdminService) CreateConnector(ctx context.Context, connector domain.Connector) (*domain.Connector, error) {
	if connector.Name == "" {
		return nil, fmt.Errorf("%w: connector name is required", domain.ErrInvalidInput)
	}
	supported := a.factory.SupportedTypes()
	if !slices.Contains(supported, connector.Source) {
		return nil, fmt.Errorf("%w: source %q (supported: %v)", domain.ErrUnsupportedType, connector.Source, supported)
	}

	now := time.Now().UTC()
	connector.ID = uuid.NewString()
	connector.CreatedAt = now
	connector.UpdatedAt = now
	if connector.RefreshInterval <= 0 {
		connector.RefreshInterval = DefaultRefreshInterval
	}

	if err := a.connectors.Save(ctx, connector); err != nil {
		return nil, fmt.Errorf("save connector: %w", err)
	}
	logger.Info("Created connector %s (%s)", connector.Name, connector.Source)
	return &connector, nil
}

// ListConnectors returns all configured connectors.
func (a *AdminService) ListConnectors(ctx context.Context) ([]domain.Connector, error) {
	return a.connectors.List(ctx)
}

// CreateCredential stores new auth material.
func (a *AdminService) CreateCredential(ctx context.Context, cred domain.Credential) (*domain.Credential, error) {
	if cred.OAuth == nil && cred.Static == nil {
		return nil, fmt.Errorf("%w: credential has no payload", domain.ErrInvalidInput)
	}
	if cred.OAuth != nil && cred.Static != nil {
		return nil, fmt.Errorf("%w: credential has both oauth and static payloads", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	cred.ID = uuid.NewString()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	if err := a.credentials.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	logger.Info("Created credential %s for source %s", cred.ID, cred.Source)
	return &cred, nil
}

// CreateCCPair binds a connector to a credential. An empty credentialID
// is allowed for sources that need no auth.
func (a *AdminService) CreateCCPair(ctx context.Context, connectorID, credentialID string) (*domain.CCPair, error) {
	connector, err := a.connectors.Get(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("get connector: %w", err)
	}
	if credentialID != "" {
		cred, err := a.credentials.Get(ctx, credentialID)
		if err != nil {
			return nil, fmt.Errorf("get credential: %w", err)
		}
		if cred.Source != "" && cred.Source != connector.Source {
			return nil, fmt.Errorf("%w: credential source %s does not match connector source %s",
				domain.ErrInvalidInput, cred.Source, connector.Source)
		}
	}

	now := time.Now().UTC()
	pair := domain.CCPair{
		ID:           uuid.NewString(),
		ConnectorID:  connectorID,
		CredentialID: credentialID,
		Status:       domain.CCPairActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.pairs.Save(ctx, pair); err != nil {
		return nil, fmt.Errorf("save pair: %w", err)
	}
	logger.Info("Created pair %s (%s)", pair.ID, connector.Name)
	return &pair, nil
}

// ListCCPairs returns all pairs joined with their connectors.
func (a *AdminService) ListCCPairs(ctx context.Context) ([]driving.CCPairView, error) {
	pairs, err := a.pairs.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]driving.CCPairView, 0, len(pairs))
	for _, pair := range pairs {
		connector, err := a.connectors.Get(ctx, pair.ConnectorID)
		if err != nil {
			return nil, fmt.Errorf("get connector %s: %w", pair.ConnectorID, err)
		}
		views = append(views, driving.CCPairView{Pair: pair, Connector: *connector})
	}
	return views, nil
}

// PauseCCPair suspends scheduling for a pair.
func (a *AdminService) PauseCCPair(ctx context.Context, ccpairID string) error {
	pair, err := a.pairs.Get(ctx, ccpairID)
	if err != nil {
		return err
	}
	pair.Status = domain.CCPairPaused
	pair.UpdatedAt = time.Now().UTC()
	return a.pairs.Save(ctx, *pair)
}

// ResumeCCPair reactivates a paused or failed pair and resets its
// failure streak so it gets a clean run of attempts.
func (a *AdminService) ResumeCCPair(ctx context.Context, ccpairID string) error {
	pair, err := a.pairs.Get(ctx, ccpairID)
	if err != nil {
		return err
	}
	pair.Status = domain.CCPairActive
	pair.FailureStreak = 0
	pair.UpdatedAt = time.Now().UTC()
	return a.pairs.Save(ctx, *pair)
}
