package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storemem "github.com/quarry-search/quarry/internal/adapters/driven/storage/memory"
	"github.com/quarry-search/quarry/internal/core/domain"
)

func newAdminService() (*AdminService, *storemem.CCPairStore) {
	pairs := storemem.NewCCPairStore()
	return NewAdminService(
		storemem.NewConnectorStore(),
		storemem.NewCredentialStore(),
		pairs,
		newMockFactory(),
	), pairs
}

func TestAdminCreateConnector(t *testing.T) {
	ctx := context.Background()
	admin, _ := newAdminService()

	created, err := admin.CreateConnector(ctx, domain.Connector{
		Source: "mock",
		Name:   "My Source",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, DefaultRefreshInterval, created.RefreshInterval)

	listed, err := admin.ListConnectors(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "My Source", listed[0].Name)
}

func TestAdminCreateConnectorRejectsUnknownSource(t *testing.T) {
	ctx := context.Background()
	admin, _ := newAdminService()

	_, err := admin.CreateConnector(ctx, domain.Connector{Source: "gopher", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = admin.CreateConnector(ctx, domain.Connector{Source: "mock"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdminCreateCredential(t *testing.T) {
	ctx := context.Background()
	admin, _ := newAdminService()

	created, err := admin.CreateCredential(ctx, domain.Credential{
		Source: "mock",
		Static: &domain.StaticPayload{Token: "tok"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = admin.CreateCredential(ctx, domain.Credential{Source: "mock"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = admin.CreateCredential(ctx, domain.Credential{
		Source: "mock",
		Static: &domain.StaticPayload{Token: "tok"},
		OAuth:  &domain.OAuthPayload{AccessToken: "tok"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdminCreateCCPair(t *testing.T) {
	ctx := context.Background()
	admin, _ := newAdminService()

	connector, err := admin.CreateConnector(ctx, domain.Connector{Source: "mock", Name: "Src"})
	require.NoError(t, err)
	cred, err := admin.CreateCredential(ctx, domain.Credential{
		Source: "mock",
		Static: &domain.StaticPayload{Token: "tok"},
	})
	require.NoError(t, err)

	pair, err := admin.CreateCCPair(ctx, connector.ID, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CCPairActive, pair.Status)

	views, err := admin.ListCCPairs(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, connector.ID, views[0].Connector.ID)

	// Missing references are rejected.
	_, err = admin.CreateCCPair(ctx, "nope", cred.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = admin.CreateCCPair(ctx, connector.ID, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdminCreateCCPairSourceMismatch(t *testing.T) {
	ctx := context.Background()
	admin, _ := newAdminService()

	connector, err := admin.CreateConnector(ctx, domain.Connector{Source: "mock", Name: "Src"})
	require.NoError(t, err)
	cred, err := admin.CreateCredential(ctx, domain.Credential{
		Source: "github",
		Static: &domain.StaticPayload{Token: "tok"},
	})
	require.NoError(t, err)

	_, err = admin.CreateCCPair(ctx, connector.ID, cred.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdminPauseResume(t *testing.T) {
	ctx := context.Background()
	admin, pairs := newAdminService()

	connector, err := admin.CreateConnector(ctx, domain.Connector{Source: "mock", Name: "Src"})
	require.NoError(t, err)
	pair, err := admin.CreateCCPair(ctx, connector.ID, "")
	require.NoError(t, err)

	require.NoError(t, admin.PauseCCPair(ctx, pair.ID))
	got, err := pairs.Get(ctx, pair.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CCPairPaused, got.Status)

	// Resume clears a failure streak accrued before the pause.
	got.FailureStreak = 4
	got.Status = domain.CCPairFailed
	got.UpdatedAt = time.Now()
	require.NoError(t, pairs.Save(ctx, *got))

	require.NoError(t, admin.ResumeCCPair(ctx, pair.ID))
	got, err = pairs.Get(ctx, pair.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CCPairActive, got.Status)
	assert.Equal(t, 0, got.FailureStreak)
}
