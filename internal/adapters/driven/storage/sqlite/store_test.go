package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

// createTestPair creates a connector, credential and pair to satisfy
// foreign key constraints.
func createTestPair(t *testing.T, store *Store, pairID string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.ConnectorStore().Save(ctx, domain.Connector{
		ID:     "connector-" + pairID,
		Source: "localdir",
		Name:   "Test Connector " + pairID,
		Config: map[string]string{"path": "/tmp"},
	}))
	require.NoError(t, store.CredentialStore().Save(ctx, domain.Credential{
		ID:     "credential-" + pairID,
		Source: "localdir",
	}))
	require.NoError(t, store.CCPairStore().Save(ctx, domain.CCPair{
		ID:           pairID,
		ConnectorID:  "connector-" + pairID,
		CredentialID: "credential-" + pairID,
		Status:       domain.CCPairActive,
	}))
}

func TestNewStore(t *testing.T) {
	t.Run("creates database file and schema", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		defer store.Close()

		_, statErr := os.Stat(filepath.Join(dir, "metadata.db"))
		assert.NoError(t, statErr)
	})

	t.Run("reopening an existing database is idempotent", func(t *testing.T) {
		dir := t.TempDir()

		store, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.ConnectorStore().Save(context.Background(), domain.Connector{
			ID: "c1", Source: "box", Name: "Box", Config: map[string]string{},
		}))
		require.NoError(t, store.Close())

		reopened, err := NewStore(dir)
		require.NoError(t, err)
		defer reopened.Close()

		connector, err := reopened.ConnectorStore().Get(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "Box", connector.Name)
	})
}

func TestConnectorStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get round-trips all fields", func(t *testing.T) {
		store := setupTestStore(t)
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		connector := domain.Connector{
			ID:              "c1",
			Source:          "github",
			Name:            "Issues",
			Config:          map[string]string{"repos": "octocat/hello-world"},
			RefreshInterval: 10 * time.Minute,
			PruneInterval:   time.Hour,
			Schedule:        "0 3 * * *",
			IndexingStart:   &start,
			Disabled:        true,
		}

		require.NoError(t, store.ConnectorStore().Save(ctx, connector))
		got, err := store.ConnectorStore().Get(ctx, "c1")

		require.NoError(t, err)
		assert.Equal(t, connector.Source, got.Source)
		assert.Equal(t, connector.Config, got.Config)
		assert.Equal(t, connector.RefreshInterval, got.RefreshInterval)
		assert.Equal(t, connector.PruneInterval, got.PruneInterval)
		assert.Equal(t, connector.Schedule, got.Schedule)
		require.NotNil(t, got.IndexingStart)
		assert.True(t, got.IndexingStart.Equal(start))
		assert.True(t, got.Disabled)
	})

	t.Run("get missing connector", func(t *testing.T) {
		store := setupTestStore(t)

		_, err := store.ConnectorStore().Get(ctx, "nope")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save updates existing", func(t *testing.T) {
		store := setupTestStore(t)
		connector := domain.Connector{ID: "c1", Source: "box", Name: "Old", Config: map[string]string{}}
		require.NoError(t, store.ConnectorStore().Save(ctx, connector))

		connector.Name = "New"
		require.NoError(t, store.ConnectorStore().Save(ctx, connector))

		got, err := store.ConnectorStore().Get(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "New", got.Name)

		all, err := store.ConnectorStore().List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("delete removes connector", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.ConnectorStore().Save(ctx, domain.Connector{
			ID: "c1", Source: "box", Name: "Box", Config: map[string]string{},
		}))

		require.NoError(t, store.ConnectorStore().Delete(ctx, "c1"))

		_, err := store.ConnectorStore().Get(ctx, "c1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()

	t.Run("oauth payload round-trips", func(t *testing.T) {
		store := setupTestStore(t)
		expiry := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		cred := domain.Credential{
			ID:     "cred-1",
			Source: "box",
			Shared: true,
			OAuth: &domain.OAuthPayload{
				AccessToken:  "access",
				RefreshToken: "refresh",
				TokenType:    "bearer",
				Expiry:       expiry,
				ClientID:     "client",
				ClientSecret: "secret",
				TokenURL:     "https://api.box.com/oauth2/token",
			},
		}

		require.NoError(t, store.CredentialStore().Save(ctx, cred))
		got, err := store.CredentialStore().Get(ctx, "cred-1")

		require.NoError(t, err)
		assert.True(t, got.Shared)
		require.NotNil(t, got.OAuth)
		assert.Equal(t, "access", got.OAuth.AccessToken)
		assert.Equal(t, "refresh", got.OAuth.RefreshToken)
		assert.True(t, got.OAuth.Expiry.Equal(expiry))
		assert.Nil(t, got.Static)
	})

	t.Run("token refresh rewrites payload under the same identity", func(t *testing.T) {
		store := setupTestStore(t)
		cred := domain.Credential{
			ID:     "cred-1",
			Source: "box",
			OAuth:  &domain.OAuthPayload{AccessToken: "old", RefreshToken: "r1"},
		}
		require.NoError(t, store.CredentialStore().Save(ctx, cred))

		cred.OAuth.AccessToken = "new"
		cred.OAuth.RefreshToken = "r2"
		require.NoError(t, store.CredentialStore().Save(ctx, cred))

		got, err := store.CredentialStore().Get(ctx, "cred-1")
		require.NoError(t, err)
		assert.Equal(t, "new", got.OAuth.AccessToken)
		assert.Equal(t, "r2", got.OAuth.RefreshToken)

		all, err := store.CredentialStore().List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("delete refuses while referenced by a pair", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		err := store.CredentialStore().Delete(ctx, "credential-pair-1")

		assert.ErrorIs(t, err, domain.ErrCredentialInUse)

		// Removing the pair releases the credential.
		require.NoError(t, store.CCPairStore().Delete(ctx, "pair-1"))
		assert.NoError(t, store.CredentialStore().Delete(ctx, "credential-pair-1"))
	})
}

func TestCCPairStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get round-trips counters", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		pair, err := store.CCPairStore().Get(ctx, "pair-1")
		require.NoError(t, err)

		pair.Status = domain.CCPairFailed
		pair.LastAttemptStatus = domain.AttemptFailed
		pair.TotalDocsIndexed = 42
		pair.FailureStreak = 3
		pair.LastSuccessfulIndexTime = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
		require.NoError(t, store.CCPairStore().Save(ctx, *pair))

		got, err := store.CCPairStore().Get(ctx, "pair-1")
		require.NoError(t, err)
		assert.Equal(t, domain.CCPairFailed, got.Status)
		assert.Equal(t, domain.AttemptFailed, got.LastAttemptStatus)
		assert.Equal(t, 42, got.TotalDocsIndexed)
		assert.Equal(t, 3, got.FailureStreak)
		assert.True(t, got.LastSuccessfulIndexTime.Equal(pair.LastSuccessfulIndexTime))
	})

	t.Run("no-auth pair stores an empty credential", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.ConnectorStore().Save(ctx, domain.Connector{
			ID:     "connector-1",
			Source: "localdir",
			Name:   "Docs",
			Config: map[string]string{"path": "/tmp"},
		}))

		// localdir needs no credential; the empty ID must round-trip
		// with foreign keys enabled.
		require.NoError(t, store.CCPairStore().Save(ctx, domain.CCPair{
			ID:          "pair-1",
			ConnectorID: "connector-1",
			Status:      domain.CCPairActive,
		}))

		got, err := store.CCPairStore().Get(ctx, "pair-1")
		require.NoError(t, err)
		assert.Empty(t, got.CredentialID)

		// A second no-auth pairing of the same connector is still a
		// duplicate binding.
		err = store.CCPairStore().Save(ctx, domain.CCPair{
			ID:          "pair-2",
			ConnectorID: "connector-1",
			Status:      domain.CCPairActive,
		})
		assert.Error(t, err)
	})

	t.Run("duplicate connector-credential binding is rejected", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		err := store.CCPairStore().Save(ctx, domain.CCPair{
			ID:           "pair-2",
			ConnectorID:  "connector-pair-1",
			CredentialID: "credential-pair-1",
			Status:       domain.CCPairActive,
		})

		assert.Error(t, err)
	})

	t.Run("get missing pair", func(t *testing.T) {
		store := setupTestStore(t)

		_, err := store.CCPairStore().Get(ctx, "nope")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
