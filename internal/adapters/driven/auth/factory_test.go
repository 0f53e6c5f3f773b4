package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/core/domain"
)

func TestProviderFactory_CreateTokenProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("empty credential yields null provider", func(t *testing.T) {
		factory := NewProviderFactory(newMemCredentialStore())

		provider, err := factory.CreateTokenProvider(ctx, "")

		require.NoError(t, err)
		assert.IsType(t, &NullProvider{}, provider)
	})

	t.Run("oauth credential yields oauth provider", func(t *testing.T) {
		store := newMemCredentialStore()
		require.NoError(t, store.Save(ctx, domain.Credential{
			ID:    "cred-oauth",
			OAuth: &domain.OAuthPayload{AccessToken: "tok"},
		}))
		factory := NewProviderFactory(store)

		provider, err := factory.CreateTokenProvider(ctx, "cred-oauth")

		require.NoError(t, err)
		assert.IsType(t, &OAuthProvider{}, provider)
		assert.Equal(t, "cred-oauth", provider.CredentialID())
	})

	t.Run("static credential yields static provider", func(t *testing.T) {
		store := newMemCredentialStore()
		require.NoError(t, store.Save(ctx, domain.Credential{
			ID:     "cred-static",
			Static: &domain.StaticPayload{Token: "pat"},
		}))
		factory := NewProviderFactory(store)

		provider, err := factory.CreateTokenProvider(ctx, "cred-static")

		require.NoError(t, err)
		assert.IsType(t, &StaticProvider{}, provider)
	})

	t.Run("missing credential errors", func(t *testing.T) {
		factory := NewProviderFactory(newMemCredentialStore())

		_, err := factory.CreateTokenProvider(ctx, "nope")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("providers are cached per credential", func(t *testing.T) {
		store := newMemCredentialStore()
		require.NoError(t, store.Save(ctx, domain.Credential{
			ID:    "cred-oauth",
			OAuth: &domain.OAuthPayload{AccessToken: "tok"},
		}))
		factory := NewProviderFactory(store)

		first, err := factory.CreateTokenProvider(ctx, "cred-oauth")
		require.NoError(t, err)
		second, err := factory.CreateTokenProvider(ctx, "cred-oauth")
		require.NoError(t, err)

		assert.Same(t, first, second)
	})
}

func TestStaticProvider_GetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored token", func(t *testing.T) {
		store := newMemCredentialStore()
		require.NoError(t, store.Save(ctx, domain.Credential{
			ID:     "cred-static",
			Static: &domain.StaticPayload{Token: "pat-token"},
		}))

		token, err := NewStaticProvider("cred-static", store).GetToken(ctx)

		require.NoError(t, err)
		assert.Equal(t, "pat-token", token)
	})

	t.Run("missing static payload errors", func(t *testing.T) {
		store := newMemCredentialStore()
		require.NoError(t, store.Save(ctx, domain.Credential{ID: "cred-bare"}))

		_, err := NewStaticProvider("cred-bare", store).GetToken(ctx)

		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})
}

func TestNullProvider_GetToken(t *testing.T) {
	token, err := NewNullProvider().GetToken(context.Background())

	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, NewNullProvider().CredentialID())
}
