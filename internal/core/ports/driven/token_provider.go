package driven

import "context"

// TokenProvider provides access tokens for authenticated API calls.
// Implementations handle token refresh transparently: if the stored
// token is expired (or close to it), the provider exchanges the refresh
// material at the source's token endpoint, persists the updated payload
// and returns the new token.
//
// Refresh is safe under concurrent callers for the same credential:
// exactly one exchange is in flight at a time and concurrent callers
// share its result. A failed refresh surfaces ErrTokenRefreshFailed and
// leaves stored state untouched.
type TokenProvider interface {
	// GetToken returns a valid access token.
	// Returns an empty string for no-auth connectors.
	GetToken(ctx context.Context) (string, error)

	// CredentialID returns the credential being used.
	// Returns an empty string for no-auth connectors.
	CredentialID() string
}
