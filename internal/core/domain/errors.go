package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown connector source type.
	// Attempts against an unknown source never claim an index attempt.
	ErrUnsupportedType = errors.New("unsupported source type")

	// ErrSyncInProgress indicates an attempt is already running for the
	// connector-credential pair. Returned to concurrent triggers; it is
	// the already-running signal, not a failure of the sync itself.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrCCPairDisabled indicates the pair's connector is disabled or the
	// pair is paused, so no attempt may start.
	ErrCCPairDisabled = errors.New("connector-credential pair disabled")

	// Authentication Errors.

	// ErrAuthRequired indicates the connector requires authentication but none is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the authentication has expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	// A failed refresh leaves the stored credential payload untouched.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Connector Errors.

	// ErrConnectorValidation indicates connector validation failed.
	// The connector is misconfigured or credentials are invalid.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrLiveListingUnsupported indicates the connector cannot enumerate
	// the live upstream ID set, so pruning is skipped for it.
	ErrLiveListingUnsupported = errors.New("live listing unsupported")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrCredentialInUse indicates a credential cannot be deleted because
	// connector-credential pairs depend on it.
	ErrCredentialInUse = errors.New("credential is in use by one or more pairs")
)
