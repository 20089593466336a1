package model

import (
	"errors"
	"fmt"
)

// Error taxonomy for the bank connection core. Callers map these to
// user-facing messages; none of them are retried automatically.
var (
	// ErrInvalidState means the presented state token matches no pending
	// authorization attempt, including attempts already consumed once.
	ErrInvalidState = errors.New("invalid or unknown authorization state")

	// ErrStateExpired means the authorization attempt exists but is past its
	// TTL. The user must restart the flow.
	ErrStateExpired = errors.New("authorization attempt expired")

	// ErrTokenExchangeFailed means the token endpoint rejected the
	// code-for-token exchange with a non-2xx response.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrNetwork means a transport-level failure or timeout talking to the
	// provider. It looks transient but the caller decides whether to retry.
	ErrNetwork = errors.New("network error contacting provider")

	// ErrNotAuthenticated means no valid token exists for the user and
	// refresh failed; the caller must prompt for reconnection.
	ErrNotAuthenticated = errors.New("not authenticated with provider")

	// ErrUnknownBank means the caller passed a bank id not in the catalog.
	ErrUnknownBank = errors.New("unknown bank")

	// ErrAccountNotFound is returned by the local account repository when no
	// account matches the lookup.
	ErrAccountNotFound = errors.New("local account not found")
)

// APIError means the provider rejected an authenticated API call for a
// reason other than token expiry.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error (status %d)", e.StatusCode)
}

// AuthorizationError carries the error code returned by the provider on the
// authorization callback (e.g. access_denied). It short-circuits the exchange
// before any token request is made.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authorization refused: %s", e.Code)
	}
	return fmt.Sprintf("authorization refused: %s (%s)", e.Code, e.Description)
}
