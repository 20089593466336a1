package model

import "time"

// AttemptTTL is how long an authorization attempt stays redeemable after
// creation. The provider rejects stale codes anyway; the local bound keeps
// the state store from accumulating abandoned attempts.
const AttemptTTL = 15 * time.Minute

// AuthorizationAttempt is a short-lived PKCE state record created when an
// authorization URL is issued. Each attempt is single-use: it is consumed and
// deleted exactly once on code exchange, or garbage-collected past its TTL.
type AuthorizationAttempt struct {
	State        string
	UserID       string
	CodeVerifier string
	Scopes       []string
	CreatedAt    time.Time
}

// ExpiredAt reports whether the attempt is past its TTL at the given time.
func (a AuthorizationAttempt) ExpiredAt(now time.Time) bool {
	return now.Sub(a.CreatedAt) > AttemptTTL
}
