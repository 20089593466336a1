package model

import "time"

// TokenRecord holds the OAuth2 credentials granted to one user. There is at
// most one record per user per provider; it is owned by the token store and
// mutated only by the OAuth2 client on exchange or refresh.
type TokenRecord struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	Scopes       []string
}

// ValidFor reports whether the access token remains valid for at least the
// given margin past now. A margin guards against the token expiring between
// the check and a subsequent API call.
func (t TokenRecord) ValidFor(now time.Time, margin time.Duration) bool {
	return now.Add(margin).Before(t.ExpiresAt)
}
