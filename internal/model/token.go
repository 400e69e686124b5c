package model

import "time"

// Token is a bearer credential carrying a set of capability flags. The
// value itself is the secret; tokens are never physically deleted, only
// expired by setting ExpiresAt to the revocation time.
type Token struct {
	Value     string    `json:"-" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	PermissionFlags
}

// Expired reports whether the token is no longer valid at the given
// instant. A token is effective only while ExpiresAt is strictly in
// the future.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Permissions returns the token's capability bitset.
func (t *Token) Permissions() Permissions {
	return t.PermissionFlags.Permissions()
}
