package authd

import "context"

// User is the identity record shared by local and federated accounts.
//
// Exactly one of Username and Email is guaranteed non-empty: local accounts
// are keyed by their unique handle (Username), federated accounts by their
// unique email and carry no handle. DisplayName is free-form and not unique;
// the provider's display name goes there, never into Username. PasswordHash
// is set for local accounts only and is never required for token-based
// resolution.
type User struct {
	ID            string
	Username      string
	DisplayName   string
	PasswordHash  string
	Email         string
	Roles         []string
	OAuthProvider string
	ProfileImage  string
}

// SessionIdentity returns the session-store key component for u: the email
// for federated accounts (they have no handle), the handle otherwise.
func (u *User) SessionIdentity() string {
	if u.OAuthProvider != "" {
		return u.Email
	}
	return u.Username
}

// TokenPair is an ephemeral access/refresh token pair. It is returned to
// the client and never persisted as a unit; only the refresh token is
// tracked server-side, in the session store.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Principal is the request-scoped identity attached by the authentication
// filter after a successful token validation. It lives for the duration of
// one request.
type Principal struct {
	Subject string
	Roles   []string
	User    *User
}

// HasRole reports whether the principal was granted role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserStore is the narrow persistence interface the service depends on.
// Lookups return (nil, nil) when no record matches; an error means the
// backing store failed. Create must reject a duplicate handle or email
// with [ErrDuplicateUsername].
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
}
