package authd

import "errors"

var (
	// ErrDuplicateUsername is returned by Signup when the handle is already
	// registered.
	ErrDuplicateUsername = errors.New("username already registered")
	// ErrUserNotFound is returned when a handle lookup finds no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by Login on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityNotFound is returned by identity resolution when neither
	// handle nor email lookup succeeds.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrSessionExpired is returned by Refresh when no live session entry
	// exists for the token's subject.
	ErrSessionExpired = errors.New("refresh session expired")
	// ErrSessionMismatch is returned by Refresh when the presented token
	// differs from the stored one (the session was rotated by a later login).
	ErrSessionMismatch = errors.New("refresh token mismatch")
	// ErrProviderTokenInvalid is returned when the federated provider
	// rejects the access token or its user-info response carries no email.
	ErrProviderTokenInvalid = errors.New("federated provider token invalid")
	// ErrProviderUnavailable wraps transport failures against the federated
	// provider's user-info endpoint.
	ErrProviderUnavailable = errors.New("federated provider unavailable")
)
