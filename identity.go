package authd

import (
	"context"
	"strings"
)

// IdentityKind classifies an identifier string as a local handle or an
// email address.
type IdentityKind int

const (
	// IdentityHandle identifies a local account by its unique handle.
	IdentityHandle IdentityKind = iota
	// IdentityEmail identifies an account by its unique email, the key
	// used for federated logins.
	IdentityEmail
)

// KindOf classifies identifier. The rule is deliberately simple — local
// handles never contain "@", emails always do — and it is the single place
// that decision is made.
func KindOf(identifier string) IdentityKind {
	if strings.Contains(identifier, "@") {
		return IdentityEmail
	}
	return IdentityHandle
}

// ResolveIdentity maps a validated token subject to its user record:
// email subjects resolve by email (lowercased), handle subjects by handle.
// Returns [ErrIdentityNotFound] when no record matches.
func (s *Service) ResolveIdentity(ctx context.Context, identifier string) (*User, error) {
	var (
		user *User
		err  error
	)

	switch KindOf(identifier) {
	case IdentityEmail:
		user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
	default:
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return user, nil
}

// resolveForLogout finds the user record for a logout identifier. Unlike
// ResolveIdentity it always tries the handle first and falls back to email,
// because an access-token subject for a federated account is an email while
// some legacy clients send handles that happen to contain "@".
func (s *Service) resolveForLogout(ctx context.Context, identifier string) (*User, error) {
	user, err := s.users.GetByUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}
