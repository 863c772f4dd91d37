package authd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blogforge/authd/password"
	"github.com/blogforge/authd/session"
	"github.com/blogforge/authd/token"
)

// Service orchestrates signup, login, refresh, logout, and federated
// reconcile over the token codec, session store, and user store. It holds
// no mutable state and is safe for concurrent use.
type Service struct {
	config   Config
	codec    *token.Codec
	sessions *session.Store
	users    UserStore
	hasher   *password.Hasher
	profiles ProfileFetcher
	logger   *slog.Logger
}

// SignupRequest is the input for [Service.Signup]. Roles defaults to the
// configured standard role when empty.
type SignupRequest struct {
	Username string
	Password string
	Email    string
	Roles    []string
}

// ParseToken verifies tokenStr in one atomic pass and returns its claims.
// Failures are [token.ErrExpired] or [token.ErrInvalid].
func (s *Service) ParseToken(tokenStr string) (*token.Claims, error) {
	return s.codec.Parse(tokenStr)
}

// RefreshTTL exposes the refresh-token lifetime for callers that surface
// it (cookie Max-Age and the like).
func (s *Service) RefreshTTL() time.Duration {
	return s.codec.RefreshTTL()
}

// Signup registers a local account. The password is hashed with Argon2id
// before storage; the plaintext is never retained. Fails with
// [ErrDuplicateUsername] when the handle is taken, leaving the existing
// record untouched.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if KindOf(username) == IdentityEmail {
		return nil, errors.New("username must not contain '@'")
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUsername
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{s.config.DefaultRole}
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Roles:        roles,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account created", "username", username)
	return user, nil
}

// Login authenticates a local account and issues a fresh token pair. The
// refresh token becomes the one live session for the handle, replacing any
// prior session (last login wins). The session write happens only after
// both tokens were issued, so a failed issuance leaves no partial state.
func (s *Service) Login(ctx context.Context, username, pw string) (*TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.InfoContext(ctx, "login failed: unknown handle", "username", username)
		return nil, ErrUserNotFound
	}

	ok, err := s.hasher.Verify(pw, user.PasswordHash)
	if err != nil || !ok {
		s.logger.InfoContext(ctx, "login failed: password mismatch", "username", username)
		return nil, ErrInvalidCredentials
	}

	return s.issuePair(ctx, user.Username, user.Roles)
}

// Refresh exchanges a refresh token for a new access token. The session
// store is the source of truth: a token that verifies but is absent from
// the store fails with [ErrSessionExpired], and one that differs from the
// stored value fails with [ErrSessionMismatch] — a stale token whose
// session was rotated by a later login. The refresh token itself is not
// rotated here; it stays valid until expiry or logout.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	subject, err := s.codec.Subject(refreshToken)
	if err != nil {
		return "", err
	}

	stored, err := s.sessions.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", ErrSessionExpired
		}
		return "", err
	}
	if stored != refreshToken {
		s.logger.WarnContext(ctx, "refresh rejected: token does not match live session", "subject", subject)
		return "", ErrSessionMismatch
	}

	user, err := s.ResolveIdentity(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	// Roles come from the current user record, not the old token, so role
	// changes take effect on the next refresh.
	return s.codec.IssueAccess(subject, user.Roles)
}

// Logout deletes the identity's session entry, invalidating its refresh
// token. The identifier resolves handle-first with an email fallback; the
// session key follows the account kind (federated accounts key by email).
// Idempotent: a missing entry is logged as a no-op, not an error.
func (s *Service) Logout(ctx context.Context, identifier string) error {
	user, err := s.resolveForLogout(ctx, identifier)
	if err != nil {
		return err
	}

	identity := user.SessionIdentity()
	present, err := s.sessions.Delete(ctx, identity)
	if err != nil {
		return err
	}
	if present {
		s.logger.InfoContext(ctx, "logout: session deleted", "identity", identity)
	} else {
		s.logger.InfoContext(ctx, "logout: no live session", "identity", identity)
	}

	return nil
}

// issuePair issues an access+refresh pair for identity and records the
// refresh token as the identity's single live session.
func (s *Service) issuePair(ctx context.Context, identity string, roles []string) (*TokenPair, error) {
	access, err := s.codec.IssueAccess(identity, roles)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.IssueRefresh(identity)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.sessions.Put(ctx, identity, refresh, s.codec.RefreshTTL()); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
