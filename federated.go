package authd

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// FederatedProfile is the identity material returned by a federated
// provider's user-info endpoint.
type FederatedProfile struct {
	Email    string
	Name     string
	Picture  string
	Provider string
}

// ProfileFetcher exchanges a federated provider's access token for the
// holder's profile. Implementations map failures to
// [ErrProviderTokenInvalid] and [ErrProviderUnavailable].
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*FederatedProfile, error)
}

// ReconcileFederated upserts a federated account by email and issues a
// local token pair keyed by that email.
//
// An existing record keeps its id, handle, and role set while display name
// and profile image are refreshed — providers may change both between
// logins. The display name is not a handle: it is neither unique nor
// involved in lookups, so two federated users may share one. A new record
// gets the default role, the provider tag, and no password.
func (s *Service) ReconcileFederated(ctx context.Context, profile FederatedProfile) (*TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return nil, ErrProviderTokenInvalid
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user != nil {
		user.DisplayName = profile.Name
		user.ProfileImage = profile.Picture
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "federated login: existing account", "email", email, "provider", profile.Provider)
	} else {
		user = &User{
			ID:            uuid.NewString(),
			DisplayName:   profile.Name,
			Email:         email,
			Roles:         []string{s.config.DefaultRole},
			OAuthProvider: profile.Provider,
			ProfileImage:  profile.Picture,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "federated login: account created", "email", email, "provider", profile.Provider)
	}

	// Federated users have no handle; tokens and the session entry are
	// keyed by email.
	return s.issuePair(ctx, email, user.Roles)
}

// ExchangeProviderToken resolves a federated provider access token to a
// profile via the provider's user-info endpoint and reconciles it into a
// local account and token pair.
func (s *Service) ExchangeProviderToken(ctx context.Context, providerToken string) (*TokenPair, error) {
	if s.profiles == nil {
		return nil, ErrProviderUnavailable
	}

	profile, err := s.profiles.FetchProfile(ctx, providerToken)
	if err != nil {
		return nil, err
	}

	return s.ReconcileFederated(ctx, *profile)
}
