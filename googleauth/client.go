// Package googleauth implements the Google user-info client behind the
// [authd.ProfileFetcher] interface. It never sees local credentials or
// tokens; its only job is exchanging a Google access token for the
// holder's profile.
package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	authd "github.com/blogforge/authd"
)

// userInfoURL is Google's OpenID Connect user-info endpoint.
const userInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// providerName tags accounts reconciled through this client.
const providerName = "google"

// Endpoint is Google's OAuth2 authorization and token endpoint pair.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Client fetches Google profiles. The zero value is not usable; construct
// with [NewClient].
type Client struct {
	endpoint string
	timeout  time.Duration
}

// Option adjusts a Client. Used by tests to point at a fake endpoint.
type Option func(*Client)

// WithEndpoint overrides the user-info endpoint URL.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithTimeout bounds the user-info round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient returns a Google user-info client with a 5 second default
// timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint: userInfoURL,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OAuthConfig returns the authorization-code flow configuration for the
// platform's Google integration. The bearer-exchange path does not need
// it; it exists for frontends that initiate the redirect server-side.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     Endpoint,
	}
}

// userInfo is the subset of Google's user-info response we consume.
type userInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchProfile exchanges accessToken for the holder's profile.
//
// A 401/403 from Google means the token was rejected and maps to
// [authd.ErrProviderTokenInvalid]; transport failures and server errors
// map to [authd.ErrProviderUnavailable]. A response without an email is
// unusable for reconciliation and is treated as an invalid token.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*authd.FederatedProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	httpClient := oauth2.NewClient(ctx, src)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authd.ErrProviderUnavailable, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authd.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, authd.ErrProviderTokenInvalid
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: user-info returned %d", authd.ErrProviderUnavailable, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decoding user-info: %v", authd.ErrProviderUnavailable, err)
	}
	if info.Email == "" {
		return nil, authd.ErrProviderTokenInvalid
	}

	return &authd.FederatedProfile{
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
		Provider: providerName,
	}, nil
}
