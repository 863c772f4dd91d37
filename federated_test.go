package authd_test

import (
	"context"
	"errors"
	"testing"

	authd "github.com/blogforge/authd"
)

type stubFetcher struct {
	profile *authd.FederatedProfile
	err     error
	calls   int
}

func (s *stubFetcher) FetchProfile(_ context.Context, _ string) (*authd.FederatedProfile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

func googleProfile() authd.FederatedProfile {
	return authd.FederatedProfile{
		Email:    "Bob@Example.com",
		Name:     "Bob",
		Picture:  "https://img.example/b.png",
		Provider: "google",
	}
}

func TestReconcileFederatedCreatesAccount(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	pair, err := svc.ReconcileFederated(ctx, googleProfile())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("reconcile must issue a full token pair")
	}

	user, err := users.GetByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if user == nil {
		t.Fatal("account must be created")
	}
	if user.OAuthProvider != "google" {
		t.Errorf("OAuthProvider = %q", user.OAuthProvider)
	}
	if user.DisplayName != "Bob" {
		t.Errorf("DisplayName = %q, want Bob", user.DisplayName)
	}
	if user.Username != "" {
		t.Errorf("Username = %q, federated accounts must have no handle", user.Username)
	}
	if user.PasswordHash != "" {
		t.Error("federated accounts must have no password")
	}
	if len(user.Roles) != 1 || user.Roles[0] != "ROLE_USER" {
		t.Errorf("Roles = %v, want the default role", user.Roles)
	}

	// Tokens are keyed by the lowercased email.
	claims, err := svc.ParseToken(pair.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "bob@example.com" {
		t.Errorf("Subject = %q, want bob@example.com", claims.Subject)
	}
}

func TestReconcileFederatedIsIdempotentOnIdentity(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ReconcileFederated(ctx, googleProfile()); err != nil {
		t.Fatal(err)
	}
	first, err := users.GetByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}

	// Second login with a changed display name and picture: same account,
	// same roles, refreshed profile fields.
	updated := googleProfile()
	updated.Name = "Robert"
	updated.Picture = "https://img.example/b2.png"
	if _, err := svc.ReconcileFederated(ctx, updated); err != nil {
		t.Fatal(err)
	}

	second, err := users.GetByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Error("reconcile must not change the account id")
	}
	if second.DisplayName != "Robert" || second.ProfileImage != "https://img.example/b2.png" {
		t.Error("reconcile must refresh display name and picture")
	}
	if len(second.Roles) != len(first.Roles) {
		t.Errorf("Roles changed: %v -> %v", first.Roles, second.Roles)
	}
}

func TestReconcileFederatedSharedDisplayName(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	// Display names collide across provider accounts; both must reconcile.
	a := authd.FederatedProfile{Email: "john.a@example.com", Name: "John Smith", Provider: "google"}
	b := authd.FederatedProfile{Email: "john.b@example.com", Name: "John Smith", Provider: "google"}

	if _, err := svc.ReconcileFederated(ctx, a); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if _, err := svc.ReconcileFederated(ctx, b); err != nil {
		t.Fatalf("second reconcile with the same display name: %v", err)
	}

	first, err := users.GetByEmail(ctx, "john.a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, err := users.GetByEmail(ctx, "john.b@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if first == nil || second == nil || first.ID == second.ID {
		t.Fatal("both accounts must exist as distinct records")
	}
}

func TestReconcileFederatedDoesNotTouchLocalHandles(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSignup(t, svc, "alice", "correct horse")

	// A federated user whose provider display name matches a local handle
	// must not claim or shadow it.
	profile := authd.FederatedProfile{Email: "bob@example.com", Name: "alice", Provider: "google"}
	if _, err := svc.ReconcileFederated(ctx, profile); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "correct horse"); err != nil {
		t.Errorf("local login after federated reconcile: %v", err)
	}

	user, err := svc.ResolveIdentity(ctx, "alice")
	if err != nil {
		t.Fatalf("resolving the local handle: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("handle resolves to %q, want the local account", user.Email)
	}
}

func TestReconcileFederatedRejectsEmptyEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ReconcileFederated(context.Background(), authd.FederatedProfile{Name: "No Email"})
	if !errors.Is(err, authd.ErrProviderTokenInvalid) {
		t.Errorf("err = %v, want ErrProviderTokenInvalid", err)
	}
}

func TestFederatedRefreshAndLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.ReconcileFederated(ctx, googleProfile())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Logout by the token subject (an email) keys the session by email.
	if err := svc.Logout(ctx, "bob@example.com"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, authd.ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestExchangeProviderToken(t *testing.T) {
	profile := googleProfile()
	fetcher := &stubFetcher{profile: &profile}

	svc, users := newTestServiceWithFetcher(t, fetcher)
	ctx := context.Background()

	pair, err := svc.ExchangeProviderToken(ctx, "provider-token")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
	if pair.AccessToken == "" {
		t.Error("exchange must issue tokens")
	}

	user, err := users.GetByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if user == nil {
		t.Error("exchange must reconcile the account")
	}
}

func TestExchangeProviderTokenErrors(t *testing.T) {
	svc, _ := newTestServiceWithFetcher(t, &stubFetcher{err: authd.ErrProviderTokenInvalid})
	if _, err := svc.ExchangeProviderToken(context.Background(), "bad"); !errors.Is(err, authd.ErrProviderTokenInvalid) {
		t.Errorf("err = %v, want ErrProviderTokenInvalid", err)
	}

	// No fetcher configured at all.
	svc, _ = newTestService(t)
	if _, err := svc.ExchangeProviderToken(context.Background(), "token"); !errors.Is(err, authd.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}
