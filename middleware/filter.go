// Package middleware exposes the HTTP authentication filter and role
// guards built on top of the authd service.
//
// The filter runs once per request: it extracts the bearer token, verifies
// it in a single atomic parse, resolves the subject to a user record, and
// attaches a request-scoped [authd.Principal] to the context. Requests
// without a bearer token pass through unauthenticated — route policy
// (RequireAuthenticated, RequireRole) decides whether that is acceptable.
//
// This package translates HTTP semantics into service calls only; it makes
// no authentication decisions of its own and never touches Redis directly.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authd "github.com/blogforge/authd"
	"github.com/blogforge/authd/token"
)

type principalContextKey struct{}

// PrincipalFromContext returns the authenticated principal attached by
// [Authenticate], if any.
func PrincipalFromContext(ctx context.Context) (*authd.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authd.Principal)
	return p, ok
}

// ContextWithPrincipal attaches p to ctx. Exported for handler tests.
func ContextWithPrincipal(ctx context.Context, p *authd.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Authenticate returns the once-per-request authentication filter.
//
// Paths listed in bypass skip token processing entirely — the federated
// login callback authenticates with a provider token, not a local bearer
// token. An expired token short-circuits with 401, an invalid one with
// 403; both bodies are generic, with detail going to the server log only.
// A valid token whose subject no longer resolves passes through
// unauthenticated and leaves the rejection to route policy.
func Authenticate(svc *authd.Service, bypass ...string) func(http.Handler) http.Handler {
	bypassSet := make(map[string]struct{}, len(bypass))
	for _, p := range bypass {
		bypassSet[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := bypassSet[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := svc.ParseToken(raw)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					writeError(w, http.StatusUnauthorized, "token expired")
					return
				}
				writeError(w, http.StatusForbidden, "invalid token")
				return
			}

			// Idempotent under internal re-entry: never replace an
			// already attached principal.
			if _, attached := PrincipalFromContext(r.Context()); attached {
				next.ServeHTTP(w, r)
				return
			}

			user, err := svc.ResolveIdentity(r.Context(), claims.Subject)
			if err != nil {
				// Unresolvable subject or store failure: continue
				// unauthenticated and let route policy decide.
				next.ServeHTTP(w, r)
				return
			}

			principal := &authd.Principal{
				Subject: claims.Subject,
				Roles:   claims.Roles,
				User:    user,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuthenticated rejects requests without an attached principal.
func RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests whose principal lacks role. Unauthenticated
// requests get 401, authenticated ones without the role get 403.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !principal.HasRole(role) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the credential from an Authorization header value.
// It is the single place bearer parsing happens; handlers that accept
// non-local bearer credentials (the federated callback) use it too.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	tok := strings.TrimSpace(value[len(bearer):])
	if tok == "" {
		return "", false
	}

	return tok, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
