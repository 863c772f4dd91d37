// Package authd is the authentication core of the blog platform: JWT
// access/refresh token lifecycle, Redis-backed refresh sessions, local
// username/password credentials, and Google federated login.
//
// The package exposes [Service], [Builder], [Config], and value types
// ([User], [TokenPair], [Principal]). Token signing lives in
// [github.com/blogforge/authd/token], session persistence in
// [github.com/blogforge/authd/session], and the HTTP authentication
// filter in [github.com/blogforge/authd/middleware].
//
// # Architecture boundaries
//
// Service methods are safe for concurrent use after [Builder.Build]: the
// token codec is stateless, the session store delegates per-key atomicity
// to Redis, and the service itself holds no mutable fields. The only
// server-side state is the one live refresh token per identity; two logins
// racing on the same identity resolve by last write wins, which is the
// intended single-active-session policy.
//
// # What this package must NOT do
//
//   - Expose Redis clients or token internals in its public API.
//   - Write a session entry before token issuance has fully succeeded.
//   - Leak parse or infrastructure error detail into client-visible
//     messages; detail goes to the injected logger only.
package authd
