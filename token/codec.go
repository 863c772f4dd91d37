// Package token implements the signed-token codec used for access and
// refresh credentials.
//
// Tokens are compact JWS strings signed with HMAC-SHA-256 using a key
// derived from a Base64-encoded shared secret. Access tokens carry the
// subject and a sorted role list; refresh tokens carry only the subject.
// The codec is stateless: every operation is a pure function of the token
// string, the key, and the clock, so a single Codec is safe for concurrent
// use.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired is returned for a well-signed token whose expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned when a token is malformed, signed with the
	// wrong key, or uses an unexpected algorithm.
	ErrInvalid = errors.New("invalid token")
)

// Config carries the signing secret and token lifetimes. The secret is the
// Base64 encoding of the raw HMAC key material.
type Config struct {
	SecretBase64 string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// Claims is the claim set carried by both token kinds. Roles is present on
// access tokens only.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access/refresh tokens.
type Codec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec decodes the shared secret and validates the configured
// lifetimes. Only HS256 is supported; there is no algorithm negotiation.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}

	key, err := base64.StdEncoding.DecodeString(cfg.SecretBase64)
	if err != nil {
		return nil, fmt.Errorf("secret is not valid base64: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("empty signing secret")
	}

	return &Codec{
		key:        key,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// IssueAccess creates a signed access token for subject carrying the given
// roles. Roles are deduplicated and sorted so the claim has one canonical
// wire form regardless of caller ordering.
func (c *Codec) IssueAccess(subject string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		Roles: canonicalRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// IssueRefresh creates a signed refresh token for subject. Refresh tokens
// carry no roles claim; role resolution happens against the user record at
// refresh time. The jti makes every issued token distinct, so last-login-wins
// mismatch detection works even for back-to-back logins within one clock tick.
func (c *Codec) IssueRefresh(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Parse verifies the signature and expiry of tokenStr in one pass and
// returns the claim set. Signature verification and expiry checking are a
// single atomic operation: the token is never parsed twice, so there is no
// check/use drift at the expiry boundary.
//
// A well-signed token past its expiry yields [ErrExpired]; everything else
// that fails yields [ErrInvalid].
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}

	return claims, nil
}

// Subject parses and verifies tokenStr and returns its subject claim.
func (c *Codec) Subject(tokenStr string) (string, error) {
	claims, err := c.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Roles parses and verifies tokenStr and returns its role set. A token
// without a roles claim yields an empty slice, not an error.
func (c *Codec) Roles(tokenStr string) ([]string, error) {
	claims, err := c.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Roles == nil {
		return []string{}, nil
	}
	return claims.Roles, nil
}

// Valid reports whether tokenStr parses, verifies, and has not expired.
// It never returns an error.
func (c *Codec) Valid(tokenStr string) bool {
	_, err := c.Parse(tokenStr)
	return err == nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime. Session entries
// expire on the same schedule.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func canonicalRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
