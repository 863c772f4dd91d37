package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	authd "github.com/blogforge/authd"
)

// uniqueViolation is the Postgres error code for a unique-constraint hit.
const uniqueViolation = "23505"

// Postgres is a pgx-backed [authd.UserStore] over a `users` table:
//
//	CREATE TABLE users (
//	    id             TEXT PRIMARY KEY,
//	    username       TEXT UNIQUE,
//	    display_name   TEXT,
//	    password_hash  TEXT,
//	    email          TEXT UNIQUE,
//	    roles          TEXT[] NOT NULL,
//	    oauth_provider TEXT,
//	    profile_image  TEXT
//	);
//
// display_name is deliberately not unique; providers hand out colliding
// display names and they are never used for lookups.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a user store on the given connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const userColumns = "id, username, display_name, password_hash, email, roles, oauth_provider, profile_image"

// GetByUsername returns the user with the given handle, or (nil, nil).
// An error is returned only for database failures, not for missing rows.
func (p *Postgres) GetByUsername(ctx context.Context, username string) (*authd.User, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or (nil, nil).
func (p *Postgres) GetByEmail(ctx context.Context, email string) (*authd.User, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", strings.ToLower(email))
	return scanUser(row)
}

// Create inserts u. Unique-constraint violations on handle or email map to
// [authd.ErrDuplicateUsername].
func (p *Postgres) Create(ctx context.Context, u *authd.User) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, username, display_name, password_hash, email, roles, oauth_provider, profile_image)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID,
		nullable(u.Username),
		nullable(u.DisplayName),
		nullable(u.PasswordHash),
		nullable(strings.ToLower(u.Email)),
		u.Roles,
		nullable(u.OAuthProvider),
		nullable(u.ProfileImage),
	)
	return mapUnique(err)
}

// Update replaces the record with u's id. A unique-constraint hit on the
// handle or email maps to [authd.ErrDuplicateUsername], same as Create.
func (p *Postgres) Update(ctx context.Context, u *authd.User) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users
		 SET username = $2, display_name = $3, password_hash = $4, email = $5, roles = $6, oauth_provider = $7, profile_image = $8
		 WHERE id = $1`,
		u.ID,
		nullable(u.Username),
		nullable(u.DisplayName),
		nullable(u.PasswordHash),
		nullable(strings.ToLower(u.Email)),
		u.Roles,
		nullable(u.OAuthProvider),
		nullable(u.ProfileImage),
	)
	if err != nil {
		return mapUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return authd.ErrUserNotFound
	}
	return nil
}

// mapUnique translates a Postgres unique-constraint violation into the
// store-level duplicate sentinel; everything else passes through.
func mapUnique(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return authd.ErrDuplicateUsername
	}
	return err
}

func scanUser(row pgx.Row) (*authd.User, error) {
	var (
		u            authd.User
		username     *string
		displayName  *string
		passwordHash *string
		email        *string
		provider     *string
		profileImage *string
	)

	err := row.Scan(&u.ID, &username, &displayName, &passwordHash, &email, &u.Roles, &provider, &profileImage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	u.Username = deref(username)
	u.DisplayName = deref(displayName)
	u.PasswordHash = deref(passwordHash)
	u.Email = deref(email)
	u.OAuthProvider = deref(provider)
	u.ProfileImage = deref(profileImage)
	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
