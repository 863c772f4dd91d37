// Package store provides user persistence backends for the authd service:
// an in-memory store for tests and local development, and a Postgres store
// for production. Both satisfy [authd.UserStore].
package store

import (
	"context"
	"strings"
	"sync"

	authd "github.com/blogforge/authd"
)

// Memory is a map-backed [authd.UserStore]. Safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]*authd.User
	byUsername map[string]string
	byEmail    map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:       map[string]*authd.User{},
		byUsername: map[string]string{},
		byEmail:    map[string]string{},
	}
}

// GetByUsername returns the user with the given handle, or (nil, nil).
func (m *Memory) GetByUsername(_ context.Context, username string) (*authd.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return nil, nil
	}
	return cloneUser(m.byID[id]), nil
}

// GetByEmail returns the user with the given email, or (nil, nil).
func (m *Memory) GetByEmail(_ context.Context, email string) (*authd.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return cloneUser(m.byID[id]), nil
}

// Create inserts u. A taken handle or email fails with
// [authd.ErrDuplicateUsername] without mutating existing records.
func (m *Memory) Create(_ context.Context, u *authd.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.Username != "" {
		if _, taken := m.byUsername[u.Username]; taken {
			return authd.ErrDuplicateUsername
		}
	}
	if u.Email != "" {
		if _, taken := m.byEmail[strings.ToLower(u.Email)]; taken {
			return authd.ErrDuplicateUsername
		}
	}

	stored := cloneUser(u)
	m.byID[stored.ID] = stored
	if stored.Username != "" {
		m.byUsername[stored.Username] = stored.ID
	}
	if stored.Email != "" {
		m.byEmail[strings.ToLower(stored.Email)] = stored.ID
	}

	return nil
}

// Update replaces the record with u's id, reindexing handle and email.
// Updating an unknown id fails with [authd.ErrUserNotFound].
func (m *Memory) Update(_ context.Context, u *authd.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.byID[u.ID]
	if !ok {
		return authd.ErrUserNotFound
	}

	if prev.Username != "" {
		delete(m.byUsername, prev.Username)
	}
	if prev.Email != "" {
		delete(m.byEmail, strings.ToLower(prev.Email))
	}

	stored := cloneUser(u)
	m.byID[stored.ID] = stored
	if stored.Username != "" {
		m.byUsername[stored.Username] = stored.ID
	}
	if stored.Email != "" {
		m.byEmail[strings.ToLower(stored.Email)] = stored.ID
	}

	return nil
}

func cloneUser(u *authd.User) *authd.User {
	if u == nil {
		return nil
	}
	out := *u
	out.Roles = append([]string(nil), u.Roles...)
	return &out
}
