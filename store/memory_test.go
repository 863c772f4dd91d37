package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authd "github.com/blogforge/authd"
)

func TestMemoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u := &authd.User{
		ID:       "id-1",
		Username: "alice",
		Email:    "Alice@Example.com",
		Roles:    []string{"ROLE_USER"},
	}
	require.NoError(t, m.Create(ctx, u))

	got, err := m.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)

	// Email lookups are case-insensitive.
	got, err = m.GetByEmail(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)
}

func TestMemoryMissingIsNilNil(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	got, err := m.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryDuplicateCreate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := &authd.User{ID: "id-1", Username: "alice", Email: "alice@example.com", Roles: []string{"ROLE_USER"}}
	require.NoError(t, m.Create(ctx, first))

	err := m.Create(ctx, &authd.User{ID: "id-2", Username: "alice"})
	assert.ErrorIs(t, err, authd.ErrDuplicateUsername)

	err = m.Create(ctx, &authd.User{ID: "id-3", Username: "bob", Email: "alice@example.com"})
	assert.ErrorIs(t, err, authd.ErrDuplicateUsername)

	// The original record survives unchanged.
	got, err := m.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)
}

func TestMemoryUpdateReindexes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, &authd.User{
		ID: "id-1", Username: "old name", Email: "user@example.com", Roles: []string{"ROLE_USER"},
	}))

	require.NoError(t, m.Update(ctx, &authd.User{
		ID: "id-1", Username: "new name", Email: "user@example.com", Roles: []string{"ROLE_USER"},
	}))

	got, err := m.GetByUsername(ctx, "old name")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.GetByUsername(ctx, "new name")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)
}

func TestMemoryUpdateUnknownID(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), &authd.User{ID: "ghost"})
	assert.ErrorIs(t, err, authd.ErrUserNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, &authd.User{
		ID: "id-1", Username: "alice", Roles: []string{"ROLE_USER"},
	}))

	got, err := m.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	got.Roles[0] = "ROLE_ADMIN"
	got.Username = "mallory"

	again, err := m.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, []string{"ROLE_USER"}, again.Roles)
}
