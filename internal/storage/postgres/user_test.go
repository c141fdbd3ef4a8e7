package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
	"github.com/cory-johannsen/lorekeeper/internal/testutil"
)

const testBcryptCost = 4 // minimum cost keeps the suite fast

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func TestUserRepository_CreateAndAuthenticate(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewUserRepository(pool, testBcryptCost)
	ctx := context.Background()

	username := uniqueName("alice")
	u, err := repo.Create(ctx, username+"@example.com", username, "password123")
	require.NoError(t, err)
	assert.Greater(t, u.ID, int64(0))
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "password123", u.PasswordHash)

	got, err := repo.Authenticate(ctx, username, "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.Authenticate(ctx, username, "wrongpassword")
	assert.ErrorIs(t, err, postgres.ErrInvalidCredentials)

	_, err = repo.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, postgres.ErrInvalidCredentials)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewUserRepository(pool, testBcryptCost)
	ctx := context.Background()

	name := uniqueName("bob")
	_, err := repo.Create(ctx, name+"@example.com", name, "password123")
	require.NoError(t, err)

	_, err = repo.Create(ctx, name+"@example.com", uniqueName("other"), "password123")
	assert.ErrorIs(t, err, postgres.ErrUserExists)
}

func TestUserRepository_Update(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewUserRepository(pool, testBcryptCost)
	ctx := context.Background()

	name := uniqueName("carol")
	u, err := repo.Create(ctx, name+"@example.com", name, "password123")
	require.NoError(t, err)

	newEmail := name + "+new@example.com"
	newPassword := "betterpassword"
	updated, err := repo.Update(ctx, u.ID, postgres.UserUpdate{
		Email:    &newEmail,
		Password: &newPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, newEmail, updated.Email)
	assert.Equal(t, name, updated.Username)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = repo.Authenticate(ctx, name, newPassword)
	assert.NoError(t, err)

	_, err = repo.Update(ctx, 999999, postgres.UserUpdate{Email: &newEmail})
	assert.ErrorIs(t, err, postgres.ErrUserNotFound)
}

func TestUserRepository_Search(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewUserRepository(pool, testBcryptCost)
	ctx := context.Background()

	name := uniqueName("searchable")
	_, err := repo.Create(ctx, name+"@example.com", name, "password123")
	require.NoError(t, err)

	found, err := repo.Search(ctx, "SEARCHABLE", 10)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Contains(t, found[0].Username, "searchable")

	none, err := repo.Search(ctx, "definitely-not-there", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
