package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/dailytribune/tribune/authentication"
	"github.com/dailytribune/tribune/db/sqlstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlstore.NewUserRepository(newTestDB(t), sqlstore.DriverSQLite)

	user := &authentication.User{
		ID:           uuid.NewString(),
		Username:     "reporter",
		PasswordHash: "hash",
		Role:         authentication.RoleReader,
		RegisteredAt: time.Now().UTC(),
	}

	err := repo.Insert(ctx, user)
	require.NoError(t, err)

	err = repo.Insert(ctx, &authentication.User{
		ID:           uuid.NewString(),
		Username:     "reporter",
		PasswordHash: "hash",
		Role:         authentication.RoleReader,
		RegisteredAt: time.Now().UTC(),
	})

	var existsErr authentication.UserAlreadyExistsError
	require.ErrorAs(t, err, &existsErr)

	got, err := repo.FindByUsername(ctx, "reporter")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, authentication.RoleReader, got.Role)

	err = repo.UpdateRole(ctx, user.ID, authentication.RoleEditor)
	require.NoError(t, err)

	got, err = repo.Find(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, authentication.RoleEditor, got.Role)

	var notFoundErr authentication.UserNotFoundError

	_, err = repo.Find(ctx, "missing")
	require.ErrorAs(t, err, &notFoundErr)

	err = repo.UpdateRole(ctx, "missing", authentication.RoleAdmin)
	require.ErrorAs(t, err, &notFoundErr)

	_, err = repo.FindByUsername(ctx, "nobody")

	var byUsernameErr authentication.UserByUsernameNotFoundError
	require.ErrorAs(t, err, &byUsernameErr)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := sqlstore.NewUserRepository(db, sqlstore.DriverSQLite)
	repo := sqlstore.NewSessionRepository(db, sqlstore.DriverSQLite)

	userID := uuid.NewString()

	err := users.Insert(ctx, &authentication.User{
		ID:           userID,
		Username:     "reader",
		PasswordHash: "hash",
		Role:         authentication.RoleReader,
		RegisteredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	session := &authentication.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	err = repo.Insert(ctx, session)
	require.NoError(t, err)

	got, err := repo.Find(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

	err = repo.Delete(ctx, session.ID)
	require.NoError(t, err)

	var notFoundErr authentication.SessionNotFoundError

	_, err = repo.Find(ctx, session.ID)
	require.ErrorAs(t, err, &notFoundErr)

	err = repo.Delete(ctx, session.ID)
	require.ErrorAs(t, err, &notFoundErr)
}
