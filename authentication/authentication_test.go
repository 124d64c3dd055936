package authentication_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/dailytribune/tribune/authentication"
	authcontext "github.com/dailytribune/tribune/authentication/context"
	"github.com/dailytribune/tribune/authorization"
	"github.com/dailytribune/tribune/authorization/casbin"
	"github.com/dailytribune/tribune/db/sqlstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc         *authentication.Service
	sessionRepo *sqlstore.SessionRepository
	authzClient *authorization.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	db, err := sqlstore.NewDB(ctx, sqlstore.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	err = sqlstore.MigrateUp(ctx, db, sqlstore.DriverSQLite)
	require.NoError(t, err)

	policyFile := filepath.Join(t.TempDir(), "policy.csv")

	err = os.WriteFile(policyFile, []byte("p, role:editor, moderation, *, review\n"), 0o600)
	require.NoError(t, err)

	provider, err := casbin.NewAuthorizationProvider(fileadapter.NewAdapter(policyFile))
	require.NoError(t, err)

	authzSvc, err := authorization.NewService(provider)
	require.NoError(t, err)

	authzClient := authorization.NewClient(authzSvc)
	sessionRepo := sqlstore.NewSessionRepository(db, sqlstore.DriverSQLite)

	return &fixture{
		svc:         authentication.NewService(sqlstore.NewUserRepository(db, sqlstore.DriverSQLite), sessionRepo, authzClient),
		sessionRepo: sessionRepo,
		authzClient: authzClient,
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Register(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, authentication.RoleReader, user.Role)
	assert.Empty(t, user.PasswordHash)

	groups, err := f.authzClient.GroupsOf(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{authcontext.Authenticated, "role:reader"}, groups)

	_, err = f.svc.Register(ctx, "alice", "another-password")

	var existsErr authentication.UserAlreadyExistsError
	require.ErrorAs(t, err, &existsErr)

	t.Run("invalid input", func(t *testing.T) {
		var inputErr authentication.InvalidInputError

		_, err := f.svc.Register(ctx, "al", "correct-horse")
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "username", inputErr.Field)

		_, err = f.svc.Register(ctx, "bob", "short")
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "password", inputErr.Field)
	})
}

func TestService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Register(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, authentication.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody", "correct-horse")
	require.ErrorIs(t, err, authentication.ErrInvalidCredentials)

	session, err := f.svc.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	got, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	err = f.svc.Logout(ctx, session.ID)
	require.NoError(t, err)

	_, err = f.svc.GetSession(ctx, session.ID)

	var notFoundErr authentication.SessionNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestService_GetSessionExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Register(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	session := &authentication.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	err = f.sessionRepo.Insert(ctx, session)
	require.NoError(t, err)

	_, err = f.svc.GetSession(ctx, session.ID)

	var expiredErr authentication.SessionExpiredError
	require.ErrorAs(t, err, &expiredErr)

	_, err = f.sessionRepo.Find(ctx, session.ID)

	var notFoundErr authentication.SessionNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestService_GetCurrentUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.GetCurrentUser(ctx)
	require.ErrorIs(t, err, authentication.ErrCurrentUserNotFound)

	user, err := f.svc.Register(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	got, err := f.svc.GetCurrentUser(authcontext.WithSubject(ctx, user.ID))
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Empty(t, got.PasswordHash)
}

func TestService_SetRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.Register(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	assert.False(t, f.authzClient.Can(ctx, user.ID, "moderation", "", "review"))

	updated, err := f.svc.SetRole(ctx, user.ID, authentication.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, authentication.RoleEditor, updated.Role)

	assert.True(t, f.authzClient.Can(ctx, user.ID, "moderation", "", "review"))

	groups, err := f.authzClient.GroupsOf(ctx, user.ID)
	require.NoError(t, err)
	assert.NotContains(t, groups, "role:reader")
	assert.Contains(t, groups, "role:editor")

	_, err = f.svc.SetRole(ctx, user.ID, authentication.Role("owner"))

	var roleErr authentication.InvalidRoleError
	require.ErrorAs(t, err, &roleErr)

	_, err = f.svc.SetRole(ctx, "missing", authentication.RoleAdmin)

	var notFoundErr authentication.UserNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestService_EnsureUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	admin, err := f.svc.EnsureUser(ctx, "admin", "admin-password", authentication.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, authentication.RoleAdmin, admin.Role)

	again, err := f.svc.EnsureUser(ctx, "admin", "ignored-password", authentication.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = f.svc.Login(ctx, "admin", "admin-password")
	require.NoError(t, err)
}
