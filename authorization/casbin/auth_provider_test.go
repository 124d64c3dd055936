package casbin_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/dailytribune/tribune/authorization"
	"github.com/dailytribune/tribune/authorization/casbin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T) *casbin.AuthorizationProvider {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(tmpFile, nil, 0o600))

	provider, err := casbin.NewAuthorizationProvider(fileadapter.NewAdapter(tmpFile))
	require.NoError(t, err)

	return provider
}

func allowed(t *testing.T, provider *casbin.AuthorizationProvider, sub, dom, obj, act string) bool {
	t.Helper()

	res, err := provider.CheckAccess(context.Background(), authorization.CheckAccessRequest{
		Subject: sub,
		Domain:  dom,
		Object:  obj,
		Action:  act,
	})
	require.NoError(t, err)

	return res.Allowed
}

func TestAddPolicyFromCSV(t *testing.T) {
	ctx := context.Background()
	provider := newProvider(t)

	content := `# comments are skipped
g, system:anonymous, system:unauthenticated

p, system:unauthenticated, discuss, *, listComments
p, role:editor,            discuss, *, moderateComments
g, alice, role:editor
`

	err := provider.AddPolicyFromCSV(ctx, content)
	require.NoError(t, err)

	// seeding twice must not fail on existing rules
	err = provider.AddPolicyFromCSV(ctx, content)
	require.NoError(t, err)

	assert.True(t, allowed(t, provider, "system:anonymous", "discuss", "c1", "listComments"))
	assert.True(t, allowed(t, provider, "alice", "discuss", "", "moderateComments"))
	assert.False(t, allowed(t, provider, "bob", "discuss", "", "moderateComments"))
}

func TestAddPolicyFromCSV_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown type", func(t *testing.T) {
		err := newProvider(t).AddPolicyFromCSV(ctx, "x, a, b")

		var unknownErr casbin.UnknownPolicyTypeError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "x", unknownErr.PolicyType)
	})

	t.Run("short record", func(t *testing.T) {
		err := newProvider(t).AddPolicyFromCSV(ctx, "p, a, b")

		var malformedErr casbin.MalformedPolicyRecordError
		require.ErrorAs(t, err, &malformedErr)
		assert.Equal(t, 5, malformedErr.Want)
	})
}
