package access

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finances-api/finances/internal/apperr"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"ADMIN":      RoleAdmin,
		"admin":      RoleAdmin,
		"ROLE_ADMIN": RoleAdmin,
		"role_admin": RoleAdmin,
		" USER ":     RoleUser,
		"ROLE_USER":  RoleUser,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseRole("ROLE_MANAGER")
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseRolesKeepsOrderAndDropsDuplicates(t *testing.T) {
	roles, err := ParseRoles([]string{"ROLE_USER", "ADMIN", "user"})
	require.NoError(t, err)
	require.Equal(t, []Role{RoleUser, RoleAdmin}, roles)
	require.Equal(t, []string{"USER", "ADMIN"}, RoleNames(roles))
}

func TestAuthorizeSymmetry(t *testing.T) {
	owner := Principal{UserID: "u1", Roles: []Role{RoleUser}}
	ownerNoRoles := Principal{UserID: "u1"}
	stranger := Principal{UserID: "u2", Roles: []Role{RoleUser}}
	admin := Principal{UserID: "u3", Roles: []Role{RoleAdmin}}

	require.NoError(t, Authorize(owner, "u1"))
	require.NoError(t, Authorize(ownerNoRoles, "u1"), "ownership alone is enough")
	require.NoError(t, Authorize(admin, "u1"))
	require.NoError(t, Authorize(admin, "anyone"))
	require.ErrorIs(t, Authorize(stranger, "u1"), apperr.ErrForbidden)
	require.ErrorIs(t, Authorize(owner, ""), apperr.ErrForbidden)
}

func TestAnonymousIsAlwaysDenied(t *testing.T) {
	require.ErrorIs(t, Authorize(Anonymous, ""), apperr.ErrForbidden)
	require.ErrorIs(t, Authorize(Anonymous, "u1"), apperr.ErrForbidden)

	roleOnly := Principal{Roles: []Role{RoleAdmin}}
	require.False(t, roleOnly.IsAdmin(), "roles without an identity do not count")

	id, ok := Anonymous.WhoAmI()
	require.False(t, ok)
	require.Empty(t, id)
}

func TestNotFoundOr(t *testing.T) {
	notFound := apperr.NotFound("No bank account with id %s", "x")
	admin := Principal{UserID: "a", Roles: []Role{RoleAdmin}}
	user := Principal{UserID: "u", Roles: []Role{RoleUser}}

	require.ErrorIs(t, NotFoundOr(admin, notFound), apperr.ErrNotFound)
	require.ErrorIs(t, NotFoundOr(user, notFound), apperr.ErrForbidden)
	require.ErrorIs(t, NotFoundOr(Anonymous, notFound), apperr.ErrForbidden)
}
