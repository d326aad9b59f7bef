package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/clock"
	"github.com/finances-api/finances/internal/identity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var issuedAt = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func testUser(roles ...access.Role) identity.User {
	return identity.User{ID: "u-1", Email: "ana@example.com", Roles: roles}
}

func TestTokenExpiresAfterTTL(t *testing.T) {
	clk := clock.NewFake(issuedAt)
	svc := NewTokenService(testSecret, time.Second, clk)

	token, exp, err := svc.Issue(testUser(access.RoleUser))
	require.NoError(t, err)
	require.Equal(t, issuedAt.Add(time.Second).UnixMilli(), exp)

	require.True(t, svc.Validate(token))
	require.True(t, svc.Validate(token), "validation has no side effects")
	require.Equal(t, "ana@example.com", svc.Subject(token))
	require.Equal(t, exp, svc.ExpiresAt(token))

	clk.Advance(999 * time.Millisecond)
	require.True(t, svc.Validate(token))

	clk.Advance(time.Millisecond)
	require.False(t, svc.Validate(token), "a token is invalid at its expiry instant")
	require.Empty(t, svc.Subject(token))
	require.Zero(t, svc.ExpiresAt(token))

	clk.Advance(time.Hour)
	require.False(t, svc.Validate(token))
}

func TestTokenCarriesRolesAndIdentity(t *testing.T) {
	clk := clock.NewFake(issuedAt)
	svc := NewTokenService(testSecret, time.Minute, clk)

	token, _, err := svc.Issue(testUser(access.RoleUser, access.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, []access.Role{access.RoleUser, access.RoleAdmin}, svc.Roles(token))

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	mc := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "HS512", parsed.Method.Alg())
	require.Equal(t, Issuer, mc["iss"])
	require.Equal(t, "ana@example.com", mc["sub"])
	require.Equal(t, "ana@example.com", mc["id"])
	require.Equal(t, "[USER,ADMIN]", mc["roles"])
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	clk := clock.NewFake(issuedAt)
	svc := NewTokenService(testSecret, time.Minute, clk)
	token, _, err := svc.Issue(testUser(access.RoleUser))
	require.NoError(t, err)

	other := NewTokenService("another-secret-another-secret-xx", time.Minute, clk)
	require.False(t, other.Validate(token), "wrong secret")

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	require.False(t, svc.Validate(tampered))

	sign := func(method jwt.SigningMethod, c jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, c).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{"sub": "ana@example.com", "iss": Issuer, "exp": issuedAt.Add(time.Minute).Unix()}
	}

	require.True(t, svc.Validate(sign(jwt.SigningMethodHS512, base())))

	require.False(t, svc.Validate(sign(jwt.SigningMethodHS256, base())), "wrong algorithm")

	wrongIssuer := base()
	wrongIssuer["iss"] = "someone-else"
	require.False(t, svc.Validate(sign(jwt.SigningMethodHS512, wrongIssuer)))

	noSubject := base()
	delete(noSubject, "sub")
	require.False(t, svc.Validate(sign(jwt.SigningMethodHS512, noSubject)))

	noExpiry := base()
	delete(noExpiry, "exp")
	require.False(t, svc.Validate(sign(jwt.SigningMethodHS512, noExpiry)))
}

func TestValidateNeverPanics(t *testing.T) {
	svc := NewTokenService(testSecret, time.Minute, clock.NewFake(issuedAt))
	for _, token := range []string{"", ".", "..", "a.b.c", "not a token", strings.Repeat("x", 4096)} {
		require.NotPanics(t, func() {
			require.False(t, svc.Validate(token))
			require.Empty(t, svc.Subject(token))
			require.Zero(t, svc.ExpiresAt(token))
			require.Nil(t, svc.Roles(token))
		})
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	svc := NewTokenService("", time.Minute, nil)
	_, _, err := svc.Issue(testUser(access.RoleUser))
	require.Error(t, err)
}
