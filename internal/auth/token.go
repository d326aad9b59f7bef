package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/clock"
	"github.com/finances-api/finances/internal/identity"
)

// Issuer is stamped on every token and required on validation.
const Issuer = "com.uneeddevs"

var errEmptySecret = errors.New("token secret is required")

type claims struct {
	UserID string `json:"id"`
	Roles  string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS512 bearer tokens. Tokens are
// self-contained: nothing is stored server side.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewTokenService creates a token service. A nil clock uses the system clock.
func NewTokenService(secret string, ttl time.Duration, clk clock.Clock) *TokenService {
	if clk == nil {
		clk = clock.System{}
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, clock: clk}
}

// Issue signs a token for user and returns it with its expiry in epoch
// milliseconds.
func (s *TokenService) Issue(user identity.User) (string, int64, error) {
	if len(s.secret) == 0 {
		return "", 0, errEmptySecret
	}
	now := s.clock.Now()
	exp := jwt.NewNumericDate(now.Add(s.ttl))
	c := claims{
		UserID: user.Email,
		Roles:  formatRoles(user.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, exp.UnixMilli(), nil
}

// Validate reports whether token is well formed, signed with the service
// secret, issued by Issuer, carries a subject and has not expired.
func (s *TokenService) Validate(token string) bool {
	_, ok := s.parse(token)
	return ok
}

// Subject returns the email carried by a valid token, or "".
func (s *TokenService) Subject(token string) string {
	c, ok := s.parse(token)
	if !ok {
		return ""
	}
	return c.Subject
}

// ExpiresAt returns the expiry of a valid token in epoch milliseconds, or 0.
func (s *TokenService) ExpiresAt(token string) int64 {
	c, ok := s.parse(token)
	if !ok {
		return 0
	}
	return c.ExpiresAt.UnixMilli()
}

// Roles returns the roles claimed by a valid token. Unknown names are dropped.
func (s *TokenService) Roles(token string) []access.Role {
	c, ok := s.parse(token)
	if !ok {
		return nil
	}
	return parseRoles(c.Roles)
}

func (s *TokenService) parse(token string) (c *claims, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c, ok = nil, false
		}
	}()
	if token == "" || len(s.secret) == 0 {
		return nil, false
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	c, isClaims := parsed.Claims.(*claims)
	if !isClaims || c.Subject == "" || c.ExpiresAt == nil {
		return nil, false
	}
	if !c.ExpiresAt.Time.After(s.clock.Now()) {
		return nil, false
	}
	return c, true
}

func formatRoles(roles []access.Role) string {
	return "[" + strings.Join(access.RoleNames(roles), ",") + "]"
}

func parseRoles(claim string) []access.Role {
	claim = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(claim), "["), "]")
	var out []access.Role
	for _, name := range strings.Split(claim, ",") {
		r, err := access.ParseRole(name)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}
