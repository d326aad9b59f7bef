// Package access decides whether the authenticated principal may act on a
// resource owned by a given identity. Administrators bypass ownership.
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/finances-api/finances/internal/apperr"
)

// Role is one of the two roles the service models.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"

	rolePrefix = "ROLE_"
)

// ErrUnknownRole is returned by ParseRole for names outside the role set.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole converts a stored or claimed role name into a Role. Matching is
// case-insensitive and ignores a leading "ROLE_".
func ParseRole(name string) (Role, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, rolePrefix)
	switch Role(n) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
}

// ParseRoles converts every name, keeping order and dropping duplicates.
func ParseRoles(names []string) ([]Role, error) {
	out := make([]Role, 0, len(names))
	seen := make(map[Role]struct{}, len(names))
	for _, name := range names {
		r, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

// RoleNames renders roles back to their stored names.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// Principal is the identity a request acts as. The zero value is anonymous.
type Principal struct {
	UserID string
	Email  string
	Roles  []Role
}

// Anonymous is the principal of an unauthenticated request.
var Anonymous = Principal{}

// IsAnonymous reports whether no identity is attached.
func (p Principal) IsAnonymous() bool {
	return p.UserID == ""
}

// HasRole reports whether p holds r. Anonymous principals hold nothing.
func (p Principal) HasRole(r Role) bool {
	if p.IsAnonymous() {
		return false
	}
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether p holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// WhoAmI returns the user id, or false for the anonymous principal.
func (p Principal) WhoAmI() (string, bool) {
	if p.IsAnonymous() {
		return "", false
	}
	return p.UserID, true
}

// Allowed reports whether p may act on resources owned by ownerID.
func Allowed(p Principal, ownerID string) bool {
	if p.IsAnonymous() {
		return false
	}
	return p.IsAdmin() || (ownerID != "" && p.UserID == ownerID)
}

// Authorize returns apperr.ErrForbidden when p may not act on ownerID's data.
func Authorize(p Principal, ownerID string) error {
	if !Allowed(p, ownerID) {
		return apperr.Forbidden()
	}
	return nil
}

// NotFoundOr applies the existence-hiding policy to a lookup miss: admins get
// notFound as is, every other caller gets a forbidden error so that missing
// and foreign resources look the same.
func NotFoundOr(p Principal, notFound error) error {
	if p.IsAdmin() {
		return notFound
	}
	return apperr.Forbidden()
}
