package identity

import (
	"time"

	"github.com/finances-api/finances/internal/access"
)

// User is a registered account holder.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Roles        []access.Role
	CreatedAt    time.Time
}

// Principal returns the access principal acting as u.
func (u User) Principal() access.Principal {
	roles := make([]access.Role, len(u.Roles))
	copy(roles, u.Roles)
	return access.Principal{UserID: u.ID, Email: u.Email, Roles: roles}
}

// RegisterInput carries the fields of a sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateInput carries the mutable fields of a user. Empty fields are left as is.
type UpdateInput struct {
	Name     string
	Password string
}
