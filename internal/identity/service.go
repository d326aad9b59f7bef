package identity

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/apperr"
	"github.com/finances-api/finances/internal/clock"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a
// wrong password alike.
var ErrInvalidCredentials = &apperr.Error{Kind: apperr.ErrUnauthenticated, Message: "Invalid email or password"}

// Service manages the user lifecycle.
type Service struct {
	repo   Repository
	clock  clock.Clock
	logger *slog.Logger
}

// NewService creates a new identity service.
func NewService(repo Repository, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clk, logger: logger}
}

// Register creates a USER with a bcrypt-hashed password. Registration is public.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	return s.create(ctx, in, []access.Role{access.RoleUser})
}

func (s *Service) create(ctx context.Context, in RegisterInput, roles []access.Role) (User, error) {
	name := strings.TrimSpace(in.Name)
	email := emailKey(in.Email)
	if name == "" {
		return User{}, apperr.Validation("Name is mandatory")
	}
	if email == "" {
		return User{}, apperr.Validation("Email is mandatory")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, apperr.Validation("Email %q is not valid", in.Email)
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, apperr.Validation("Password is mandatory")
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "roles", access.RoleNames(roles))
	return user, nil
}

// Authenticate verifies an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, ok, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ResolvePrincipal maps a token subject to the principal of the user it
// names, with the roles currently stored for that user. It runs without an
// access check since the token pipeline has no principal yet.
func (s *Service) ResolvePrincipal(ctx context.Context, subject string) (access.Principal, bool, error) {
	user, ok, err := s.repo.FindByEmail(ctx, subject)
	if err != nil || !ok {
		return access.Anonymous, false, err
	}
	return user.Principal(), true, nil
}

// Exists reports whether a user with id exists, without an access check.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.repo.FindByID(ctx, id)
	return ok, err
}

// FindByID returns the user when p is that user or an admin.
func (s *Service) FindByID(ctx context.Context, p access.Principal, id string) (User, error) {
	if err := access.Authorize(p, id); err != nil {
		return User{}, err
	}
	user, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, apperr.NotFound("No user with id %s", id)
	}
	return user, nil
}

// FindByEmail returns the user when p is that user or an admin.
func (s *Service) FindByEmail(ctx context.Context, p access.Principal, email string) (User, error) {
	if !p.IsAdmin() && (p.IsAnonymous() || !strings.EqualFold(p.Email, strings.TrimSpace(email))) {
		return User{}, apperr.Forbidden()
	}
	user, ok, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, apperr.NotFound("No user with email %s", email)
	}
	return user, nil
}

// Update changes the name and password of a user. Only the user or an
// admin may do so.
func (s *Service) Update(ctx context.Context, p access.Principal, id string, in UpdateInput) (User, error) {
	user, err := s.FindByID(ctx, p, id)
	if err != nil {
		return User{}, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	s.logger.Info("user updated", "user_id", user.ID, "actor_id", p.UserID)
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator, or grants ADMIN to an
// existing user with that email. It is idempotent.
func (s *Service) EnsureAdmin(ctx context.Context, in RegisterInput) (User, error) {
	user, ok, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return s.create(ctx, in, []access.Role{access.RoleUser, access.RoleAdmin})
	}
	if user.Principal().IsAdmin() {
		return user, nil
	}
	user.Roles = append(user.Roles, access.RoleAdmin)
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	s.logger.Info("admin role granted", "user_id", user.ID)
	return user, nil
}
