package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/apperr"
)

var (
	// ErrEmailTaken is returned when registering an email already in use.
	ErrEmailTaken = &apperr.Error{Kind: apperr.ErrConflict, Message: "Email already registered"}

	// ErrUserNotFound is returned when updating a user that does not exist.
	ErrUserNotFound = &apperr.Error{Kind: apperr.ErrNotFound, Message: "user not found"}
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, bool, error)
	FindByEmail(ctx context.Context, email string) (User, bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user User) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, password_hash, roles, created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return apperr.Validation("invalid user id %q", user.ID)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, name, email, password_hash, roles, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, userID, user.Name, emailKey(user.Email), user.PasswordHash, access.RoleNames(user.Roles), user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return apperr.Persistence(err)
	}
	return nil
}

// FindByID fetches a user by id. Malformed ids are a miss.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, bool, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, false, nil
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, bool, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, emailKey(email))
}

// ExistsByEmail reports whether the email is registered.
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, emailKey(email)).Scan(&exists); err != nil {
		return false, apperr.Persistence(err)
	}
	return exists, nil
}

// Update stores the mutable fields of a user: name, password hash and roles.
func (r *PostgresRepository) Update(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return ErrUserNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET name = $1, password_hash = $2, roles = $3 WHERE id = $4`,
		user.Name, user.PasswordHash, access.RoleNames(user.Roles), userID)
	if err != nil {
		return apperr.Persistence(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (User, bool, error) {
	row := r.db.QueryRow(ctx, query, arg)
	var (
		id        uuid.UUID
		roles     []string
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Name, &user.Email, &user.PasswordHash, &roles, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, apperr.Persistence(err)
	}
	parsed, err := access.ParseRoles(roles)
	if err != nil {
		return User{}, false, apperr.Persistence(err)
	}
	user.ID = id.String()
	user.Roles = parsed
	user.CreatedAt = createdAt.UTC()
	return user, true, nil
}
