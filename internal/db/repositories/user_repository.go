package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/evcharge/station-registry/internal/auth"
	"github.com/evcharge/station-registry/internal/db/models"
)

// pq error code for unique_violation
const uniqueViolation = "23505"

// UserRepository is the credential store. Passwords are hashed inside the write
// path, immediately before persistence, and the hash column is only selected by
// the lookups that authenticate.
type UserRepository struct {
	db         *sql.DB
	bcryptCost int
}

// NewUserRepository creates a UserRepository hashing with the given bcrypt cost.
func NewUserRepository(db *sql.DB, bcryptCost int) *UserRepository {
	return &UserRepository{db: db, bcryptCost: bcryptCost}
}

// normalizeIdentifier lower-cases and trims a username or email for storage and lookup.
func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Create persists a new user. Username and email are normalized before insert;
// the plaintext password is hashed here and never stored. A unique-index
// violation is mapped to a ConflictError naming the collided field — the
// database index, not this method, is the authority on uniqueness, so two
// concurrent registrations for the same identifier cannot both succeed.
func (r *UserRepository) Create(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password, r.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     normalizeIdentifier(username),
		Email:        normalizeIdentifier(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return nil, &ConflictError{Field: conflictField(pqErr.Constraint)}
		}
		return nil, err
	}

	return user, nil
}

// conflictField maps a unique-index name to the user-facing field label.
func conflictField(constraint string) string {
	if strings.Contains(constraint, "username") {
		return "Username"
	}
	return "Email"
}

// FindByLogin looks up a user by normalized username or email for
// authentication. The returned record carries the password hash; callers must
// not serialize it outward.
func (r *UserRepository) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE lower(username) = $1 OR lower(email) = $1
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, normalizeIdentifier(identifier)).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetByID retrieves a user by id without the password hash. This is the lookup
// used by the route guard when resolving a token subject.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// FindByEmail retrieves a user by normalized email, without the password hash.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findByUniqueColumn(ctx, "lower(email)", normalizeIdentifier(email))
}

// FindByUsername retrieves a user by normalized username, without the password hash.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findByUniqueColumn(ctx, "lower(username)", normalizeIdentifier(username))
}

func (r *UserRepository) findByUniqueColumn(ctx context.Context, column, value string) (*models.User, error) {
	query := `
		SELECT id, username, email, created_at, updated_at
		FROM users
		WHERE ` + column + ` = $1
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdatePassword recomputes and stores the hash for a new password. This is the
// only write path that touches password_hash; unrelated updates never rehash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, r.bcryptCost)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, hash, time.Now())
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a user. Tokens referencing the deleted id fail verification
// from that point on because the guard re-resolves the subject per request.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
