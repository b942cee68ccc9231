package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusmetrics/clo-api/internal/models"
)

// UserRepository handles persistence of application users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, full_name, role, institution_short_name, password_hash, reset_token, is_active, last_login, created_at, updated_at`

// FindByEmail returns the user, or nil when none exists.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Upsert inserts or updates a user keyed by email. Credentials are never
// written by imports: a newly provisioned account gets a locked placeholder
// hash no password can match, and updates leave password_hash and
// reset_token untouched.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.UpdatedAt = upsertTimestamp(user)
	if user.PasswordHash == "" {
		hash, err := lockedPasswordHash()
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		user.PasswordHash = hash
	}
	const query = `INSERT INTO users (id, email, full_name, role, institution_short_name, password_hash, reset_token, is_active, created_at, updated_at)
        VALUES (:id, :email, :full_name, :role, :institution_short_name, :password_hash, '', :is_active, NOW(), :updated_at)
        ON CONFLICT (email) DO UPDATE SET
            full_name = EXCLUDED.full_name,
            role = EXCLUDED.role,
            institution_short_name = EXCLUDED.institution_short_name,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// lockedPasswordHash hashes a random secret so the account cannot be logged
// into until a password reset.
func lockedPasswordHash() (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ListByInstitution returns the institution's users ordered by email.
func (r *UserRepository) ListByInstitution(ctx context.Context, institution string) ([]models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE institution_short_name = $1 ORDER BY email`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, institution); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
