package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photo-exchange-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (uuid, push_token, last_login_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		user.UUID, user.PushToken, user.LastLoginAt, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, uuid, push_token, last_login_at, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.UUID, &user.PushToken, &user.LastLoginAt, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByUUID retrieves a user by the client-supplied device identifier
func (r *UserRepository) GetByUUID(ctx context.Context, uuid string) (*models.User, error) {
	query := `
		SELECT id, uuid, push_token, last_login_at, created_at
		FROM users
		WHERE uuid = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, uuid).Scan(
		&user.ID, &user.UUID, &user.PushToken, &user.LastLoginAt, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by uuid: %w", err)
	}
	return &user, nil
}

// TouchLogin updates the last login time for a user
func (r *UserRepository) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`
	if _, err := r.db.Exec(ctx, query, at, userID); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	if _, err := r.db.Exec(ctx, query, pushToken, userID); err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}
