package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photo-exchange-backend/internal/models"
	"photo-exchange-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtExpDays = 365

// UserService handles device registration and token validation. Users are
// anonymous: a client presents a stable device UUID and gets a long-lived
// bearer token back.
type UserService struct {
	users     UserStore
	jwtSecret string
}

// NewUserService creates a new user service
func NewUserService(users UserStore, jwtSecret string) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// RegisterOrLogin returns the user for a device UUID, creating it on first
// contact, and a fresh JWT.
func (s *UserService) RegisterOrLogin(ctx context.Context, deviceUUID string) (*models.User, string, error) {
	if _, err := uuid.Parse(deviceUUID); err != nil {
		return nil, "", fmt.Errorf("%w: malformed device uuid", ErrInvalidInput)
	}

	now := time.Now().UTC()

	user, err := s.users.GetByUUID(ctx, deviceUUID)
	switch {
	case err == nil:
		if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
			return nil, "", fmt.Errorf("failed to update last login: %w", err)
		}
		user.LastLoginAt = now
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{
			UUID:        deviceUUID,
			LastLoginAt: now,
			CreatedAt:   now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, "", fmt.Errorf("failed to create user: %w", err)
		}
	default:
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}
	raw, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("user_id not found in token")
	}
	return int64(raw), nil
}

// GetByID returns a user by id.
func (s *UserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdatePushToken stores (or clears) a user's push notification token.
func (s *UserService) UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error {
	return s.users.UpdatePushToken(ctx, userID, pushToken)
}
