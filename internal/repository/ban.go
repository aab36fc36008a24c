package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BanRepository handles database operations for bans
type BanRepository struct {
	db *pgxpool.Pool
}

// NewBanRepository creates a new ban repository
func NewBanRepository(db *pgxpool.Pool) *BanRepository {
	return &BanRepository{db: db}
}

// IsBanned reports whether the user or the origin hash is banned. This is the
// fail-fast gate consulted before any disk or database work on an upload.
func (r *BanRepository) IsBanned(ctx context.Context, userID int64, ipHash string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bans
			WHERE user_id = $1 OR (ip_hash IS NOT NULL AND ip_hash = $2)
		)
	`
	var banned bool
	if err := r.db.QueryRow(ctx, query, userID, ipHash).Scan(&banned); err != nil {
		return false, fmt.Errorf("failed to check ban: %w", err)
	}
	return banned, nil
}

// BanUser records a user ban. Banning an already-banned user is a no-op,
// enforced by the unique index on user_id.
func (r *BanRepository) BanUser(ctx context.Context, userID int64, at time.Time) error {
	query := `
		INSERT INTO bans (user_id, banned_on)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, at); err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}
	return nil
}

// BanIPHash records an origin-hash ban with the same once-only contract.
func (r *BanRepository) BanIPHash(ctx context.Context, ipHash string, at time.Time) error {
	if ipHash == "" {
		return nil
	}
	query := `
		INSERT INTO bans (ip_hash, banned_on)
		VALUES ($1, $2)
		ON CONFLICT (ip_hash) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, ipHash, at); err != nil {
		return fmt.Errorf("failed to ban ip hash: %w", err)
	}
	return nil
}
