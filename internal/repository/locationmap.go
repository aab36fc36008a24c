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

// LocationMapRepository tracks the asynchronous rendering of static map
// tiles for located photos.
type LocationMapRepository struct {
	db *pgxpool.Pool
}

// NewLocationMapRepository creates a new location map repository
func NewLocationMapRepository(db *pgxpool.Pool) *LocationMapRepository {
	return &LocationMapRepository{db: db}
}

// Create inserts the tracking row for a photo. Anonymous photos are created
// terminal so the fetcher never considers them.
func (r *LocationMapRepository) Create(ctx context.Context, m *models.LocationMap) error {
	query := `
		INSERT INTO location_maps (photo_id, attempts, status, next_attempt_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		m.PhotoID, m.Attempts, string(m.Status), m.NextAttemptAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create location map: %w", err)
	}
	return nil
}

// GetByPhotoID retrieves the map row for a photo
func (r *LocationMapRepository) GetByPhotoID(ctx context.Context, photoID int64) (*models.LocationMap, error) {
	query := `
		SELECT id, photo_id, attempts, status, next_attempt_at, tile_key
		FROM location_maps
		WHERE photo_id = $1
	`
	var (
		m      models.LocationMap
		status string
	)
	err := r.db.QueryRow(ctx, query, photoID).Scan(
		&m.ID, &m.PhotoID, &m.Attempts, &status, &m.NextAttemptAt, &m.TileKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get location map: %w", err)
	}
	m.Status = models.MapStatus(status)
	return &m, nil
}

// ListDue returns unrendered maps whose retry time has come.
func (r *LocationMapRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.LocationMap, error) {
	query := `
		SELECT id, photo_id, attempts, status, next_attempt_at, tile_key
		FROM location_maps
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY next_attempt_at
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, string(models.MapStatusEmpty), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due maps: %w", err)
	}
	defer rows.Close()

	var maps []*models.LocationMap
	for rows.Next() {
		var (
			m      models.LocationMap
			status string
		)
		err := rows.Scan(&m.ID, &m.PhotoID, &m.Attempts, &status, &m.NextAttemptAt, &m.TileKey)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location map: %w", err)
		}
		m.Status = models.MapStatus(status)
		maps = append(maps, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating location maps: %w", err)
	}
	return maps, nil
}

// MarkReady records a successfully rendered tile
func (r *LocationMapRepository) MarkReady(ctx context.Context, id int64, tileKey string) error {
	query := `UPDATE location_maps SET status = $1, tile_key = $2 WHERE id = $3`
	if _, err := r.db.Exec(ctx, query, string(models.MapStatusReady), tileKey, id); err != nil {
		return fmt.Errorf("failed to mark map ready: %w", err)
	}
	return nil
}

// MarkFailed retires a map after its attempt budget is spent
func (r *LocationMapRepository) MarkFailed(ctx context.Context, id int64) error {
	query := `UPDATE location_maps SET status = $1 WHERE id = $2`
	if _, err := r.db.Exec(ctx, query, string(models.MapStatusFailed), id); err != nil {
		return fmt.Errorf("failed to mark map failed: %w", err)
	}
	return nil
}

// Reschedule bumps the attempt counter and pushes the next try into the
// future.
func (r *LocationMapRepository) Reschedule(ctx context.Context, id int64, attempts int, nextAt time.Time) error {
	query := `UPDATE location_maps SET attempts = $1, next_attempt_at = $2 WHERE id = $3`
	if _, err := r.db.Exec(ctx, query, attempts, nextAt, id); err != nil {
		return fmt.Errorf("failed to reschedule map: %w", err)
	}
	return nil
}
