package repository

import (
	"context"
	"fmt"
	"time"

	"photo-exchange-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GalleryRepository maintains the denormalized gallery, favourite and report
// projections.
type GalleryRepository struct {
	db *pgxpool.Pool
}

// NewGalleryRepository creates a new gallery repository
func NewGalleryRepository(db *pgxpool.Pool) *GalleryRepository {
	return &GalleryRepository{db: db}
}

// Insert adds a gallery row for a public photo. Inserting twice for the same
// photo is a no-op.
func (r *GalleryRepository) Insert(ctx context.Context, photoID int64, uploadedOn time.Time) error {
	query := `
		INSERT INTO gallery_photos (photo_id, uploaded_on)
		VALUES ($1, $2)
		ON CONFLICT (photo_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, photoID, uploadedOn); err != nil {
		return fmt.Errorf("failed to insert gallery photo: %w", err)
	}
	return nil
}

// Page returns gallery entries strictly older than the cursor, newest first.
// Keyset pagination keeps pages stable while new photos keep arriving.
func (r *GalleryRepository) Page(ctx context.Context, before time.Time, limit int) ([]models.GalleryEntry, error) {
	query := `
		SELECT g.id, g.photo_id, g.uploaded_on, p.name
		FROM gallery_photos g
		JOIN photos p ON p.id = g.photo_id
		WHERE g.uploaded_on < $1 AND p.deleted_on IS NULL
		ORDER BY g.uploaded_on DESC, g.id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get gallery page: %w", err)
	}
	defer rows.Close()

	var entries []models.GalleryEntry
	for rows.Next() {
		var e models.GalleryEntry
		if err := rows.Scan(&e.ID, &e.PhotoID, &e.UploadedOn, &e.PhotoName); err != nil {
			return nil, fmt.Errorf("failed to scan gallery entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gallery entries: %w", err)
	}
	return entries, nil
}

// CountSince counts live gallery photos newer than the timestamp.
func (r *GalleryRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM gallery_photos g
		JOIN photos p ON p.id = g.photo_id
		WHERE g.uploaded_on > $1 AND p.deleted_on IS NULL
	`
	var count int
	if err := r.db.QueryRow(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count gallery photos: %w", err)
	}
	return count, nil
}

// DeleteForPhoto removes a photo's gallery row immediately, ahead of the
// cascade that fires when the photo row itself is purged.
func (r *GalleryRepository) DeleteForPhoto(ctx context.Context, photoID int64) error {
	query := `DELETE FROM gallery_photos WHERE photo_id = $1`
	if _, err := r.db.Exec(ctx, query, photoID); err != nil {
		return fmt.Errorf("failed to delete gallery photo: %w", err)
	}
	return nil
}

// DeleteForUser removes the gallery rows of every photo a user owns.
func (r *GalleryRepository) DeleteForUser(ctx context.Context, userID int64) error {
	query := `
		DELETE FROM gallery_photos
		WHERE photo_id IN (SELECT id FROM photos WHERE user_id = $1)
	`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user gallery photos: %w", err)
	}
	return nil
}

// SetFavourite toggles a user's favourite mark on a photo. Both directions
// are idempotent: the unique (photo_id, user_id) index absorbs repeats.
func (r *GalleryRepository) SetFavourite(ctx context.Context, photoID, userID int64, value bool) error {
	var query string
	if value {
		query = `
			INSERT INTO favourite_photos (photo_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (photo_id, user_id) DO NOTHING
		`
	} else {
		query = `DELETE FROM favourite_photos WHERE photo_id = $1 AND user_id = $2`
	}
	if _, err := r.db.Exec(ctx, query, photoID, userID); err != nil {
		return fmt.Errorf("failed to set favourite: %w", err)
	}
	return nil
}

// IsFavourited checks whether a user has favourited a photo
func (r *GalleryRepository) IsFavourited(ctx context.Context, photoID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM favourite_photos WHERE photo_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, photoID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check favourite: %w", err)
	}
	return exists, nil
}

// SetReport toggles a user's report of a photo with the same idempotency
// contract as SetFavourite.
func (r *GalleryRepository) SetReport(ctx context.Context, photoID, userID int64, value bool) error {
	var query string
	if value {
		query = `
			INSERT INTO reported_photos (photo_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (photo_id, user_id) DO NOTHING
		`
	} else {
		query = `DELETE FROM reported_photos WHERE photo_id = $1 AND user_id = $2`
	}
	if _, err := r.db.Exec(ctx, query, photoID, userID); err != nil {
		return fmt.Errorf("failed to set report: %w", err)
	}
	return nil
}

// IsReported checks whether a user has reported a photo
func (r *GalleryRepository) IsReported(ctx context.Context, photoID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reported_photos WHERE photo_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, photoID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check report: %w", err)
	}
	return exists, nil
}
