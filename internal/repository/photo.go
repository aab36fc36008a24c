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

const photoColumns = `id, user_id, name, exchange_state, exchanged_photo_id,
	is_public, lon, lat, ip_hash, uploaded_on, deleted_on`

// PhotoRepository handles database operations for photos, including the
// pairing transaction of the exchange state machine.
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var (
		p         models.Photo
		state     string
		partnerID *int64
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &state, &partnerID,
		&p.IsPublic, &p.Lon, &p.Lat, &p.IPHash, &p.UploadedOn, &p.DeletedOn,
	)
	if err != nil {
		return nil, err
	}
	p.State = models.ExchangeState(state)
	link, err := models.PartnerLinkFor(p.State, partnerID)
	if err != nil {
		return nil, fmt.Errorf("corrupt photo row %d: %w", p.ID, err)
	}
	p.Partner = link
	return &p, nil
}

// Create inserts a new photo in the Exchanging state, reserving it against
// concurrent pairing attempts by other uploads. The server-assigned id and
// upload timestamp are written back into the photo.
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	photo.State = models.StateExchanging
	photo.Partner = models.PendingPartner()
	if photo.UploadedOn.IsZero() {
		photo.UploadedOn = time.Now().UTC()
	}

	query := `
		INSERT INTO photos (user_id, name, exchange_state, exchanged_photo_id,
			is_public, lon, lat, ip_hash, uploaded_on)
		VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		photo.UserID, photo.Name, string(photo.State),
		photo.IsPublic, photo.Lon, photo.Lat, photo.IPHash, photo.UploadedOn,
	).Scan(&photo.ID)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	photo, err := scanPhoto(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// GetByName retrieves a photo by its public name
func (r *PhotoRepository) GetByName(ctx context.Context, name string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE name = $1`
	photo, err := scanPhoto(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get photo by name: %w", err)
	}
	return photo, nil
}

// PairWithOldestReady runs the partner-search transaction for the given
// Exchanging photo. It claims the oldest ReadyToExchange photo not owned by
// userID and links both rows symmetrically, all inside one transaction.
// FOR UPDATE SKIP LOCKED makes concurrent searches claim disjoint candidates
// instead of blocking or double-matching. On success the fully-linked partner
// photo is returned; ErrNoCandidate means no eligible photo exists and the
// caller should fall back to MarkReady.
func (r *PhotoRepository) PairWithOldestReady(ctx context.Context, photoID, userID int64) (*models.Photo, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin pairing transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	candidateQuery := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE exchange_state = $1
		  AND user_id <> $2
		  AND deleted_on IS NULL
		ORDER BY uploaded_on, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	partner, err := scanPhoto(tx.QueryRow(ctx, candidateQuery,
		string(models.StateReadyToExchange), userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandidate
		}
		return nil, fmt.Errorf("failed to select candidate: %w", err)
	}

	claim := `
		UPDATE photos
		SET exchange_state = $1, exchanged_photo_id = $2
		WHERE id = $3 AND exchange_state = $4
	`
	tag, err := tx.Exec(ctx, claim,
		string(models.StateExchanged), photoID,
		partner.ID, string(models.StateReadyToExchange))
	if err != nil {
		return nil, fmt.Errorf("failed to claim candidate %d: %w", partner.ID, err)
	}
	if tag.RowsAffected() != 1 {
		// Candidate claimed by someone else despite the row lock. Abort so
		// neither side records a one-way link.
		return nil, ErrNoCandidate
	}

	tag, err = tx.Exec(ctx, claim,
		string(models.StateExchanged), partner.ID,
		photoID, string(models.StateExchanging))
	if err != nil {
		return nil, fmt.Errorf("failed to link photo %d: %w", photoID, err)
	}
	if tag.RowsAffected() != 1 {
		return nil, ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit pairing: %w", err)
	}

	partner.State = models.StateExchanged
	partner.Partner = models.PartnerOf(photoID)
	return partner, nil
}

// MarkReady resolves an Exchanging photo whose partner search found no
// candidate, parking it for future uploads to claim.
func (r *PhotoRepository) MarkReady(ctx context.Context, photoID int64) error {
	query := `
		UPDATE photos
		SET exchange_state = $1, exchanged_photo_id = NULL
		WHERE id = $2 AND exchange_state = $3
	`
	tag, err := r.db.Exec(ctx, query,
		string(models.StateReadyToExchange), photoID, string(models.StateExchanging))
	if err != nil {
		return fmt.Errorf("failed to mark photo ready: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrConflict
	}
	return nil
}

// ClaimAbandoned stamps a waiting photo for reclamation. The state and age
// predicates are re-checked inside the write itself, so a photo claimed by a
// concurrent pairing transaction after it was listed is left alone: the
// pairing commit flips its state and this update then matches nothing.
func (r *PhotoRepository) ClaimAbandoned(ctx context.Context, photoID int64, olderThan, at time.Time) error {
	query := `
		UPDATE photos
		SET deleted_on = $1
		WHERE id = $2 AND exchange_state = $3 AND uploaded_on < $4 AND deleted_on IS NULL
	`
	tag, err := r.db.Exec(ctx, query,
		at, photoID, string(models.StateReadyToExchange), olderThan)
	if err != nil {
		return fmt.Errorf("failed to claim abandoned photo: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrConflict
	}
	return nil
}

// SoftDelete stamps a photo's deletion time, keeping the row and its blobs
// for the retention grace period.
func (r *PhotoRepository) SoftDelete(ctx context.Context, photoID int64, at time.Time) error {
	query := `UPDATE photos SET deleted_on = $1 WHERE id = $2 AND deleted_on IS NULL`
	if _, err := r.db.Exec(ctx, query, at, photoID); err != nil {
		return fmt.Errorf("failed to soft delete photo: %w", err)
	}
	return nil
}

// SoftDeleteByUser stamps every live photo owned by the user and returns how
// many rows were touched.
func (r *PhotoRepository) SoftDeleteByUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	query := `UPDATE photos SET deleted_on = $1 WHERE user_id = $2 AND deleted_on IS NULL`
	tag, err := r.db.Exec(ctx, query, at, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete user photos: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a photo row permanently. Gallery, favourite, report and map
// rows go with it through the schema cascade.
func (r *PhotoRepository) Delete(ctx context.Context, photoID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, photoID); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// ListAbandoned returns never-matched photos uploaded before the threshold.
// Exchanging photos are excluded by the state predicate: a photo mid-pairing
// is never a sweep target.
func (r *PhotoRepository) ListAbandoned(ctx context.Context, olderThan time.Time, limit int) ([]*models.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE exchange_state = $1 AND uploaded_on < $2 AND deleted_on IS NULL
		ORDER BY uploaded_on
		LIMIT $3
	`
	return r.listPhotos(ctx, query, string(models.StateReadyToExchange), olderThan, limit)
}

// ListExchangedOlder returns exchanged photos past their protection window.
func (r *PhotoRepository) ListExchangedOlder(ctx context.Context, olderThan time.Time, limit int) ([]*models.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE exchange_state = $1 AND uploaded_on < $2 AND deleted_on IS NULL
		ORDER BY uploaded_on
		LIMIT $3
	`
	return r.listPhotos(ctx, query, string(models.StateExchanged), olderThan, limit)
}

// ListDeletedBefore returns soft-deleted photos whose grace period expired.
func (r *PhotoRepository) ListDeletedBefore(ctx context.Context, deletedBefore time.Time, limit int) ([]*models.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE deleted_on IS NOT NULL AND deleted_on < $1
		ORDER BY deleted_on
		LIMIT $2
	`
	return r.listPhotos(ctx, query, deletedBefore, limit)
}

func (r *PhotoRepository) listPhotos(ctx context.Context, query string, args ...any) ([]*models.Photo, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return photos, nil
}

// IPHashesForUser returns the distinct origin hashes seen on a user's
// uploads, for the ban cascade.
func (r *PhotoRepository) IPHashesForUser(ctx context.Context, userID int64) ([]string, error) {
	query := `SELECT DISTINCT ip_hash FROM photos WHERE user_id = $1 AND ip_hash <> ''`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ip hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan ip hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ip hashes: %w", err)
	}
	return hashes, nil
}

// CountUploadedSince counts a user's live uploads newer than the timestamp.
func (r *PhotoRepository) CountUploadedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM photos
		WHERE user_id = $1 AND uploaded_on > $2 AND deleted_on IS NULL
	`
	var count int
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count uploaded photos: %w", err)
	}
	return count, nil
}

// CountReceivedSince counts partner photos a user received through exchanges
// completed after the timestamp. The exchange moment is the later of the two
// upload times, since the newcomer's upload is what completes the pair.
func (r *PhotoRepository) CountReceivedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM photos mine
		JOIN photos partner ON partner.id = mine.exchanged_photo_id
		WHERE mine.user_id = $1
		  AND mine.exchange_state = $2
		  AND GREATEST(mine.uploaded_on, partner.uploaded_on) > $3
	`
	var count int
	err := r.db.QueryRow(ctx, query, userID, string(models.StateExchanged), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count received photos: %w", err)
	}
	return count, nil
}
