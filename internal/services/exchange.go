package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photo-exchange-backend/internal/models"
	"photo-exchange-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PhotoKey returns the blob key holding a photo's bytes.
func PhotoKey(name string) string { return "photos/" + name + ".jpg" }

// MapTileKey returns the blob key holding a photo's rendered map tile.
func MapTileKey(name string) string { return "maps/" + name + ".png" }

// ExchangeService drives the per-photo exchange lifecycle: a new upload is
// reserved in the Exchanging state, matched against the oldest waiting photo
// inside a single store transaction, and resolved to Exchanged or
// ReadyToExchange before the request returns.
type ExchangeService struct {
	photos  PhotoStore
	users   UserStore
	gallery GalleryStore
	maps    MapStore
	gate    BanGate
	blobs   BlobStore
	events  ExchangeEvents
}

// NewExchangeService creates a new exchange service
func NewExchangeService(
	photos PhotoStore,
	users UserStore,
	gallery GalleryStore,
	maps MapStore,
	gate BanGate,
	blobs BlobStore,
	events ExchangeEvents,
) *ExchangeService {
	return &ExchangeService{
		photos:  photos,
		users:   users,
		gallery: gallery,
		maps:    maps,
		gate:    gate,
		blobs:   blobs,
		events:  events,
	}
}

// UploadParams carries a validated upload into the exchange core.
type UploadParams struct {
	UserID      int64
	Data        []byte
	ContentType string
	Lon         *float64
	Lat         *float64
	IsPublic    bool
	IPHash      string
}

// Upload stores the photo and runs one pairing attempt. The returned photo is
// either Exchanged with a resolvable partner, or ReadyToExchange waiting for
// a future upload to claim it. On any failure past row creation the row and
// blob are removed again, so a timed-out client can safely retry the whole
// upload.
func (s *ExchangeService) Upload(ctx context.Context, params UploadParams) (*models.Photo, error) {
	if len(params.Data) == 0 {
		return nil, fmt.Errorf("%w: empty photo payload", ErrInvalidInput)
	}
	if (params.Lon == nil) != (params.Lat == nil) {
		return nil, fmt.Errorf("%w: lon and lat must be given together", ErrInvalidInput)
	}

	// Ban gate first: no disk or database work for banned uploaders.
	banned, err := s.gate.IsBanned(ctx, params.UserID, params.IPHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check ban: %w", err)
	}
	if banned {
		return nil, ErrBanned
	}

	contentType := params.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	photo := &models.Photo{
		UserID:   params.UserID,
		Name:     uuid.New().String(),
		IsPublic: params.IsPublic,
		Lon:      params.Lon,
		Lat:      params.Lat,
		IPHash:   params.IPHash,
	}

	if err := s.blobs.Put(ctx, PhotoKey(photo.Name), params.Data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store photo bytes: %w", err)
	}

	if err := s.photos.Create(ctx, photo); err != nil {
		s.discardBlob(photo.Name)
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	if err := s.resolvePairing(ctx, photo); err != nil {
		// The photo could not be left in a well-defined state. Remove it
		// entirely; the client retries the whole upload.
		s.discard(photo)
		return nil, err
	}

	s.createProjections(ctx, photo)

	return photo, nil
}

// resolvePairing runs the partner search and settles the photo into Exchanged
// or ReadyToExchange. Pairing conflicts and transient store failures both
// take the no-candidate branch, as the claim transaction leaves no partial
// state behind.
func (s *ExchangeService) resolvePairing(ctx context.Context, photo *models.Photo) error {
	partner, err := s.photos.PairWithOldestReady(ctx, photo.ID, photo.UserID)
	switch {
	case err == nil:
		photo.State = models.StateExchanged
		photo.Partner = models.PartnerOf(partner.ID)
		s.notifyExchanged(ctx, partner, photo)
		return nil
	case errors.Is(err, repository.ErrNoCandidate), errors.Is(err, repository.ErrConflict):
		// fall through to ReadyToExchange
	default:
		log.Error().Err(err).Int64("photo_id", photo.ID).Msg("Pairing attempt failed")
	}

	if err := s.photos.MarkReady(ctx, photo.ID); err != nil {
		return fmt.Errorf("failed to park photo for future exchange: %w", err)
	}
	photo.State = models.StateReadyToExchange
	photo.Partner = models.NoPartner()
	return nil
}

// notifyExchanged tells the waiting photo's owner their upload finally found
// a partner. Delivery failures never affect the committed exchange.
func (s *ExchangeService) notifyExchanged(ctx context.Context, waiting, arrived *models.Photo) {
	if s.events == nil {
		return
	}
	owner, err := s.users.GetByID(ctx, waiting.UserID)
	if err != nil {
		log.Error().Err(err).
			Int64("user_id", waiting.UserID).
			Int64("photo_id", waiting.ID).
			Msg("Failed to load owner of exchanged photo")
		return
	}
	s.events.PhotoExchanged(ctx, owner, waiting, arrived)
}

// createProjections writes the derived rows for a settled photo. These views
// converge eventually; a failed insert only costs visibility, never the
// exchange itself.
func (s *ExchangeService) createProjections(ctx context.Context, photo *models.Photo) {
	if photo.IsPublic {
		if err := s.gallery.Insert(ctx, photo.ID, photo.UploadedOn); err != nil {
			log.Error().Err(err).Int64("photo_id", photo.ID).Msg("Failed to insert gallery row")
		}
	}

	m := &models.LocationMap{
		PhotoID:       photo.ID,
		Status:        models.MapStatusEmpty,
		NextAttemptAt: time.Now().UTC(),
	}
	if photo.IsAnonymous() {
		m.Status = models.MapStatusAnonymous
	}
	if err := s.maps.Create(ctx, m); err != nil {
		log.Error().Err(err).Int64("photo_id", photo.ID).Msg("Failed to create location map row")
	}
}

func (s *ExchangeService) discard(photo *models.Photo) {
	ctx := context.Background()
	if err := s.photos.Delete(ctx, photo.ID); err != nil {
		log.Error().Err(err).Int64("photo_id", photo.ID).Msg("Failed to remove half-created photo")
	}
	s.discardBlob(photo.Name)
}

func (s *ExchangeService) discardBlob(name string) {
	if err := s.blobs.Delete(context.Background(), PhotoKey(name)); err != nil {
		log.Error().Err(err).Str("photo_name", name).Msg("Failed to remove orphaned photo blob")
	}
}

// GetPhoto returns one of the caller's own photos.
func (s *ExchangeService) GetPhoto(ctx context.Context, userID, photoID int64) (*models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	if photo.UserID != userID || photo.DeletedOn != nil {
		return nil, ErrPhotoNotFound
	}
	return photo, nil
}

// GetExchangedPhoto returns the partner photo received for one of the
// caller's uploads, or ErrNotYetExchanged while the upload is still waiting.
// A partner photo removed by moderation or retention is withheld the same
// way, so its name and URL never resurface.
func (s *ExchangeService) GetExchangedPhoto(ctx context.Context, userID, photoID int64) (*models.Photo, error) {
	photo, err := s.GetPhoto(ctx, userID, photoID)
	if err != nil {
		return nil, err
	}

	partnerID, ok := photo.Partner.PhotoID()
	if !ok {
		return nil, ErrNotYetExchanged
	}

	partner, err := s.photos.GetByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotYetExchanged
		}
		return nil, fmt.Errorf("failed to get partner photo: %w", err)
	}
	if partner.DeletedOn != nil {
		return nil, ErrNotYetExchanged
	}
	return partner, nil
}

// GetLocationMap returns the rendered map tile state for one of the caller's
// photos.
func (s *ExchangeService) GetLocationMap(ctx context.Context, userID, photoID int64) (*models.LocationMap, error) {
	if _, err := s.GetPhoto(ctx, userID, photoID); err != nil {
		return nil, err
	}
	m, err := s.maps.GetByPhotoID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMapNotReady
		}
		return nil, fmt.Errorf("failed to get location map: %w", err)
	}
	return m, nil
}

// PhotoURL returns the public blob URL for a photo.
func (s *ExchangeService) PhotoURL(photo *models.Photo) string {
	return s.blobs.URL(PhotoKey(photo.Name))
}

// TileURL returns the public blob URL for a rendered map tile key.
func (s *ExchangeService) TileURL(tileKey string) string {
	return s.blobs.URL(tileKey)
}
