package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photo-exchange-backend/internal/models"
	"photo-exchange-backend/internal/repository"
)

// FreshScope selects which feed a fresh-count query runs against.
type FreshScope string

const (
	ScopeGallery  FreshScope = "gallery"
	ScopeUploaded FreshScope = "uploaded"
	ScopeReceived FreshScope = "received"
)

// GalleryService serves the public feed and the favourite/report toggles.
type GalleryService struct {
	gallery GalleryStore
	photos  PhotoStore
}

// NewGalleryService creates a new gallery service
func NewGalleryService(gallery GalleryStore, photos PhotoStore) *GalleryService {
	return &GalleryService{
		gallery: gallery,
		photos:  photos,
	}
}

// Page returns gallery entries older than the cursor, newest first. A zero
// cursor means "from the top".
func (s *GalleryService) Page(ctx context.Context, before time.Time, limit int) ([]models.GalleryEntry, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.gallery.Page(ctx, before, limit)
}

// FreshCount counts new content since the timestamp for the given scope, for
// client badge polling.
func (s *GalleryService) FreshCount(ctx context.Context, scope FreshScope, userID int64, since time.Time) (int, error) {
	switch scope {
	case ScopeGallery:
		return s.gallery.CountSince(ctx, since)
	case ScopeUploaded:
		return s.photos.CountUploadedSince(ctx, userID, since)
	case ScopeReceived:
		return s.photos.CountReceivedSince(ctx, userID, since)
	default:
		return 0, fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, scope)
	}
}

// SetFavourite toggles the caller's favourite mark on a photo. Repeated calls
// with the same value are no-ops.
func (s *GalleryService) SetFavourite(ctx context.Context, photoID, userID int64, value bool) error {
	if err := s.requireLivePhoto(ctx, photoID); err != nil {
		return err
	}
	return s.gallery.SetFavourite(ctx, photoID, userID, value)
}

// SetReport toggles the caller's report of a photo with the same idempotency
// contract as SetFavourite.
func (s *GalleryService) SetReport(ctx context.Context, photoID, userID int64, value bool) error {
	if err := s.requireLivePhoto(ctx, photoID); err != nil {
		return err
	}
	return s.gallery.SetReport(ctx, photoID, userID, value)
}

func (s *GalleryService) requireLivePhoto(ctx context.Context, photoID int64) error {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPhotoNotFound
		}
		return fmt.Errorf("failed to get photo: %w", err)
	}
	if photo.DeletedOn != nil {
		return ErrPhotoNotFound
	}
	return nil
}
