package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photo-exchange-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// ModerationService owns the ban table. It is the BanGate consulted on every
// upload, and it runs the administrative ban cascade.
type ModerationService struct {
	bans    BanStore
	photos  PhotoStore
	gallery GalleryStore
}

// NewModerationService creates a new moderation service
func NewModerationService(bans BanStore, photos PhotoStore, gallery GalleryStore) *ModerationService {
	return &ModerationService{
		bans:    bans,
		photos:  photos,
		gallery: gallery,
	}
}

// IsBanned reports whether the user or origin hash is banned.
func (s *ModerationService) IsBanned(ctx context.Context, userID int64, ipHash string) (bool, error) {
	return s.bans.IsBanned(ctx, userID, ipHash)
}

// BanUser bans a user and cascades: every origin hash seen on their uploads
// is banned too, all their photos are soft-deleted, and their gallery rows
// disappear immediately instead of waiting for the cleanup sweep.
func (s *ModerationService) BanUser(ctx context.Context, userID int64) error {
	now := time.Now().UTC()

	if err := s.bans.BanUser(ctx, userID, now); err != nil {
		return err
	}

	hashes, err := s.photos.IPHashesForUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to collect ip hashes for ban")
	}
	for _, h := range hashes {
		if err := s.bans.BanIPHash(ctx, h, now); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to ban ip hash")
		}
	}

	deleted, err := s.photos.SoftDeleteByUser(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("failed to soft delete banned user's photos: %w", err)
	}
	if err := s.gallery.DeleteForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to remove banned user's gallery rows: %w", err)
	}

	log.Info().
		Int64("user_id", userID).
		Int64("photos_deleted", deleted).
		Int("ip_hashes", len(hashes)).
		Msg("User banned")
	return nil
}

// BanPhoto bans by public photo name: the photo's origin hash and owner are
// banned, with the full owner cascade.
func (s *ModerationService) BanPhoto(ctx context.Context, photoName string) error {
	photo, err := s.photos.GetByName(ctx, photoName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPhotoNotFound
		}
		return fmt.Errorf("failed to get photo: %w", err)
	}

	if err := s.bans.BanIPHash(ctx, photo.IPHash, time.Now().UTC()); err != nil {
		log.Error().Err(err).Str("photo_name", photoName).Msg("Failed to ban photo ip hash")
	}
	return s.BanUser(ctx, photo.UserID)
}
