package services

import (
	"context"
	"errors"
	"time"

	"photo-exchange-backend/internal/config"
	"photo-exchange-backend/internal/models"
	"photo-exchange-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// Sweeper is the retention sweep: a fixed-interval background routine that
// reclaims abandoned and expired photo data. It only ever selects photos by
// their current state inside the store, so it naturally loses any race with
// an in-flight pairing: an Exchanging photo matches no sweep predicate, and a
// photo claimed between list and delete simply fails the predicate next time.
type Sweeper struct {
	photos PhotoStore
	blobs  BlobStore
	cfg    config.RetentionConfig
	now    func() time.Time
}

// NewSweeper creates a new retention sweeper
func NewSweeper(photos PhotoStore, blobs BlobStore, cfg config.RetentionConfig) *Sweeper {
	return &Sweeper{
		photos: photos,
		blobs:  blobs,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run executes sweeps at the configured interval until the context ends.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval.Std())
	defer ticker.Stop()

	log.Info().
		Dur("interval", s.cfg.SweepInterval.Std()).
		Msg("Retention sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass. Failures are isolated per photo: a blob that
// cannot be deleted is logged and the row kept, so the next cycle retries it.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	s.sweepAbandoned(ctx, now)
	s.sweepExchangedExpired(ctx, now)
	s.sweepDeletedExpired(ctx, now)
}

// sweepAbandoned reclaims photos that waited in ReadyToExchange past the
// retention deadline without ever being matched. Each photo is claimed with a
// conditional write before any blob is touched: the listing is only a hint,
// and a photo paired in the meantime must survive untouched.
func (s *Sweeper) sweepAbandoned(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cfg.ReadyTTL.Std())
	photos, err := s.photos.ListAbandoned(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list abandoned photos")
		return
	}

	for _, photo := range photos {
		if err := s.photos.ClaimAbandoned(ctx, photo.ID, cutoff, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				log.Debug().Int64("photo_id", photo.ID).Msg("Photo matched before reclamation, skipping")
				continue
			}
			log.Error().Err(err).Int64("photo_id", photo.ID).Msg("Failed to claim abandoned photo")
			continue
		}
		s.purge(ctx, photo, "abandoned")
	}
}

// sweepExchangedExpired soft-deletes exchanged photos past their protection
// window. Matched content is retained longer than unmatched content since it
// was actually delivered to a partner; after the window it enters the normal
// deleted-grace pipeline.
func (s *Sweeper) sweepExchangedExpired(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cfg.ExchangedTTL.Std())
	photos, err := s.photos.ListExchangedOlder(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expired exchanged photos")
		return
	}

	for _, photo := range photos {
		if err := s.photos.SoftDelete(ctx, photo.ID, now); err != nil {
			log.Error().Err(err).Int64("photo_id", photo.ID).Msg("Failed to soft delete expired photo")
		}
	}
}

// sweepDeletedExpired purges soft-deleted photos whose grace period ended.
func (s *Sweeper) sweepDeletedExpired(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cfg.DeletedGrace.Std())
	photos, err := s.photos.ListDeletedBefore(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expired deleted photos")
		return
	}

	for _, photo := range photos {
		s.purge(ctx, photo, "deleted")
	}
}

// purge removes a photo's blobs and then its row. The row (and with it the
// projections, through the cascade) goes only after both blobs are gone; a
// storage failure leaves the soft-deleted row behind and the grace-period
// pass retries it.
func (s *Sweeper) purge(ctx context.Context, photo *models.Photo, reason string) {
	if err := s.blobs.Delete(ctx, PhotoKey(photo.Name)); err != nil {
		log.Error().Err(err).
			Int64("photo_id", photo.ID).
			Str("reason", reason).
			Msg("Failed to delete photo blob, will retry next sweep")
		return
	}
	if err := s.blobs.Delete(ctx, MapTileKey(photo.Name)); err != nil {
		log.Error().Err(err).
			Int64("photo_id", photo.ID).
			Str("reason", reason).
			Msg("Failed to delete map tile blob, will retry next sweep")
		return
	}

	if err := s.photos.Delete(ctx, photo.ID); err != nil {
		log.Error().Err(err).
			Int64("photo_id", photo.ID).
			Str("reason", reason).
			Msg("Failed to delete photo row")
		return
	}

	log.Debug().
		Int64("photo_id", photo.ID).
		Str("reason", reason).
		Msg("Photo reclaimed")
}
