package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"photo-exchange-backend/internal/config"
	"photo-exchange-backend/internal/models"
	"photo-exchange-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// maxTileBytes caps a downloaded map tile.
const maxTileBytes = 2 << 20

// MapFetcher renders location maps: a background worker that downloads a
// static-map tile for each located photo, with a bounded attempt budget and
// growing backoff between attempts.
type MapFetcher struct {
	maps   MapStore
	photos PhotoStore
	blobs  BlobStore
	client *http.Client
	cfg    config.MapsConfig
	now    func() time.Time
}

// NewMapFetcher creates a new map fetcher
func NewMapFetcher(maps MapStore, photos PhotoStore, blobs BlobStore, client *http.Client, cfg config.MapsConfig) *MapFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &MapFetcher{
		maps:   maps,
		photos: photos,
		blobs:  blobs,
		client: client,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run polls for due map rows until the context ends.
func (f *MapFetcher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.FetchInterval.Std())
	defer ticker.Stop()

	log.Info().
		Dur("interval", f.cfg.FetchInterval.Std()).
		Msg("Map fetcher started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Map fetcher stopped")
			return
		case <-ticker.C:
			f.FetchDue(ctx)
		}
	}
}

// FetchDue processes one batch of due map rows. Failures are isolated per
// row.
func (f *MapFetcher) FetchDue(ctx context.Context) {
	due, err := f.maps.ListDue(ctx, f.now(), f.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list due location maps")
		return
	}

	for _, m := range due {
		if err := f.fetchOne(ctx, m); err != nil {
			log.Warn().Err(err).
				Int64("photo_id", m.PhotoID).
				Int("attempts", m.Attempts+1).
				Msg("Map tile fetch failed")
			f.recordFailure(ctx, m)
		}
	}
}

func (f *MapFetcher) fetchOne(ctx context.Context, m *models.LocationMap) error {
	photo, err := f.photos.GetByID(ctx, m.PhotoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Photo reclaimed while the map row waited.
			return f.maps.MarkFailed(ctx, m.ID)
		}
		return fmt.Errorf("failed to get photo: %w", err)
	}
	if photo.IsAnonymous() || photo.DeletedOn != nil {
		return f.maps.MarkFailed(ctx, m.ID)
	}

	url := fmt.Sprintf(f.cfg.URLTemplate, *photo.Lon, *photo.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build tile request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download tile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tile server returned status %d", resp.StatusCode)
	}

	tile, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return fmt.Errorf("failed to read tile body: %w", err)
	}
	if len(tile) == 0 {
		return fmt.Errorf("tile server returned empty body")
	}

	key := MapTileKey(photo.Name)
	if err := f.blobs.Put(ctx, key, tile, "image/png"); err != nil {
		return fmt.Errorf("failed to store tile: %w", err)
	}

	if err := f.maps.MarkReady(ctx, m.ID, key); err != nil {
		return fmt.Errorf("failed to mark map ready: %w", err)
	}

	log.Debug().Int64("photo_id", photo.ID).Msg("Map tile rendered")
	return nil
}

func (f *MapFetcher) recordFailure(ctx context.Context, m *models.LocationMap) {
	attempts := m.Attempts + 1
	if attempts >= f.cfg.MaxAttempts {
		if err := f.maps.MarkFailed(ctx, m.ID); err != nil {
			log.Error().Err(err).Int64("map_id", m.ID).Msg("Failed to mark map failed")
		}
		return
	}

	nextAt := f.now().Add(f.cfg.RetryBackoff.Std() * time.Duration(attempts))
	if err := f.maps.Reschedule(ctx, m.ID, attempts, nextAt); err != nil {
		log.Error().Err(err).Int64("map_id", m.ID).Msg("Failed to reschedule map fetch")
	}
}
