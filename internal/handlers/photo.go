package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"photo-exchange-backend/internal/middleware"
	"photo-exchange-backend/internal/models"
	"photo-exchange-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	exchangeService *services.ExchangeService
	galleryService  *services.GalleryService
	maxUploadBytes  int64
	ipSalt          string
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(
	exchangeService *services.ExchangeService,
	galleryService *services.GalleryService,
	maxUploadBytes int64,
	ipSalt string,
) *PhotoHandler {
	return &PhotoHandler{
		exchangeService: exchangeService,
		galleryService:  galleryService,
		maxUploadBytes:  maxUploadBytes,
		ipSalt:          ipSalt,
	}
}

// UploadPhoto handles POST /api/v1/photos. The multipart form carries the
// photo bytes in "photo" plus optional lon/lat and is_public fields.
func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		respondError(w, "photo payload too large or malformed", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, "photo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "failed to read photo payload", http.StatusBadRequest)
		return
	}

	lon, lat, err := parseCoords(r.FormValue("lon"), r.FormValue("lat"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := services.UploadParams{
		UserID:      userID,
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Lon:         lon,
		Lat:         lat,
		IsPublic:    r.FormValue("is_public") == "true",
		IPHash:      middleware.HashIP(h.ipSalt, r.RemoteAddr),
	}

	photo, err := h.exchangeService.Upload(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBanned):
			respondError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrInvalidInput):
			respondError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to upload photo")
			respondError(w, "failed to upload photo", http.StatusInternalServerError)
		}
		return
	}

	log.Info().
		Int64("user_id", userID).
		Int64("photo_id", photo.ID).
		Str("state", string(photo.State)).
		Msg("Photo uploaded")

	respondJSON(w, http.StatusOK, toPhotoResponse(h.exchangeService, photo))
}

func parseCoords(lonStr, latStr string) (*float64, *float64, error) {
	if lonStr == "" && latStr == "" {
		return nil, nil, nil
	}
	if lonStr == "" || latStr == "" {
		return nil, nil, errors.New("lon and lat must be given together")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, nil, errors.New("invalid lon")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, nil, errors.New("invalid lat")
	}
	return &lon, &lat, nil
}

// GetExchangedPhoto handles GET /api/v1/photos/{photo_id}/exchanged
func (h *PhotoHandler) GetExchangedPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	photoID, err := strconv.ParseInt(chi.URLParam(r, "photo_id"), 10, 64)
	if err != nil {
		respondError(w, "invalid photo_id", http.StatusBadRequest)
		return
	}

	partner, err := h.exchangeService.GetExchangedPhoto(ctx, userID, photoID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPhotoNotFound):
			respondError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrNotYetExchanged):
			respondJSON(w, http.StatusOK, map[string]interface{}{"exchanged": false})
		default:
			log.Error().Err(err).Int64("photo_id", photoID).Msg("Failed to get exchanged photo")
			respondError(w, "failed to get exchanged photo", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"exchanged": true,
		"photo":     toPhotoResponse(h.exchangeService, partner),
	})
}

// GetLocationMap handles GET /api/v1/photos/{photo_id}/map
func (h *PhotoHandler) GetLocationMap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	photoID, err := strconv.ParseInt(chi.URLParam(r, "photo_id"), 10, 64)
	if err != nil {
		respondError(w, "invalid photo_id", http.StatusBadRequest)
		return
	}

	m, err := h.exchangeService.GetLocationMap(ctx, userID, photoID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPhotoNotFound):
			respondError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrMapNotReady):
			respondError(w, err.Error(), http.StatusNotFound)
		default:
			log.Error().Err(err).Int64("photo_id", photoID).Msg("Failed to get location map")
			respondError(w, "failed to get location map", http.StatusInternalServerError)
		}
		return
	}

	resp := map[string]interface{}{"status": string(m.Status)}
	if m.Status == models.MapStatusReady && m.TileKey != nil {
		resp["url"] = h.exchangeService.TileURL(*m.TileKey)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetFreshCount handles GET /api/v1/photos/fresh-count
func (h *PhotoHandler) GetFreshCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	since, err := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
	if err != nil {
		respondError(w, "since must be an RFC3339 timestamp", http.StatusBadRequest)
		return
	}
	scope := services.FreshScope(r.URL.Query().Get("scope"))

	count, err := h.galleryService.FreshCount(ctx, scope, userID, since)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to count fresh photos")
		respondError(w, "failed to count fresh photos", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}
