package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"photo-exchange-backend/internal/middleware"
	"photo-exchange-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// GalleryHandler handles gallery-related HTTP requests
type GalleryHandler struct {
	galleryService *services.GalleryService
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(galleryService *services.GalleryService) *GalleryHandler {
	return &GalleryHandler{
		galleryService: galleryService,
	}
}

// GetGalleryPage handles GET /api/v1/gallery. The "before" query parameter is
// the keyset cursor; clients pass the uploaded_on of the last entry they have
// to fetch the next page.
func (h *GalleryHandler) GetGalleryPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, "before must be an RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		before = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	entries, err := h.galleryService.Page(ctx, before, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get gallery page")
		respondError(w, "failed to get gallery page", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"photos": entries,
	})
}

// ToggleRequest represents the request body for favourite/report toggles
type ToggleRequest struct {
	Value bool `json:"value"`
}

// SetFavourite handles PUT /api/v1/photos/{photo_id}/favourite
func (h *GalleryHandler) SetFavourite(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.galleryService.SetFavourite)
}

// SetReport handles PUT /api/v1/photos/{photo_id}/report
func (h *GalleryHandler) SetReport(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.galleryService.SetReport)
}

func (h *GalleryHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, photoID, userID int64, value bool) error,
) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	photoID, err := strconv.ParseInt(chi.URLParam(r, "photo_id"), 10, 64)
	if err != nil {
		respondError(w, "invalid photo_id", http.StatusBadRequest)
		return
	}

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := set(ctx, photoID, userID, req.Value); err != nil {
		if errors.Is(err, services.ErrPhotoNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Error().Err(err).
			Int64("photo_id", photoID).
			Int64("user_id", userID).
			Msg("Failed to toggle photo mark")
		respondError(w, "failed to update photo", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
