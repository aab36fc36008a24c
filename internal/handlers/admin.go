package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"photo-exchange-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AdminHandler handles administrative moderation requests
type AdminHandler struct {
	moderationService *services.ModerationService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(moderationService *services.ModerationService) *AdminHandler {
	return &AdminHandler{
		moderationService: moderationService,
	}
}

// BanUserRequest represents the request body for banning a user
type BanUserRequest struct {
	UserID int64 `json:"user_id"`
}

// BanUser handles POST /api/v1/admin/bans/user
func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	var req BanUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.moderationService.BanUser(r.Context(), req.UserID); err != nil {
		log.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to ban user")
		respondError(w, "failed to ban user", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BanPhotoRequest represents the request body for banning by photo
type BanPhotoRequest struct {
	PhotoName string `json:"photo_name"`
}

// BanPhoto handles POST /api/v1/admin/bans/photo
func (h *AdminHandler) BanPhoto(w http.ResponseWriter, r *http.Request) {
	var req BanPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PhotoName == "" {
		respondError(w, "photo_name is required", http.StatusBadRequest)
		return
	}

	if err := h.moderationService.BanPhoto(r.Context(), req.PhotoName); err != nil {
		if errors.Is(err, services.ErrPhotoNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("photo_name", req.PhotoName).Msg("Failed to ban photo")
		respondError(w, "failed to ban photo", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
