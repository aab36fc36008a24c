package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"photo-exchange-backend/internal/models"
	"photo-exchange-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// PhotoResponse is the wire shape of a photo.
type PhotoResponse struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	ExchangeState    string    `json:"exchange_state"`
	ExchangedPhotoID *int64    `json:"exchanged_photo_id,omitempty"`
	IsPublic         bool      `json:"is_public"`
	Lon              *float64  `json:"lon,omitempty"`
	Lat              *float64  `json:"lat,omitempty"`
	UploadedOn       time.Time `json:"uploaded_on"`
	URL              string    `json:"url"`
}

func toPhotoResponse(exchangeService *services.ExchangeService, photo *models.Photo) PhotoResponse {
	resp := PhotoResponse{
		ID:            photo.ID,
		Name:          photo.Name,
		ExchangeState: string(photo.State),
		IsPublic:      photo.IsPublic,
		Lon:           photo.Lon,
		Lat:           photo.Lat,
		UploadedOn:    photo.UploadedOn,
		URL:           exchangeService.PhotoURL(photo),
	}
	if partnerID, ok := photo.Partner.PhotoID(); ok {
		resp.ExchangedPhotoID = &partnerID
	}
	return resp
}
