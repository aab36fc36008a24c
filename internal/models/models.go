package models

import "time"

// ExchangeState describes where a photo is in its pairing lifecycle.
type ExchangeState string

const (
	// StateReadyToExchange marks a photo waiting, unmatched, for a future
	// pairing attempt.
	StateReadyToExchange ExchangeState = "ready_to_exchange"
	// StateExchanging marks a photo whose pairing attempt is in flight. The
	// state is transient and must resolve within the upload request that
	// created the photo.
	StateExchanging ExchangeState = "exchanging"
	// StateExchanged marks a photo permanently linked to a partner photo.
	StateExchanged ExchangeState = "exchanged"
)

// MapStatus describes the rendering state of a photo's static location map.
type MapStatus string

const (
	MapStatusEmpty     MapStatus = "empty"
	MapStatusReady     MapStatus = "ready"
	MapStatusAnonymous MapStatus = "anonymous"
	MapStatusFailed    MapStatus = "failed"
)

// Photo is the canonical photo record. Every other row in the system is a
// projection owned by, and deleted with, its Photo.
type Photo struct {
	ID         int64         `json:"id"`
	UserID     int64         `json:"user_id"`
	Name       string        `json:"name"`
	State      ExchangeState `json:"exchange_state"`
	Partner    PartnerLink   `json:"-"`
	IsPublic   bool          `json:"is_public"`
	Lon        *float64      `json:"lon,omitempty"`
	Lat        *float64      `json:"lat,omitempty"`
	IPHash     string        `json:"-"`
	UploadedOn time.Time     `json:"uploaded_on"`
	DeletedOn  *time.Time    `json:"deleted_on,omitempty"`
}

// IsAnonymous reports whether the uploader withheld the photo's location.
// Anonymous photos never get a rendered map but remain eligible for exchange
// and for the gallery.
func (p *Photo) IsAnonymous() bool {
	return p.Lon == nil || p.Lat == nil
}

// User represents a device-registered user.
type User struct {
	ID          int64     `json:"id"`
	UUID        string    `json:"uuid"`
	PushToken   *string   `json:"push_token,omitempty"`
	LastLoginAt time.Time `json:"last_login_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// GalleryPhoto is the public-feed projection row for a photo whose uploader
// opted into gallery visibility.
type GalleryPhoto struct {
	ID         int64     `json:"id"`
	PhotoID    int64     `json:"photo_id"`
	UploadedOn time.Time `json:"uploaded_on"`
}

// GalleryEntry is a gallery row joined with the public fields of its photo.
type GalleryEntry struct {
	GalleryPhoto
	PhotoName string `json:"photo_name"`
}

// FavouritePhoto records a user's favourite mark on a photo. At most one row
// exists per (photo, user) pair.
type FavouritePhoto struct {
	ID      int64 `json:"id"`
	PhotoID int64 `json:"photo_id"`
	UserID  int64 `json:"user_id"`
}

// ReportedPhoto records a user's report of a photo. At most one row exists
// per (photo, user) pair.
type ReportedPhoto struct {
	ID      int64 `json:"id"`
	PhotoID int64 `json:"photo_id"`
	UserID  int64 `json:"user_id"`
}

// LocationMap tracks the asynchronous rendering of a photo's static map tile,
// with bounded retries scheduled through NextAttemptAt.
type LocationMap struct {
	ID            int64     `json:"id"`
	PhotoID       int64     `json:"photo_id"`
	Attempts      int       `json:"attempts"`
	Status        MapStatus `json:"status"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	TileKey       *string   `json:"tile_key,omitempty"`
}

// Ban blocks uploads by user identity or by network-origin hash. At least one
// of UserID and IPHash is set; each is unique across the table.
type Ban struct {
	ID       int64     `json:"id"`
	UserID   *int64    `json:"user_id,omitempty"`
	IPHash   *string   `json:"ip_hash,omitempty"`
	BannedOn time.Time `json:"banned_on"`
}
