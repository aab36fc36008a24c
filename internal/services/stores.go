package services

import (
	"context"
	"time"

	"photo-exchange-backend/internal/models"
)

// The store interfaces below are what the services program against. The pgx
// repositories satisfy them in production; tests substitute in-memory fakes.

// PhotoStore is the canonical photo record store.
type PhotoStore interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id int64) (*models.Photo, error)
	GetByName(ctx context.Context, name string) (*models.Photo, error)

	// PairWithOldestReady atomically claims the oldest ReadyToExchange photo
	// not owned by userID and links it with the given Exchanging photo. It
	// returns repository.ErrNoCandidate when nothing is claimable and
	// repository.ErrConflict when a concurrent transaction got there first;
	// in both cases no partial link is left behind.
	PairWithOldestReady(ctx context.Context, photoID, userID int64) (*models.Photo, error)
	MarkReady(ctx context.Context, photoID int64) error

	// ClaimAbandoned stamps a waiting photo for reclamation, re-checking
	// inside the write that it is still ReadyToExchange and older than the
	// threshold. repository.ErrConflict means a concurrent pairing claimed
	// the photo first and it must be left alone.
	ClaimAbandoned(ctx context.Context, photoID int64, olderThan, at time.Time) error
	SoftDelete(ctx context.Context, photoID int64, at time.Time) error
	SoftDeleteByUser(ctx context.Context, userID int64, at time.Time) (int64, error)
	Delete(ctx context.Context, photoID int64) error

	ListAbandoned(ctx context.Context, olderThan time.Time, limit int) ([]*models.Photo, error)
	ListExchangedOlder(ctx context.Context, olderThan time.Time, limit int) ([]*models.Photo, error)
	ListDeletedBefore(ctx context.Context, deletedBefore time.Time, limit int) ([]*models.Photo, error)

	IPHashesForUser(ctx context.Context, userID int64) ([]string, error)
	CountUploadedSince(ctx context.Context, userID int64, since time.Time) (int, error)
	CountReceivedSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// UserStore is the user record store.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUUID(ctx context.Context, uuid string) (*models.User, error)
	TouchLogin(ctx context.Context, userID int64, at time.Time) error
	UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error
}

// GalleryStore maintains the gallery, favourite and report projections.
type GalleryStore interface {
	Insert(ctx context.Context, photoID int64, uploadedOn time.Time) error
	Page(ctx context.Context, before time.Time, limit int) ([]models.GalleryEntry, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	DeleteForPhoto(ctx context.Context, photoID int64) error
	DeleteForUser(ctx context.Context, userID int64) error
	SetFavourite(ctx context.Context, photoID, userID int64, value bool) error
	IsFavourited(ctx context.Context, photoID, userID int64) (bool, error)
	SetReport(ctx context.Context, photoID, userID int64, value bool) error
	IsReported(ctx context.Context, photoID, userID int64) (bool, error)
}

// BanStore records and checks upload bans.
type BanStore interface {
	IsBanned(ctx context.Context, userID int64, ipHash string) (bool, error)
	BanUser(ctx context.Context, userID int64, at time.Time) error
	BanIPHash(ctx context.Context, ipHash string, at time.Time) error
}

// MapStore tracks static-map rendering state per photo.
type MapStore interface {
	Create(ctx context.Context, m *models.LocationMap) error
	GetByPhotoID(ctx context.Context, photoID int64) (*models.LocationMap, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.LocationMap, error)
	MarkReady(ctx context.Context, id int64, tileKey string) error
	MarkFailed(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, attempts int, nextAt time.Time) error
}

// BlobStore holds photo bytes and rendered map tiles.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// BanGate is the fail-fast moderation check consulted before any upload work.
type BanGate interface {
	IsBanned(ctx context.Context, userID int64, ipHash string) (bool, error)
}

// ExchangeEvents receives completed-exchange notifications for delivery to
// the waiting photo's owner.
type ExchangeEvents interface {
	PhotoExchanged(ctx context.Context, owner *models.User, waiting, arrived *models.Photo)
}
