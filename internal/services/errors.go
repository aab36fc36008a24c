package services

import "errors"

var (
	// ErrBanned rejects uploads from banned users or origins.
	ErrBanned = errors.New("uploader is banned")
	// ErrInvalidInput flags malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPhotoNotFound is returned for unknown, deleted or foreign photos.
	ErrPhotoNotFound = errors.New("photo not found")
	// ErrUserNotFound is returned for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotYetExchanged means the photo is still waiting for a partner.
	ErrNotYetExchanged = errors.New("photo not yet exchanged")
	// ErrMapNotReady means the photo's location map has not been rendered.
	ErrMapNotReady = errors.New("location map not ready")
)
