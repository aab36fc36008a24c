package services

import (
	"context"
	"testing"
	"time"

	"photo-exchange-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type galleryFixture struct {
	*exchangeFixture
	svc *GalleryService
}

func newGalleryFixture() *galleryFixture {
	f := newExchangeFixture()
	return &galleryFixture{
		exchangeFixture: f,
		svc:             NewGalleryService(f.gallery, f.photos),
	}
}

// seedPublicPhoto uploads a public photo and pins its upload time so paging
// order is deterministic.
func (f *galleryFixture) seedPublicPhoto(t *testing.T, userID int64, at time.Time) *models.Photo {
	t.Helper()
	photo, err := f.exchangeFixture.svc.Upload(context.Background(), locatedUpload(userID))
	require.NoError(t, err)
	f.setUploadedOn(t, photo.ID, at)

	f.gallery.mu.Lock()
	for i := range f.gallery.rows {
		if f.gallery.rows[i].PhotoID == photo.ID {
			f.gallery.rows[i].UploadedOn = at
		}
	}
	f.gallery.mu.Unlock()
	return photo
}

func TestGalleryPageNewestFirst(t *testing.T) {
	f := newGalleryFixture()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	var seeded []*models.Photo
	for i := 0; i < 3; i++ {
		user := f.addUser(t)
		seeded = append(seeded, f.seedPublicPhoto(t, user.ID, base.Add(time.Duration(i)*time.Hour)))
	}

	entries, err := f.svc.Page(context.Background(), time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, seeded[2].ID, entries[0].PhotoID)
	assert.Equal(t, seeded[1].ID, entries[1].PhotoID)
	assert.Equal(t, seeded[0].ID, entries[2].PhotoID)
	assert.Equal(t, seeded[2].Name, entries[0].PhotoName)
}

func TestGalleryPageCursorExcludesSeenEntries(t *testing.T) {
	f := newGalleryFixture()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		user := f.addUser(t)
		f.seedPublicPhoto(t, user.ID, base.Add(time.Duration(i)*time.Hour))
	}

	first, err := f.svc.Page(context.Background(), time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := f.svc.Page(context.Background(), first[len(first)-1].UploadedOn, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)

	// No entry appears on both pages.
	seen := map[int64]bool{}
	for _, e := range first {
		seen[e.PhotoID] = true
	}
	for _, e := range second {
		assert.False(t, seen[e.PhotoID])
		assert.True(t, e.UploadedOn.Before(first[len(first)-1].UploadedOn))
	}
}

func TestGalleryPageHidesDeletedPhotos(t *testing.T) {
	f := newGalleryFixture()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	user := f.addUser(t)
	kept := f.seedPublicPhoto(t, user.ID, base)
	other := f.addUser(t)
	removed := f.seedPublicPhoto(t, other.ID, base.Add(time.Hour))
	require.NoError(t, f.photos.SoftDelete(context.Background(), removed.ID, time.Now().UTC()))

	entries, err := f.svc.Page(context.Background(), time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, kept.ID, entries[0].PhotoID)
}

func TestGalleryPageClampsLimit(t *testing.T) {
	f := newGalleryFixture()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		user := f.addUser(t)
		f.seedPublicPhoto(t, user.ID, base.Add(time.Duration(i)*time.Minute))
	}

	entries, err := f.svc.Page(context.Background(), time.Time{}, -5)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = f.svc.Page(context.Background(), time.Time{}, 100000)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFreshCountScopes(t *testing.T) {
	f := newGalleryFixture()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	alice := f.addUser(t)
	bob := f.addUser(t)

	mine := f.seedPublicPhoto(t, alice.ID, base.Add(time.Hour))
	theirs := f.seedPublicPhoto(t, bob.ID, base.Add(2*time.Hour))
	_ = mine
	_ = theirs

	// Everything is newer than base.
	count, err := f.svc.FreshCount(context.Background(), ScopeGallery, alice.ID, base)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = f.svc.FreshCount(context.Background(), ScopeUploaded, alice.ID, base)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Nothing is newer than the latest upload.
	count, err = f.svc.FreshCount(context.Background(), ScopeGallery, alice.ID, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFreshCountReceivedUsesExchangeMoment(t *testing.T) {
	f := newGalleryFixture()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	alice := f.addUser(t)
	bob := f.addUser(t)

	waiting := f.seedPublicPhoto(t, alice.ID, base)
	arrived, err := f.exchangeFixture.svc.Upload(context.Background(), locatedUpload(bob.ID))
	require.NoError(t, err)
	f.setUploadedOn(t, arrived.ID, base.Add(2*time.Hour))
	_ = waiting

	// The exchange happened when the second photo arrived, so a cursor
	// between the two upload times still counts it as fresh for Alice.
	count, err := f.svc.FreshCount(context.Background(), ScopeReceived, alice.ID, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = f.svc.FreshCount(context.Background(), ScopeReceived, alice.ID, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFreshCountRejectsUnknownScope(t *testing.T) {
	f := newGalleryFixture()
	_, err := f.svc.FreshCount(context.Background(), FreshScope("bogus"), 1, time.Now())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetFavouriteIsIdempotent(t *testing.T) {
	f := newGalleryFixture()
	user := f.addUser(t)
	viewer := f.addUser(t)
	photo := f.seedPublicPhoto(t, user.ID, time.Now().UTC())

	ctx := context.Background()
	require.NoError(t, f.svc.SetFavourite(ctx, photo.ID, viewer.ID, true))
	require.NoError(t, f.svc.SetFavourite(ctx, photo.ID, viewer.ID, true))

	fav, err := f.gallery.IsFavourited(ctx, photo.ID, viewer.ID)
	require.NoError(t, err)
	assert.True(t, fav)

	require.NoError(t, f.svc.SetFavourite(ctx, photo.ID, viewer.ID, false))
	require.NoError(t, f.svc.SetFavourite(ctx, photo.ID, viewer.ID, false))

	fav, err = f.gallery.IsFavourited(ctx, photo.ID, viewer.ID)
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestSetReportIsIdempotent(t *testing.T) {
	f := newGalleryFixture()
	user := f.addUser(t)
	viewer := f.addUser(t)
	photo := f.seedPublicPhoto(t, user.ID, time.Now().UTC())

	ctx := context.Background()
	require.NoError(t, f.svc.SetReport(ctx, photo.ID, viewer.ID, true))
	require.NoError(t, f.svc.SetReport(ctx, photo.ID, viewer.ID, true))

	reported, err := f.gallery.IsReported(ctx, photo.ID, viewer.ID)
	require.NoError(t, err)
	assert.True(t, reported)
}

func TestTogglesRequireLivePhoto(t *testing.T) {
	f := newGalleryFixture()
	user := f.addUser(t)
	photo := f.seedPublicPhoto(t, user.ID, time.Now().UTC())

	ctx := context.Background()
	assert.ErrorIs(t, f.svc.SetFavourite(ctx, 9999, user.ID, true), ErrPhotoNotFound)
	assert.ErrorIs(t, f.svc.SetReport(ctx, 9999, user.ID, true), ErrPhotoNotFound)

	require.NoError(t, f.photos.SoftDelete(ctx, photo.ID, time.Now().UTC()))
	assert.ErrorIs(t, f.svc.SetFavourite(ctx, photo.ID, user.ID, true), ErrPhotoNotFound)
}
