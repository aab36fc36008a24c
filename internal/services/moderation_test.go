package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moderationFixture struct {
	*exchangeFixture
	svc *ModerationService
}

func newModerationFixture() *moderationFixture {
	f := newExchangeFixture()
	return &moderationFixture{
		exchangeFixture: f,
		svc:             NewModerationService(f.bans, f.photos, f.gallery),
	}
}

func TestBanUserCascades(t *testing.T) {
	f := newModerationFixture()
	ctx := context.Background()
	user := f.addUser(t)

	params := locatedUpload(user.ID)
	params.IPHash = "hash-one"
	photo, err := f.exchangeFixture.svc.Upload(ctx, params)
	require.NoError(t, err)

	params.IPHash = "hash-two"
	other, err := f.exchangeFixture.svc.Upload(ctx, params)
	require.NoError(t, err)

	require.NoError(t, f.svc.BanUser(ctx, user.ID))

	// The user is banned directly.
	banned, err := f.svc.IsBanned(ctx, user.ID, "")
	require.NoError(t, err)
	assert.True(t, banned)

	// Every origin hash seen on their uploads is banned too, so a fresh
	// device from the same origin is still locked out.
	banned, err = f.svc.IsBanned(ctx, 9999, "hash-one")
	require.NoError(t, err)
	assert.True(t, banned)
	banned, err = f.svc.IsBanned(ctx, 9999, "hash-two")
	require.NoError(t, err)
	assert.True(t, banned)

	// Their photos are soft-deleted and gone from the gallery immediately.
	for _, id := range []int64{photo.ID, other.ID} {
		stored, err := f.photos.GetByID(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, stored.DeletedOn)
	}
	entries, err := f.gallery.Page(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBanUserBlocksFutureUploads(t *testing.T) {
	f := newModerationFixture()
	ctx := context.Background()
	user := f.addUser(t)

	require.NoError(t, f.svc.BanUser(ctx, user.ID))

	_, err := f.exchangeFixture.svc.Upload(ctx, locatedUpload(user.ID))
	assert.ErrorIs(t, err, ErrBanned)
}

func TestBanPhotoBansOwnerAndOrigin(t *testing.T) {
	f := newModerationFixture()
	ctx := context.Background()
	user := f.addUser(t)

	photo, err := f.exchangeFixture.svc.Upload(ctx, locatedUpload(user.ID))
	require.NoError(t, err)

	require.NoError(t, f.svc.BanPhoto(ctx, photo.Name))

	banned, err := f.svc.IsBanned(ctx, user.ID, "")
	require.NoError(t, err)
	assert.True(t, banned)

	banned, err = f.svc.IsBanned(ctx, 9999, "hash-a")
	require.NoError(t, err)
	assert.True(t, banned)

	stored, err := f.photos.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.DeletedOn)
}

func TestBanPhotoUnknownName(t *testing.T) {
	f := newModerationFixture()
	err := f.svc.BanPhoto(context.Background(), "no-such-photo")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestBanUserLeavesOthersAlone(t *testing.T) {
	f := newModerationFixture()
	ctx := context.Background()
	bad := f.addUser(t)
	good := f.addUser(t)

	goodParams := locatedUpload(good.ID)
	goodParams.IPHash = "hash-good"
	goodPhoto, err := f.exchangeFixture.svc.Upload(ctx, goodParams)
	require.NoError(t, err)

	require.NoError(t, f.svc.BanUser(ctx, bad.ID))

	banned, err := f.svc.IsBanned(ctx, good.ID, "hash-good")
	require.NoError(t, err)
	assert.False(t, banned)

	stored, err := f.photos.GetByID(ctx, goodPhoto.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DeletedOn)
}
