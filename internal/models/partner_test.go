package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartnerLinkStates(t *testing.T) {
	unset := NoPartner()
	assert.True(t, unset.IsUnset())
	assert.False(t, unset.IsPending())
	_, ok := unset.PhotoID()
	assert.False(t, ok)

	pending := PendingPartner()
	assert.False(t, pending.IsUnset())
	assert.True(t, pending.IsPending())
	_, ok = pending.PhotoID()
	assert.False(t, ok)

	linked := PartnerOf(7)
	assert.False(t, linked.IsUnset())
	assert.False(t, linked.IsPending())
	id, ok := linked.PhotoID()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestPartnerLinkString(t *testing.T) {
	assert.Equal(t, "unset", NoPartner().String())
	assert.Equal(t, "pending", PendingPartner().String())
	assert.Equal(t, "photo:7", PartnerOf(7).String())
}

func TestPartnerLinkFor(t *testing.T) {
	id := int64(7)

	link, err := PartnerLinkFor(StateReadyToExchange, nil)
	require.NoError(t, err)
	assert.True(t, link.IsUnset())

	link, err = PartnerLinkFor(StateExchanging, nil)
	require.NoError(t, err)
	assert.True(t, link.IsPending())

	link, err = PartnerLinkFor(StateExchanged, &id)
	require.NoError(t, err)
	got, ok := link.PhotoID()
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestPartnerLinkForRejectsIllegalCombinations(t *testing.T) {
	id := int64(7)

	_, err := PartnerLinkFor(StateReadyToExchange, &id)
	assert.Error(t, err)

	_, err = PartnerLinkFor(StateExchanging, &id)
	assert.Error(t, err)

	_, err = PartnerLinkFor(StateExchanged, nil)
	assert.Error(t, err)

	_, err = PartnerLinkFor(ExchangeState("bogus"), nil)
	assert.Error(t, err)
}

func TestPhotoIsAnonymous(t *testing.T) {
	lon, lat := 13.4, 52.5

	assert.True(t, (&Photo{}).IsAnonymous())
	assert.True(t, (&Photo{Lon: &lon}).IsAnonymous())
	assert.False(t, (&Photo{Lon: &lon, Lat: &lat}).IsAnonymous())
}
