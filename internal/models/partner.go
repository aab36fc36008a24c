package models

import "fmt"

// PartnerLink identifies the photo exchanged against this one. It is a
// three-valued link: unset (no pairing attempt resolved yet, or the attempt
// found no partner), pending (a partner search is in flight), or a concrete
// partner photo id. Using a tagged value instead of magic sentinel ids keeps
// the illegal combinations out of the type.
type PartnerLink struct {
	kind partnerKind
	id   int64
}

type partnerKind uint8

const (
	partnerUnset partnerKind = iota
	partnerPending
	partnerSet
)

// NoPartner returns the link of a photo with no resolved partner.
func NoPartner() PartnerLink {
	return PartnerLink{kind: partnerUnset}
}

// PendingPartner returns the link of a photo whose partner search is in
// flight.
func PendingPartner() PartnerLink {
	return PartnerLink{kind: partnerPending}
}

// PartnerOf returns a link to a concrete partner photo.
func PartnerOf(photoID int64) PartnerLink {
	return PartnerLink{kind: partnerSet, id: photoID}
}

// IsUnset reports whether no partner is linked and no search is in flight.
func (l PartnerLink) IsUnset() bool { return l.kind == partnerUnset }

// IsPending reports whether a partner search is in flight.
func (l PartnerLink) IsPending() bool { return l.kind == partnerPending }

// PhotoID returns the linked partner photo id, if one is set.
func (l PartnerLink) PhotoID() (int64, bool) {
	return l.id, l.kind == partnerSet
}

func (l PartnerLink) String() string {
	switch l.kind {
	case partnerPending:
		return "pending"
	case partnerSet:
		return fmt.Sprintf("photo:%d", l.id)
	default:
		return "unset"
	}
}

// PartnerLinkFor rebuilds a link from a photo's persisted exchange state and
// nullable partner id column, rejecting combinations that violate the state
// machine invariants.
func PartnerLinkFor(state ExchangeState, partnerID *int64) (PartnerLink, error) {
	switch state {
	case StateReadyToExchange:
		if partnerID != nil {
			return PartnerLink{}, fmt.Errorf("ready photo has partner id %d", *partnerID)
		}
		return NoPartner(), nil
	case StateExchanging:
		if partnerID != nil {
			return PartnerLink{}, fmt.Errorf("exchanging photo has partner id %d", *partnerID)
		}
		return PendingPartner(), nil
	case StateExchanged:
		if partnerID == nil {
			return PartnerLink{}, fmt.Errorf("exchanged photo has no partner id")
		}
		return PartnerOf(*partnerID), nil
	default:
		return PartnerLink{}, fmt.Errorf("unknown exchange state %q", state)
	}
}
