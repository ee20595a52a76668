package market

import (
	"encoding/hex"
	"strconv"

	"bazaar/core/types"
	"bazaar/native/royalty"
)

const (
	EventTypeListingCreated   = "market.listing.created"
	EventTypeListingCancelled = "market.listing.cancelled"
	EventTypeListingExpired   = "market.listing.expired"
	EventTypeListingMatched   = "market.listing.matched"
	EventTypeOfferCreated     = "market.offer.created"
	EventTypeOfferCancelled   = "market.offer.cancelled"
	EventTypeOfferExpired     = "market.offer.expired"
	EventTypeOfferAccepted    = "market.offer.accepted"
	EventTypeSettled          = "market.settled"
)

// NewListingCreatedEvent returns the canonical payload for a new listing.
func NewListingCreatedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingCreated, l, nil)
}

// NewListingCancelledEvent returns the payload for a seller cancellation.
func NewListingCancelledEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingCancelled, l, nil)
}

// NewListingExpiredEvent returns the payload for an expiry reclamation.
func NewListingExpiredEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingExpired, l, nil)
}

// NewListingMatchedEvent returns the payload emitted when a listing settles.
func NewListingMatchedEvent(l *Listing, buyer [20]byte) *types.Event {
	return newListingEvent(EventTypeListingMatched, l, &buyer)
}

// NewOfferCreatedEvent returns the canonical payload for a new offer.
func NewOfferCreatedEvent(o *Offer) *types.Event {
	return newOfferEvent(EventTypeOfferCreated, o)
}

// NewOfferCancelledEvent returns the payload for a buyer cancellation.
func NewOfferCancelledEvent(o *Offer) *types.Event {
	return newOfferEvent(EventTypeOfferCancelled, o)
}

// NewOfferExpiredEvent returns the payload for an expiry reclamation.
func NewOfferExpiredEvent(o *Offer) *types.Event {
	return newOfferEvent(EventTypeOfferExpired, o)
}

// NewOfferAcceptedEvent returns the payload emitted when an offer settles.
func NewOfferAcceptedEvent(o *Offer) *types.Event {
	return newOfferEvent(EventTypeOfferAccepted, o)
}

// NewSettledEvent records the audited split of one settlement.
func NewSettledEvent(asset [32]byte, seller, buyer [20]byte, receipt *royalty.Receipt) *types.Event {
	attrs := map[string]string{
		"asset":  hex.EncodeToString(asset[:]),
		"seller": hex.EncodeToString(seller[:]),
		"buyer":  hex.EncodeToString(buyer[:]),
	}
	if receipt != nil {
		attrs["price"] = receipt.Price.String()
		attrs["sellerProceeds"] = receipt.SellerProceeds.String()
		attrs["fee"] = receipt.Fee.String()
		if receipt.BuyerReferral.Sign() > 0 {
			attrs["buyerReferral"] = receipt.BuyerReferral.String()
		}
		if receipt.SellerReferral.Sign() > 0 {
			attrs["sellerReferral"] = receipt.SellerReferral.String()
		}
		attrs["royaltyCount"] = strconv.Itoa(len(receipt.Royalties))
		for i, p := range receipt.Royalties {
			attrs["royalty."+strconv.Itoa(i)+".recipient"] = hex.EncodeToString(p.Recipient[:])
			attrs["royalty."+strconv.Itoa(i)+".amount"] = p.Amount.String()
		}
	}
	return &types.Event{Type: EventTypeSettled, Attributes: attrs}
}

func newListingEvent(eventType string, l *Listing, buyer *[20]byte) *types.Event {
	attrs := make(map[string]string)
	if l != nil {
		attrs["id"] = hex.EncodeToString(l.ID[:])
		attrs["asset"] = hex.EncodeToString(l.Asset[:])
		attrs["seller"] = hex.EncodeToString(l.Seller[:])
		attrs["price"] = l.Price.String()
		attrs["status"] = l.Status.String()
		attrs["createdAt"] = strconv.FormatInt(l.CreatedAt, 10)
		if l.Expiry > 0 {
			attrs["expiry"] = strconv.FormatInt(l.Expiry, 10)
		}
	}
	if buyer != nil {
		attrs["buyer"] = hex.EncodeToString(buyer[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newOfferEvent(eventType string, o *Offer) *types.Event {
	attrs := make(map[string]string)
	if o != nil {
		attrs["id"] = hex.EncodeToString(o.ID[:])
		attrs["asset"] = hex.EncodeToString(o.Asset[:])
		attrs["buyer"] = hex.EncodeToString(o.Buyer[:])
		attrs["amount"] = o.Amount.String()
		attrs["status"] = o.Status.String()
		attrs["createdAt"] = strconv.FormatInt(o.CreatedAt, 10)
		attrs["expiry"] = strconv.FormatInt(o.Expiry, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
