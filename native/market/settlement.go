package market

import (
	"fmt"
	"math/big"

	"bazaar/native/royalty"
)

// InstantBuy executes a listing at its exact price with fresh funds from the
// caller; no pre-existing offer is consumed. The supplied amount must equal
// the listing price (ErrPriceMismatch otherwise). On success the asset leaves
// the vault for the buyer, the price is split among seller, treasury and
// royalty recipients, and the listing goes Matched. Of two concurrent buys
// only one can observe the listing Active; the loser fails ErrInvalidState.
func (e *Engine) InstantBuy(listingID [32]byte, buyer [20]byte, amount *big.Int, refs Referrals) (*royalty.Receipt, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	listing, err := e.loadListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != ListingActive {
		return nil, fmt.Errorf("%w: listing is %s", ErrInvalidState, listing.Status)
	}
	if expired(listing.Expiry, e.now()) {
		return nil, fmt.Errorf("%w: listing deadline passed", ErrExpired)
	}
	if amount == nil || listing.Price.Cmp(amount) != 0 {
		return nil, fmt.Errorf("%w: listing price is %s", ErrPriceMismatch, listing.Price)
	}
	// Escrow the fresh deposit under the listing's vault entry so the
	// settlement core always pays out of the vault.
	if err := e.transferFunds(buyer, e.state.VaultAddress(), listing.Price); err != nil {
		return nil, err
	}
	if err := e.state.VaultCredit(listingID, listing.Price); err != nil {
		return nil, err
	}
	receipt, err := e.settle(settlement{
		fundsRecord: listingID,
		asset:       listing.Asset,
		seller:      listing.Seller,
		buyer:       buyer,
		price:       listing.Price,
		assetRecord: &listingID,
		referrals:   refs,
	})
	if err != nil {
		return nil, err
	}
	listing.Status = ListingMatched
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emit(NewListingMatchedEvent(listing, buyer))
	e.emit(NewSettledEvent(listing.Asset, listing.Seller, buyer, receipt))
	return receipt, nil
}

// AcceptOffer lets a listing's seller settle against a standing offer. The
// settlement price is the offer's escrowed amount, not the listing price.
// Which offer wins is solely the seller's explicit choice; every other offer
// on the asset stays Active until separately cancelled or expired.
func (e *Engine) AcceptOffer(listingID, offerID [32]byte, caller [20]byte, refs Referrals) (*royalty.Receipt, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	listing, err := e.loadListing(listingID)
	if err != nil {
		return nil, err
	}
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return nil, err
	}
	if caller != listing.Seller {
		return nil, fmt.Errorf("%w: only seller may accept", ErrUnauthorized)
	}
	if listing.Status != ListingActive {
		return nil, fmt.Errorf("%w: listing is %s", ErrInvalidState, listing.Status)
	}
	if offer.Status != OfferActive {
		return nil, fmt.Errorf("%w: offer is %s", ErrInvalidState, offer.Status)
	}
	now := e.now()
	if expired(listing.Expiry, now) {
		return nil, fmt.Errorf("%w: listing deadline passed", ErrExpired)
	}
	if expired(offer.Expiry, now) {
		return nil, fmt.Errorf("%w: offer deadline passed", ErrExpired)
	}
	if offer.Asset != listing.Asset {
		return nil, fmt.Errorf("%w: offer targets a different asset", ErrInvalidState)
	}
	price, err := e.offerBalance(offer)
	if err != nil {
		return nil, err
	}
	receipt, err := e.settle(settlement{
		fundsRecord: offerID,
		asset:       listing.Asset,
		seller:      listing.Seller,
		buyer:       offer.Buyer,
		price:       price,
		assetRecord: &listingID,
		referrals:   refs,
	})
	if err != nil {
		return nil, err
	}
	listing.Status = ListingMatched
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	offer.Status = OfferAccepted
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	e.emit(NewListingMatchedEvent(listing, offer.Buyer))
	e.emit(NewOfferAcceptedEvent(offer))
	e.emit(NewSettledEvent(listing.Asset, listing.Seller, offer.Buyer, receipt))
	return receipt, nil
}

// AcceptBareOffer settles a standing offer directly against an asset the
// caller holds outside any listing. Custody is proven at settlement time by
// the asset ledger, not by a stored record.
func (e *Engine) AcceptBareOffer(offerID [32]byte, caller [20]byte, refs Referrals) (*royalty.Receipt, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != OfferActive {
		return nil, fmt.Errorf("%w: offer is %s", ErrInvalidState, offer.Status)
	}
	if expired(offer.Expiry, e.now()) {
		return nil, fmt.Errorf("%w: offer deadline passed", ErrExpired)
	}
	holder, ok, err := e.state.AssetHolder(offer.Asset)
	if err != nil {
		return nil, err
	}
	if !ok || holder != caller {
		return nil, fmt.Errorf("%w: asset %x", ErrNotAssetOwner, offer.Asset[:8])
	}
	price, err := e.offerBalance(offer)
	if err != nil {
		return nil, err
	}
	receipt, err := e.settle(settlement{
		fundsRecord: offerID,
		asset:       offer.Asset,
		seller:      caller,
		buyer:       offer.Buyer,
		price:       price,
		referrals:   refs,
	})
	if err != nil {
		return nil, err
	}
	offer.Status = OfferAccepted
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	e.emit(NewOfferAcceptedEvent(offer))
	e.emit(NewSettledEvent(offer.Asset, caller, offer.Buyer, receipt))
	return receipt, nil
}

// settlement describes one match for the shared settle core. assetRecord is
// the listing whose vault entry holds the asset, or nil when the seller holds
// the asset directly (bare offer).
type settlement struct {
	fundsRecord [32]byte
	asset       [32]byte
	seller      [20]byte
	buyer       [20]byte
	price       *big.Int
	assetRecord *[32]byte
	referrals   Referrals
}

// settle is the common core behind all three entry points: compute the split,
// move the asset to the buyer, pay every leg out of the vault, and zero the
// funds entry. Callers transition their records afterwards in the same state
// transaction, so the whole match commits or none of it does.
func (e *Engine) settle(s settlement) (*royalty.Receipt, error) {
	if e.policy.Treasury == ([20]byte{}) {
		return nil, errNilTreasury
	}
	schedule, err := e.state.AssetRoyalties(s.asset)
	if err != nil {
		return nil, err
	}
	receipt, err := royalty.Split(royalty.SplitInput{
		Price:             s.price,
		FeeBps:            e.policy.FeeBps,
		BuyerReferralBps:  e.policy.BuyerReferralBps,
		SellerReferralBps: e.policy.SellerReferralBps,
		PayBuyerReferral:  s.referrals.Buyer != ([20]byte{}),
		PaySellerReferral: s.referrals.Seller != ([20]byte{}),
		Schedule:          schedule,
	})
	if err != nil {
		return nil, err
	}
	vault := e.state.VaultAddress()
	if s.assetRecord != nil {
		held, ok, err := e.state.VaultAsset(*s.assetRecord)
		if err != nil {
			return nil, err
		}
		if !ok || held != s.asset {
			return nil, fmt.Errorf("market: vault entry missing for listing %x", s.assetRecord[:8])
		}
		if err := e.moveAsset(s.asset, vault, s.buyer); err != nil {
			return nil, err
		}
		if err := e.state.VaultReleaseAsset(*s.assetRecord); err != nil {
			return nil, err
		}
	} else {
		if err := e.moveAsset(s.asset, s.seller, s.buyer); err != nil {
			return nil, err
		}
	}
	if receipt.SellerProceeds.Sign() > 0 {
		if err := e.transferFunds(vault, s.seller, receipt.SellerProceeds); err != nil {
			return nil, err
		}
	}
	if receipt.Fee.Sign() > 0 {
		if err := e.transferFunds(vault, e.policy.Treasury, receipt.Fee); err != nil {
			return nil, err
		}
	}
	if receipt.BuyerReferral.Sign() > 0 {
		if err := e.transferFunds(vault, s.referrals.Buyer, receipt.BuyerReferral); err != nil {
			return nil, err
		}
	}
	if receipt.SellerReferral.Sign() > 0 {
		if err := e.transferFunds(vault, s.referrals.Seller, receipt.SellerReferral); err != nil {
			return nil, err
		}
	}
	for _, p := range receipt.Royalties {
		if p.Amount.Sign() > 0 {
			if err := e.transferFunds(vault, p.Recipient, p.Amount); err != nil {
				return nil, err
			}
		}
	}
	if err := e.state.VaultDebit(s.fundsRecord, s.price); err != nil {
		return nil, err
	}
	return receipt, nil
}
