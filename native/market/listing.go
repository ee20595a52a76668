package market

import (
	"fmt"
	"math/big"
)

// CreateListing posts an asset for sale at a fixed price. The asset moves
// from the seller into the market vault atomically with record creation.
// Re-submitting an identical Active listing is idempotent; a conflicting
// definition under the same identifier fails ErrInvalidState. A terminal
// listing slot may be reused to relist the asset.
func (e *Engine) CreateListing(seller [20]byte, asset [32]byte, price *big.Int, expiry int64) (*Listing, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	now := e.now()
	if expiry != 0 && expiry < now {
		return nil, fmt.Errorf("%w: expiry before creation time", ErrExpired)
	}
	holder, ok, err := e.state.AssetHolder(asset)
	if err != nil {
		return nil, err
	}
	if !ok || holder != seller {
		return nil, fmt.Errorf("%w: asset %x", ErrNotAssetOwner, asset[:8])
	}
	id := ListingID(asset, seller)
	if existing, found := e.state.ListingGet(id); found && existing.Status == ListingActive {
		if existing.Price.Cmp(price) == 0 && existing.Expiry == expiry {
			return existing.Clone(), nil
		}
		return nil, fmt.Errorf("%w: active listing exists with different terms", ErrInvalidState)
	}
	if err := e.moveAsset(asset, seller, e.state.VaultAddress()); err != nil {
		return nil, err
	}
	if err := e.state.VaultBindAsset(id, asset); err != nil {
		return nil, err
	}
	listing := &Listing{
		ID:        id,
		Asset:     asset,
		Seller:    seller,
		Price:     cloneBigInt(price),
		CreatedAt: now,
		Expiry:    expiry,
		Status:    ListingActive,
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emit(NewListingCreatedEvent(listing))
	return listing.Clone(), nil
}

// CancelListing unwinds an Active listing. Only the seller may cancel;
// cancelling a terminal record fails ErrInvalidState with no side effects.
func (e *Engine) CancelListing(id [32]byte, caller [20]byte) error {
	if err := e.guard(); err != nil {
		return err
	}
	listing, err := e.loadListing(id)
	if err != nil {
		return err
	}
	if listing.Status != ListingActive {
		return fmt.Errorf("%w: listing is %s", ErrInvalidState, listing.Status)
	}
	if caller != listing.Seller {
		return fmt.Errorf("%w: only seller may cancel", ErrUnauthorized)
	}
	return e.releaseListing(listing, ListingCancelled)
}

// ReclaimListing returns an expired listing's asset to the seller. Anyone may
// trigger it once the deadline has passed; an early call fails ErrNotExpired.
func (e *Engine) ReclaimListing(id [32]byte, now int64) error {
	if err := e.guard(); err != nil {
		return err
	}
	listing, err := e.loadListing(id)
	if err != nil {
		return err
	}
	if listing.Status != ListingActive {
		return fmt.Errorf("%w: listing is %s", ErrInvalidState, listing.Status)
	}
	if !expired(listing.Expiry, now) {
		return fmt.Errorf("%w: listing deadline not reached", ErrNotExpired)
	}
	return e.releaseListing(listing, ListingExpired)
}

// releaseListing hands the vaulted asset back to the seller and stamps the
// terminal status in one step, so the record can never go terminal while its
// vault entry is still held.
func (e *Engine) releaseListing(listing *Listing, status ListingStatus) error {
	asset, ok, err := e.state.VaultAsset(listing.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("market: vault entry missing for listing %x", listing.ID[:8])
	}
	if err := e.moveAsset(asset, e.state.VaultAddress(), listing.Seller); err != nil {
		return err
	}
	if err := e.state.VaultReleaseAsset(listing.ID); err != nil {
		return err
	}
	listing.Status = status
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	switch status {
	case ListingCancelled:
		e.emit(NewListingCancelledEvent(listing))
	case ListingExpired:
		e.emit(NewListingExpiredEvent(listing))
	}
	return nil
}
