package market

import (
	"fmt"
	"math/big"
)

// CreateOffer places a standing bid for an asset. The full bid amount is
// escrowed from the buyer into the vault atomically with record creation;
// there is no two-phase funding. A zero expiry defaults to
// DefaultOfferExpirySeconds from now. Several Active offers may target the
// same asset independently.
func (e *Engine) CreateOffer(buyer [20]byte, asset [32]byte, amount *big.Int, expiry int64, nonce uint64) (*Offer, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	now := e.now()
	if expiry == 0 {
		expiry = now + DefaultOfferExpirySeconds
	}
	if expiry < now {
		return nil, fmt.Errorf("%w: expiry before creation time", ErrExpired)
	}
	id := OfferID(asset, buyer, nonce)
	if existing, found := e.state.OfferGet(id); found && existing.Status == OfferActive {
		if existing.Amount.Cmp(amount) == 0 && existing.Expiry == expiry {
			return existing.Clone(), nil
		}
		return nil, fmt.Errorf("%w: active offer exists with different terms", ErrInvalidState)
	}
	if err := e.transferFunds(buyer, e.state.VaultAddress(), amount); err != nil {
		return nil, err
	}
	if err := e.state.VaultCredit(id, amount); err != nil {
		return nil, err
	}
	offer := &Offer{
		ID:        id,
		Asset:     asset,
		Buyer:     buyer,
		Amount:    cloneBigInt(amount),
		Nonce:     nonce,
		CreatedAt: now,
		Expiry:    expiry,
		Status:    OfferActive,
	}
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	e.emit(NewOfferCreatedEvent(offer))
	return offer.Clone(), nil
}

// CancelOffer unwinds an Active offer, returning the escrowed funds to the
// buyer. Only the buyer may cancel.
func (e *Engine) CancelOffer(id [32]byte, caller [20]byte) error {
	if err := e.guard(); err != nil {
		return err
	}
	offer, err := e.loadOffer(id)
	if err != nil {
		return err
	}
	if offer.Status != OfferActive {
		return fmt.Errorf("%w: offer is %s", ErrInvalidState, offer.Status)
	}
	if caller != offer.Buyer {
		return fmt.Errorf("%w: only buyer may cancel", ErrUnauthorized)
	}
	return e.refundOffer(offer, OfferCancelled)
}

// ReclaimOffer refunds an expired offer to its buyer. Caller-agnostic once
// the deadline passes, so funds cannot be stranded by an unresponsive buyer.
func (e *Engine) ReclaimOffer(id [32]byte, now int64) error {
	if err := e.guard(); err != nil {
		return err
	}
	offer, err := e.loadOffer(id)
	if err != nil {
		return err
	}
	if offer.Status != OfferActive {
		return fmt.Errorf("%w: offer is %s", ErrInvalidState, offer.Status)
	}
	if !expired(offer.Expiry, now) {
		return fmt.Errorf("%w: offer deadline not reached", ErrNotExpired)
	}
	return e.refundOffer(offer, OfferExpired)
}

// refundOffer releases the full vault balance back to the buyer and stamps
// the terminal status in the same step.
func (e *Engine) refundOffer(offer *Offer, status OfferStatus) error {
	balance, err := e.state.VaultBalance(offer.ID)
	if err != nil {
		return err
	}
	if balance.Sign() > 0 {
		if err := e.transferFunds(e.state.VaultAddress(), offer.Buyer, balance); err != nil {
			return err
		}
		if err := e.state.VaultDebit(offer.ID, balance); err != nil {
			return err
		}
	}
	offer.Status = status
	if err := e.state.OfferPut(offer); err != nil {
		return err
	}
	switch status {
	case OfferCancelled:
		e.emit(NewOfferCancelledEvent(offer))
	case OfferExpired:
		e.emit(NewOfferExpiredEvent(offer))
	}
	return nil
}

// offerBalance asserts the no-drift invariant: an Active offer's vault entry
// must hold exactly the amount escrowed at creation.
func (e *Engine) offerBalance(offer *Offer) (*big.Int, error) {
	balance, err := e.state.VaultBalance(offer.ID)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(offer.Amount) != 0 {
		return nil, fmt.Errorf("market: vault balance %s drifted from offer amount %s", balance, offer.Amount)
	}
	return balance, nil
}
