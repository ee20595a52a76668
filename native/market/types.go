package market

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ListingStatus tracks the listing lifecycle. Active is the only non-terminal
// state; every terminal transition releases the vault entry in the same step.
type ListingStatus uint8

const (
	ListingActive ListingStatus = iota + 1
	ListingMatched
	ListingCancelled
	ListingExpired
)

// Valid reports whether the status is within the supported range.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingMatched, ListingCancelled, ListingExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status allows no further transitions.
func (s ListingStatus) Terminal() bool {
	return s.Valid() && s != ListingActive
}

func (s ListingStatus) String() string {
	switch s {
	case ListingActive:
		return "active"
	case ListingMatched:
		return "matched"
	case ListingCancelled:
		return "cancelled"
	case ListingExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// OfferStatus mirrors ListingStatus for buyer-side records.
type OfferStatus uint8

const (
	OfferActive OfferStatus = iota + 1
	OfferAccepted
	OfferCancelled
	OfferExpired
)

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferActive, OfferAccepted, OfferCancelled, OfferExpired:
		return true
	default:
		return false
	}
}

func (s OfferStatus) Terminal() bool {
	return s.Valid() && s != OfferActive
}

func (s OfferStatus) String() string {
	switch s {
	case OfferActive:
		return "active"
	case OfferAccepted:
		return "accepted"
	case OfferCancelled:
		return "cancelled"
	case OfferExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Listing is a seller's standing commitment to sell one specific asset at a
// fixed price. While Active the asset sits in the market vault under the
// listing's exclusive control. Expiry of zero means the listing never expires.
type Listing struct {
	ID        [32]byte
	Asset     [32]byte
	Seller    [20]byte
	Price     *big.Int
	CreatedAt int64
	Expiry    int64
	Status    ListingStatus
}

// Clone returns a deep copy so callers can mutate freely.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// SanitizeListing validates and normalises a listing, returning a clone with a
// non-nil price.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("market: nil listing")
	}
	clone := l.Clone()
	if clone.Price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("market: invalid listing status: %d", clone.Status)
	}
	return clone, nil
}

// Offer is a buyer's standing commitment to buy a specific asset at a stated
// amount. The full amount is escrowed in the vault while Active; partial
// funding is never allowed.
type Offer struct {
	ID        [32]byte
	Asset     [32]byte
	Buyer     [20]byte
	Amount    *big.Int
	Nonce     uint64
	CreatedAt int64
	Expiry    int64
	Status    OfferStatus
}

// Clone returns a deep copy of the offer.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// SanitizeOffer validates and normalises an offer.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil offer")
	}
	clone := o.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("market: invalid offer status: %d", clone.Status)
	}
	return clone, nil
}

// ListingID derives the stable identifier for a listing. One seller can hold
// at most one listing per asset, so relisting after a terminal state reuses
// the slot.
func ListingID(asset [32]byte, seller [20]byte) [32]byte {
	return ethcrypto.Keccak256Hash(asset[:], seller[:])
}

// OfferID derives the stable identifier for an offer. The nonce keeps
// simultaneous offers by the same buyer for the same asset from colliding.
func OfferID(asset [32]byte, buyer [20]byte, nonce uint64) [32]byte {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return ethcrypto.Keccak256Hash(asset[:], buyer[:], n[:])
}
