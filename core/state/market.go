package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"bazaar/native/market"
)

// vaultAddress is the module account holding every escrowed asset and fund.
// Derived from a fixed seed so it has no known private key.
var vaultAddress = func() [20]byte {
	var addr [20]byte
	hash := ethcrypto.Keccak256([]byte("bazaar/market/vault"))
	copy(addr[:], hash[12:])
	return addr
}()

// VaultAddress returns the market module's vault account.
func (m *Manager) VaultAddress() [20]byte { return vaultAddress }

type storedListing struct {
	Asset     [32]byte
	Seller    [20]byte
	Price     *big.Int
	CreatedAt uint64
	Expiry    uint64
	Status    uint8
}

type storedOffer struct {
	Asset     [32]byte
	Buyer     [20]byte
	Amount    *big.Int
	Nonce     uint64
	CreatedAt uint64
	Expiry    uint64
	Status    uint8
}

// ListingPut sanitizes and persists a listing record.
func (m *Manager) ListingPut(l *market.Listing) error {
	sanitized, err := market.SanitizeListing(l)
	if err != nil {
		return err
	}
	return m.putRLP(prefixedKey(listingPrefix, sanitized.ID[:]), &storedListing{
		Asset:     sanitized.Asset,
		Seller:    sanitized.Seller,
		Price:     sanitized.Price,
		CreatedAt: uint64(sanitized.CreatedAt),
		Expiry:    uint64(sanitized.Expiry),
		Status:    uint8(sanitized.Status),
	})
}

// ListingGet loads a listing by identifier.
func (m *Manager) ListingGet(id [32]byte) (*market.Listing, bool) {
	var stored storedListing
	ok, err := m.getRLP(prefixedKey(listingPrefix, id[:]), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &market.Listing{
		ID:        id,
		Asset:     stored.Asset,
		Seller:    stored.Seller,
		Price:     stored.Price,
		CreatedAt: int64(stored.CreatedAt),
		Expiry:    int64(stored.Expiry),
		Status:    market.ListingStatus(stored.Status),
	}, true
}

// OfferPut sanitizes and persists an offer record.
func (m *Manager) OfferPut(o *market.Offer) error {
	sanitized, err := market.SanitizeOffer(o)
	if err != nil {
		return err
	}
	return m.putRLP(prefixedKey(offerPrefix, sanitized.ID[:]), &storedOffer{
		Asset:     sanitized.Asset,
		Buyer:     sanitized.Buyer,
		Amount:    sanitized.Amount,
		Nonce:     sanitized.Nonce,
		CreatedAt: uint64(sanitized.CreatedAt),
		Expiry:    uint64(sanitized.Expiry),
		Status:    uint8(sanitized.Status),
	})
}

// OfferGet loads an offer by identifier.
func (m *Manager) OfferGet(id [32]byte) (*market.Offer, bool) {
	var stored storedOffer
	ok, err := m.getRLP(prefixedKey(offerPrefix, id[:]), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &market.Offer{
		ID:        id,
		Asset:     stored.Asset,
		Buyer:     stored.Buyer,
		Amount:    stored.Amount,
		Nonce:     stored.Nonce,
		CreatedAt: int64(stored.CreatedAt),
		Expiry:    int64(stored.Expiry),
		Status:    market.OfferStatus(stored.Status),
	}, true
}

// VaultBalance reports the funds escrowed under a record, zero when the entry
// does not exist.
func (m *Manager) VaultBalance(record [32]byte) (*big.Int, error) {
	var balance big.Int
	ok, err := m.getRLP(prefixedKey(vaultFundsPrefix, record[:]), &balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &balance, nil
}

// VaultCredit adds escrowed funds to a record's vault entry.
func (m *Manager) VaultCredit(record [32]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: vault credit must be non-negative")
	}
	balance, err := m.VaultBalance(record)
	if err != nil {
		return err
	}
	balance = new(big.Int).Add(balance, amount)
	return m.putRLP(prefixedKey(vaultFundsPrefix, record[:]), balance)
}

// VaultDebit removes escrowed funds from a record's vault entry, deleting the
// entry when it reaches zero. Overdrawing is a hard error.
func (m *Manager) VaultDebit(record [32]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: vault debit must be non-negative")
	}
	balance, err := m.VaultBalance(record)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("state: vault entry %x underfunded: %s < %s", record[:8], balance, amount)
	}
	balance = new(big.Int).Sub(balance, amount)
	key := prefixedKey(vaultFundsPrefix, record[:])
	if balance.Sign() == 0 {
		m.deleteRaw(key)
		return nil
	}
	return m.putRLP(key, balance)
}

// VaultBindAsset records that an asset is held by the vault on behalf of the
// given record.
func (m *Manager) VaultBindAsset(record [32]byte, asset [32]byte) error {
	return m.putRLP(prefixedKey(vaultAssetPrefix, record[:]), &asset)
}

// VaultAsset returns the asset bound to a record, if any.
func (m *Manager) VaultAsset(record [32]byte) ([32]byte, bool, error) {
	var asset [32]byte
	ok, err := m.getRLP(prefixedKey(vaultAssetPrefix, record[:]), &asset)
	if err != nil || !ok {
		return [32]byte{}, false, err
	}
	return asset, true, nil
}

// VaultReleaseAsset removes the record's asset binding.
func (m *Manager) VaultReleaseAsset(record [32]byte) error {
	m.deleteRaw(prefixedKey(vaultAssetPrefix, record[:]))
	return nil
}
