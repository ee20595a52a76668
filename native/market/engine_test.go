package market

import (
	"errors"
	"math/big"
	"testing"

	"bazaar/core/events"
	"bazaar/core/types"
	nativecommon "bazaar/native/common"
	"bazaar/native/royalty"
)

type mockState struct {
	vault     [20]byte
	listings  map[[32]byte]*Listing
	offers    map[[32]byte]*Offer
	funds     map[[32]byte]*big.Int
	vaulted   map[[32]byte][32]byte
	holders   map[[32]byte][20]byte
	royalties map[[32]byte]royalty.Schedule
	accounts  map[[20]byte]*types.Account
}

func newMockState() *mockState {
	var vault [20]byte
	vault[0] = 0xff
	return &mockState{
		vault:     vault,
		listings:  make(map[[32]byte]*Listing),
		offers:    make(map[[32]byte]*Offer),
		funds:     make(map[[32]byte]*big.Int),
		vaulted:   make(map[[32]byte][32]byte),
		holders:   make(map[[32]byte][20]byte),
		royalties: make(map[[32]byte]royalty.Schedule),
		accounts:  make(map[[20]byte]*types.Account),
	}
}

func (m *mockState) ListingPut(l *Listing) error {
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return err
	}
	m.listings[sanitized.ID] = sanitized
	return nil
}

func (m *mockState) ListingGet(id [32]byte) (*Listing, bool) {
	l, ok := m.listings[id]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

func (m *mockState) OfferPut(o *Offer) error {
	sanitized, err := SanitizeOffer(o)
	if err != nil {
		return err
	}
	m.offers[sanitized.ID] = sanitized
	return nil
}

func (m *mockState) OfferGet(id [32]byte) (*Offer, bool) {
	o, ok := m.offers[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

func (m *mockState) VaultAddress() [20]byte { return m.vault }

func (m *mockState) VaultCredit(record [32]byte, amount *big.Int) error {
	balance, ok := m.funds[record]
	if !ok {
		balance = big.NewInt(0)
	}
	m.funds[record] = new(big.Int).Add(balance, amount)
	return nil
}

func (m *mockState) VaultDebit(record [32]byte, amount *big.Int) error {
	balance, ok := m.funds[record]
	if !ok || balance.Cmp(amount) < 0 {
		return errors.New("mock: vault entry underfunded")
	}
	balance = new(big.Int).Sub(balance, amount)
	if balance.Sign() == 0 {
		delete(m.funds, record)
		return nil
	}
	m.funds[record] = balance
	return nil
}

func (m *mockState) VaultBalance(record [32]byte) (*big.Int, error) {
	balance, ok := m.funds[record]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (m *mockState) VaultBindAsset(record [32]byte, asset [32]byte) error {
	m.vaulted[record] = asset
	return nil
}

func (m *mockState) VaultAsset(record [32]byte) ([32]byte, bool, error) {
	asset, ok := m.vaulted[record]
	return asset, ok, nil
}

func (m *mockState) VaultReleaseAsset(record [32]byte) error {
	delete(m.vaulted, record)
	return nil
}

func (m *mockState) AssetHolder(asset [32]byte) ([20]byte, bool, error) {
	holder, ok := m.holders[asset]
	return holder, ok, nil
}

func (m *mockState) TransferAsset(asset [32]byte, from, to [20]byte) error {
	holder, ok := m.holders[asset]
	if !ok {
		return errors.New("mock: unknown asset")
	}
	if holder != from {
		return errors.New("mock: sender is not holder")
	}
	m.holders[asset] = to
	return nil
}

func (m *mockState) AssetRoyalties(asset [32]byte) (royalty.Schedule, error) {
	return m.royalties[asset].Clone(), nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	acc, ok := m.accounts[key]
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = account.Clone()
	return nil
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

func (m *mockState) balance(addr [20]byte) int64 {
	acc, ok := m.accounts[addr]
	if !ok {
		return 0
	}
	return acc.Balance.Int64()
}

var (
	seller   = testAddr(0x01)
	buyer    = testAddr(0x02)
	treasury = testAddr(0x03)
	creator  = testAddr(0x04)
	stranger = testAddr(0x05)
	asset    = testAsset(0xaa)
)

func testAddr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func testAsset(b byte) [32]byte {
	var a [32]byte
	a[31] = b
	return a
}

func newTestEngine(t *testing.T, now int64) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	state.holders[asset] = seller
	state.royalties[asset] = royalty.Schedule{{Recipient: creator, Bps: 500}}
	eng := NewEngine()
	eng.SetState(state)
	eng.SetNowFunc(func() int64 { return now })
	eng.SetPolicy(FeePolicy{Treasury: treasury, FeeBps: 250, BuyerReferralBps: 50, SellerReferralBps: 50})
	return eng, state
}

func TestCreateListingMovesAssetToVault(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if listing.Status != ListingActive {
		t.Fatalf("status = %s, want active", listing.Status)
	}
	if state.holders[asset] != state.vault {
		t.Fatal("asset should be held by the vault")
	}
	if bound, ok := state.vaulted[listing.ID]; !ok || bound != asset {
		t.Fatal("vault entry should bind the asset to the listing")
	}
}

func TestCreateListingRejectsNonOwner(t *testing.T) {
	eng, _ := newTestEngine(t, 1000)
	if _, err := eng.CreateListing(stranger, asset, big.NewInt(100), 0); !errors.Is(err, ErrNotAssetOwner) {
		t.Fatalf("err = %v, want ErrNotAssetOwner", err)
	}
}

func TestCreateListingRejectsBadPriceAndExpiry(t *testing.T) {
	eng, _ := newTestEngine(t, 1000)
	if _, err := eng.CreateListing(seller, asset, big.NewInt(0), 0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("err = %v, want ErrInvalidPrice", err)
	}
	if _, err := eng.CreateListing(seller, asset, nil, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("err = %v, want ErrInvalidPrice", err)
	}
	if _, err := eng.CreateListing(seller, asset, big.NewInt(100), 500); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired for past expiry", err)
	}
}

func TestCreateListingIdempotentOnIdenticalTerms(t *testing.T) {
	eng, _ := newTestEngine(t, 1000)
	first, err := eng.CreateListing(seller, asset, big.NewInt(100), 2000)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	second, err := eng.CreateListing(seller, asset, big.NewInt(100), 2000)
	if err != nil {
		t.Fatalf("identical re-create should succeed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("identical re-create should return the same record")
	}
	if _, err := eng.CreateListing(seller, asset, big.NewInt(120), 2000); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState for conflicting terms", err)
	}
}

func TestCancelListingReturnsAsset(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if err := eng.CancelListing(listing.ID, stranger); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if err := eng.CancelListing(listing.ID, seller); err != nil {
		t.Fatalf("cancel listing: %v", err)
	}
	if state.holders[asset] != seller {
		t.Fatal("asset should return to the seller")
	}
	if stored, _ := state.ListingGet(listing.ID); stored.Status != ListingCancelled {
		t.Fatalf("status = %s, want cancelled", stored.Status)
	}
	// Terminal records reject a second cancel outright.
	if err := eng.CancelListing(listing.ID, seller); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestReclaimListingRequiresExpiry(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 2000)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if err := eng.ReclaimListing(listing.ID, 1500); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("err = %v, want ErrNotExpired", err)
	}
	if err := eng.ReclaimListing(listing.ID, 2001); err != nil {
		t.Fatalf("reclaim after deadline: %v", err)
	}
	if state.holders[asset] != seller {
		t.Fatal("asset should return to the seller")
	}
	if stored, _ := state.ListingGet(listing.ID); stored.Status != ListingExpired {
		t.Fatalf("status = %s, want expired", stored.Status)
	}
}

func TestCreateOfferEscrowsFullAmount(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 500)
	offer, err := eng.CreateOffer(buyer, asset, big.NewInt(80), 2000, 1)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if got := state.balance(buyer); got != 420 {
		t.Fatalf("buyer balance = %d, want 420", got)
	}
	if got := state.balance(state.vault); got != 80 {
		t.Fatalf("vault balance = %d, want 80", got)
	}
	if balance, _ := state.VaultBalance(offer.ID); balance.Int64() != 80 {
		t.Fatalf("vault entry = %s, want 80", balance)
	}
}

func TestCreateOfferInsufficientFunds(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 50)
	if _, err := eng.CreateOffer(buyer, asset, big.NewInt(80), 2000, 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if got := state.balance(buyer); got != 50 {
		t.Fatalf("buyer balance = %d, want unchanged 50", got)
	}
}

func TestCreateOfferDefaultExpiry(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 500)
	offer, err := eng.CreateOffer(buyer, asset, big.NewInt(80), 0, 1)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if offer.Expiry != 1000+DefaultOfferExpirySeconds {
		t.Fatalf("expiry = %d, want default applied", offer.Expiry)
	}
}

func TestCancelOfferRefundsBuyer(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 500)
	offer, err := eng.CreateOffer(buyer, asset, big.NewInt(80), 2000, 1)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if err := eng.CancelOffer(offer.ID, stranger); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if err := eng.CancelOffer(offer.ID, buyer); err != nil {
		t.Fatalf("cancel offer: %v", err)
	}
	if got := state.balance(buyer); got != 500 {
		t.Fatalf("buyer balance = %d, want full refund 500", got)
	}
	if err := eng.CancelOffer(offer.ID, buyer); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestReclaimOfferAnyCaller(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 500)
	offer, err := eng.CreateOffer(buyer, asset, big.NewInt(80), 2000, 1)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if err := eng.ReclaimOffer(offer.ID, 1999); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("err = %v, want ErrNotExpired", err)
	}
	if err := eng.ReclaimOffer(offer.ID, 2001); err != nil {
		t.Fatalf("reclaim offer: %v", err)
	}
	if got := state.balance(buyer); got != 500 {
		t.Fatalf("buyer balance = %d, want full refund 500", got)
	}
	if stored, _ := state.OfferGet(offer.ID); stored.Status != OfferExpired {
		t.Fatalf("status = %s, want expired", stored.Status)
	}
}

func TestInstantBuySplitsPrice(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	receipt, err := eng.InstantBuy(listing.ID, buyer, big.NewInt(100), Referrals{})
	if err != nil {
		t.Fatalf("instant buy: %v", err)
	}
	// 5% royalty = 5, 2.5% fee = 2, seller keeps the remainder.
	if got := state.balance(creator); got != 5 {
		t.Fatalf("creator balance = %d, want 5", got)
	}
	if got := state.balance(treasury); got != 2 {
		t.Fatalf("treasury balance = %d, want 2", got)
	}
	if got := state.balance(seller); got != 93 {
		t.Fatalf("seller balance = %d, want 93", got)
	}
	if got := state.balance(buyer); got != 900 {
		t.Fatalf("buyer balance = %d, want 900", got)
	}
	if got := state.balance(state.vault); got != 0 {
		t.Fatalf("vault balance = %d, want 0 after settlement", got)
	}
	if state.holders[asset] != buyer {
		t.Fatal("asset should belong to the buyer")
	}
	if receipt.Total().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("receipt total = %s, want 100", receipt.Total())
	}
	if stored, _ := state.ListingGet(listing.ID); stored.Status != ListingMatched {
		t.Fatalf("status = %s, want matched", stored.Status)
	}
}

func TestInstantBuyPriceMismatch(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if _, err := eng.InstantBuy(listing.ID, buyer, big.NewInt(99), Referrals{}); !errors.Is(err, ErrPriceMismatch) {
		t.Fatalf("err = %v, want ErrPriceMismatch", err)
	}
	if _, err := eng.InstantBuy(listing.ID, buyer, big.NewInt(101), Referrals{}); !errors.Is(err, ErrPriceMismatch) {
		t.Fatalf("err = %v, want ErrPriceMismatch", err)
	}
}

func TestInstantBuySecondBuyerLoses(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	state.fund(stranger, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if _, err := eng.InstantBuy(listing.ID, buyer, big.NewInt(100), Referrals{}); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if _, err := eng.InstantBuy(listing.ID, stranger, big.NewInt(100), Referrals{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState for second buy", err)
	}
	if got := state.balance(stranger); got != 1000 {
		t.Fatalf("losing buyer balance = %d, want unchanged 1000", got)
	}
}

func TestInstantBuyExpiredListing(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 1500)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	eng.SetNowFunc(func() int64 { return 1501 })
	if _, err := eng.InstantBuy(listing.ID, buyer, big.NewInt(100), Referrals{}); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestInstantBuyPaysReferrals(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 100_000)
	buyerRef := testAddr(0x06)
	sellerRef := testAddr(0x07)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(10_000), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	receipt, err := eng.InstantBuy(listing.ID, buyer, big.NewInt(10_000), Referrals{Buyer: buyerRef, Seller: sellerRef})
	if err != nil {
		t.Fatalf("instant buy: %v", err)
	}
	// fee 250bp = 250 total, minus 50bp to each referrer.
	if got := state.balance(buyerRef); got != 50 {
		t.Fatalf("buyer referrer balance = %d, want 50", got)
	}
	if got := state.balance(sellerRef); got != 50 {
		t.Fatalf("seller referrer balance = %d, want 50", got)
	}
	if got := state.balance(treasury); got != 150 {
		t.Fatalf("treasury balance = %d, want 150", got)
	}
	if receipt.Total().Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("receipt total = %s, want 10000", receipt.Total())
	}
}

func TestAcceptOfferSettlesAtOfferAmount(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	state.fund(stranger, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	offer, err := eng.CreateOffer(buyer, asset, big.NewInt(80), 2000, 1)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	other, err := eng.CreateOffer(stranger, asset, big.NewInt(70), 2000, 1)
	if err != nil {
		t.Fatalf("create second offer: %v", err)
	}
	if _, err := eng.AcceptOffer(listing.ID, offer.ID, stranger, Referrals{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized for non-seller", err)
	}
	receipt, err := eng.AcceptOffer(listing.ID, offer.ID, seller, Referrals{})
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}
	if receipt.Price.Int64() != 80 {
		t.Fatalf("settlement price = %s, want offer amount 80", receipt.Price)
	}
	// 5% of 80 = 4 royalty, 2.5% of 80 = 2 fee.
	if got := state.balance(creator); got != 4 {
		t.Fatalf("creator balance = %d, want 4", got)
	}
	if got := state.balance(treasury); got != 2 {
		t.Fatalf("treasury balance = %d, want 2", got)
	}
	if got := state.balance(seller); got != 74 {
		t.Fatalf("seller balance = %d, want 74", got)
	}
	if state.holders[asset] != buyer {
		t.Fatal("asset should belong to the offer's buyer")
	}
	// The losing offer stays live with its escrow intact.
	if stored, _ := state.OfferGet(other.ID); stored.Status != OfferActive {
		t.Fatalf("other offer status = %s, want active", stored.Status)
	}
	if balance, _ := state.VaultBalance(other.ID); balance.Int64() != 70 {
		t.Fatalf("other offer escrow = %s, want 70", balance)
	}
	if stored, _ := state.ListingGet(listing.ID); stored.Status != ListingMatched {
		t.Fatalf("listing status = %s, want matched", stored.Status)
	}
	if stored, _ := state.OfferGet(offer.ID); stored.Status != OfferAccepted {
		t.Fatalf("offer status = %s, want accepted", stored.Status)
	}
}

func TestAcceptOfferRejectsExpiredOffer(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	offer, err := eng.CreateOffer(buyer, asset, big.NewInt(80), 1500, 1)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	eng.SetNowFunc(func() int64 { return 1501 })
	if _, err := eng.AcceptOffer(listing.ID, offer.ID, seller, Referrals{}); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	// The expired escrow remains reclaimable by anyone.
	if err := eng.ReclaimOffer(offer.ID, 1501); err != nil {
		t.Fatalf("reclaim expired offer: %v", err)
	}
	if got := state.balance(buyer); got != 1000 {
		t.Fatalf("buyer balance = %d, want full refund 1000", got)
	}
}

func TestAcceptOfferRejectsAssetMismatch(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	otherAsset := testAsset(0xbb)
	state.holders[otherAsset] = seller
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	offer, err := eng.CreateOffer(buyer, otherAsset, big.NewInt(80), 2000, 1)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := eng.AcceptOffer(listing.ID, offer.ID, seller, Referrals{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState for asset mismatch", err)
	}
}

func TestAcceptBareOfferRequiresHolder(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	offer, err := eng.CreateOffer(buyer, asset, big.NewInt(80), 2000, 1)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := eng.AcceptBareOffer(offer.ID, stranger, Referrals{}); !errors.Is(err, ErrNotAssetOwner) {
		t.Fatalf("err = %v, want ErrNotAssetOwner", err)
	}
	receipt, err := eng.AcceptBareOffer(offer.ID, seller, Referrals{})
	if err != nil {
		t.Fatalf("accept bare offer: %v", err)
	}
	if receipt.Price.Int64() != 80 {
		t.Fatalf("settlement price = %s, want 80", receipt.Price)
	}
	if state.holders[asset] != buyer {
		t.Fatal("asset should move directly from seller to buyer")
	}
	if got := state.balance(seller); got != 74 {
		t.Fatalf("seller balance = %d, want 74", got)
	}
	if stored, _ := state.OfferGet(offer.ID); stored.Status != OfferAccepted {
		t.Fatalf("offer status = %s, want accepted", stored.Status)
	}
	if got := state.balance(state.vault); got != 0 {
		t.Fatalf("vault balance = %d, want 0 after settlement", got)
	}
}

func TestPausedModuleRejectsOperations(t *testing.T) {
	eng, _ := newTestEngine(t, 1000)
	eng.SetPauses(nativecommon.NewPauseSet([]string{"market"}))
	if _, err := eng.CreateListing(seller, asset, big.NewInt(100), 0); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("err = %v, want ErrModulePaused", err)
	}
}

func TestEngineEmitsEvents(t *testing.T) {
	eng, state := newTestEngine(t, 1000)
	state.fund(buyer, 1000)
	var seen []string
	eng.SetEmitter(emitterFunc(func(evt *types.Event) {
		seen = append(seen, evt.Type)
	}))
	listing, err := eng.CreateListing(seller, asset, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if _, err := eng.InstantBuy(listing.ID, buyer, big.NewInt(100), Referrals{}); err != nil {
		t.Fatalf("instant buy: %v", err)
	}
	want := []string{EventTypeListingCreated, EventTypeListingMatched, EventTypeSettled}
	if len(seen) != len(want) {
		t.Fatalf("events = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events = %v, want %v", seen, want)
		}
	}
}

type emitterFunc func(*types.Event)

func (f emitterFunc) Emit(c events.Carrier) {
	f(c.Event())
}
