package core

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"bazaar/core/events"
	"bazaar/core/state"
	"bazaar/core/types"
	nativecommon "bazaar/native/common"
	"bazaar/native/market"
	"bazaar/native/royalty"
	"bazaar/observability/metrics"
	"bazaar/storage"
)

// Node serializes marketplace operations against the ledger. Each operation
// runs inside its own state transaction: preconditions are validated under the
// node lock, writes land in the transaction overlay, and Commit applies
// everything or nothing. Events buffered during the transaction are published
// only after the commit succeeds.
type Node struct {
	mu      sync.Mutex
	db      storage.Database
	policy  market.FeePolicy
	pauses  nativecommon.PauseView
	bus     *events.Bus
	metrics *metrics.Market
	nowFn   func() int64
}

// NewNode constructs a node over the given database.
func NewNode(db storage.Database, policy market.FeePolicy, pauses nativecommon.PauseView) *Node {
	return &Node{
		db:      db,
		policy:  policy,
		pauses:  pauses,
		bus:     events.NewBus(),
		metrics: metrics.NewMarket(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the node clock, primarily for tests.
func (n *Node) SetNowFunc(now func() int64) {
	if now == nil {
		n.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	n.nowFn = now
}

// Events exposes the committed-event bus for subscribers.
func (n *Node) Events() *events.Bus { return n.bus }

func (n *Node) now() int64 { return n.nowFn() }

// withTransaction runs fn against a fresh state transaction under the node
// lock and commits on success. The overlay is simply dropped on failure, so a
// rejected operation leaves no trace.
func (n *Node) withTransaction(fn func(*state.Manager, *market.Engine) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	mgr := state.NewManager(n.db)
	buf := &events.Buffer{}
	eng := market.NewEngine()
	eng.SetState(mgr)
	eng.SetEmitter(buf)
	eng.SetNowFunc(n.nowFn)
	eng.SetPolicy(n.policy)
	eng.SetPauses(n.pauses)
	if err := fn(mgr, eng); err != nil {
		mgr.Discard()
		return err
	}
	if err := mgr.Commit(); err != nil {
		return err
	}
	for _, evt := range buf.Drain() {
		n.bus.Publish(evt)
	}
	return nil
}

// withView runs fn against a transaction that is never committed.
func (n *Node) withView(fn func(*state.Manager) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn(state.NewManager(n.db))
}

func (n *Node) countFailure(err error) {
	if err != nil {
		n.metrics.FailedOps.WithLabelValues(errorKind(err)).Inc()
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, market.ErrNotFound):
		return "not_found"
	case errors.Is(err, market.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, market.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, market.ErrExpired):
		return "expired"
	case errors.Is(err, market.ErrNotExpired):
		return "not_expired"
	case errors.Is(err, market.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, market.ErrPriceMismatch):
		return "price_mismatch"
	case errors.Is(err, market.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, market.ErrTransferDenied):
		return "transfer_denied"
	case errors.Is(err, market.ErrNotAssetOwner):
		return "not_asset_owner"
	case errors.Is(err, royalty.ErrInvalidSchedule):
		return "invalid_royalty_schedule"
	case errors.Is(err, nativecommon.ErrModulePaused):
		return "paused"
	default:
		return "internal"
	}
}

// CreateListing posts an asset for sale.
func (n *Node) CreateListing(seller [20]byte, asset [32]byte, price *big.Int, expiry int64) (*market.Listing, error) {
	var listing *market.Listing
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		var err error
		listing, err = eng.CreateListing(seller, asset, price, expiry)
		return err
	})
	if err != nil {
		n.countFailure(err)
		return nil, err
	}
	n.metrics.ListingsCreated.Inc()
	return listing, nil
}

// CancelListing unwinds an active listing on behalf of its seller.
func (n *Node) CancelListing(id [32]byte, caller [20]byte) error {
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		return eng.CancelListing(id, caller)
	})
	if err != nil {
		n.countFailure(err)
		return err
	}
	n.metrics.Cancellations.WithLabelValues("listing").Inc()
	return nil
}

// ReclaimListing returns an expired listing's asset to its seller. Anyone may
// trigger the reclaim.
func (n *Node) ReclaimListing(id [32]byte) error {
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		return eng.ReclaimListing(id, n.now())
	})
	if err != nil {
		n.countFailure(err)
		return err
	}
	n.metrics.Reclamations.WithLabelValues("listing").Inc()
	return nil
}

// CreateOffer places a fully escrowed bid on an asset.
func (n *Node) CreateOffer(buyer [20]byte, asset [32]byte, amount *big.Int, expiry int64, nonce uint64) (*market.Offer, error) {
	var offer *market.Offer
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		var err error
		offer, err = eng.CreateOffer(buyer, asset, amount, expiry, nonce)
		return err
	})
	if err != nil {
		n.countFailure(err)
		return nil, err
	}
	n.metrics.OffersCreated.Inc()
	return offer, nil
}

// CancelOffer unwinds an active offer on behalf of its buyer.
func (n *Node) CancelOffer(id [32]byte, caller [20]byte) error {
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		return eng.CancelOffer(id, caller)
	})
	if err != nil {
		n.countFailure(err)
		return err
	}
	n.metrics.Cancellations.WithLabelValues("offer").Inc()
	return nil
}

// ReclaimOffer refunds an expired offer's escrow to its buyer. Anyone may
// trigger the reclaim.
func (n *Node) ReclaimOffer(id [32]byte) error {
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		return eng.ReclaimOffer(id, n.now())
	})
	if err != nil {
		n.countFailure(err)
		return err
	}
	n.metrics.Reclamations.WithLabelValues("offer").Inc()
	return nil
}

// InstantBuy settles a listing at its exact price with fresh buyer funds.
func (n *Node) InstantBuy(listingID [32]byte, buyer [20]byte, amount *big.Int, refs market.Referrals) (*royalty.Receipt, error) {
	var receipt *royalty.Receipt
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		var err error
		receipt, err = eng.InstantBuy(listingID, buyer, amount, refs)
		return err
	})
	if err != nil {
		n.countFailure(err)
		return nil, err
	}
	n.recordSettlement("instant_buy", receipt)
	return receipt, nil
}

// AcceptOffer settles a listing against a chosen escrowed offer.
func (n *Node) AcceptOffer(listingID, offerID [32]byte, caller [20]byte, refs market.Referrals) (*royalty.Receipt, error) {
	var receipt *royalty.Receipt
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		var err error
		receipt, err = eng.AcceptOffer(listingID, offerID, caller, refs)
		return err
	})
	if err != nil {
		n.countFailure(err)
		return nil, err
	}
	n.recordSettlement("accept_offer", receipt)
	return receipt, nil
}

// AcceptBareOffer settles an offer against an asset held outside any listing.
func (n *Node) AcceptBareOffer(offerID [32]byte, caller [20]byte, refs market.Referrals) (*royalty.Receipt, error) {
	var receipt *royalty.Receipt
	err := n.withTransaction(func(_ *state.Manager, eng *market.Engine) error {
		var err error
		receipt, err = eng.AcceptBareOffer(offerID, caller, refs)
		return err
	})
	if err != nil {
		n.countFailure(err)
		return nil, err
	}
	n.recordSettlement("accept_bare_offer", receipt)
	return receipt, nil
}

func (n *Node) recordSettlement(path string, receipt *royalty.Receipt) {
	n.metrics.Settlements.WithLabelValues(path).Inc()
	if receipt != nil && receipt.Price != nil {
		volume, _ := new(big.Float).SetInt(receipt.Price).Float64()
		n.metrics.SettlementVolume.Add(volume)
	}
}

// RegisterAsset mints a new asset with its royalty schedule.
func (n *Node) RegisterAsset(creator [20]byte, uri string, schedule royalty.Schedule) (*state.Asset, error) {
	var asset *state.Asset
	err := n.withTransaction(func(mgr *state.Manager, _ *market.Engine) error {
		var err error
		asset, err = mgr.RegisterAsset(creator, uri, schedule, n.now())
		return err
	})
	if err != nil {
		n.countFailure(err)
		return nil, err
	}
	return asset, nil
}

// GetAsset returns the asset record, if registered.
func (n *Node) GetAsset(id [32]byte) (*state.Asset, bool, error) {
	var (
		asset *state.Asset
		found bool
	)
	err := n.withView(func(mgr *state.Manager) error {
		var err error
		asset, found, err = mgr.GetAsset(id)
		return err
	})
	return asset, found, err
}

// GetListing returns the listing record, if present.
func (n *Node) GetListing(id [32]byte) (*market.Listing, bool) {
	var (
		listing *market.Listing
		found   bool
	)
	_ = n.withView(func(mgr *state.Manager) error {
		listing, found = mgr.ListingGet(id)
		return nil
	})
	return listing, found
}

// GetOffer returns the offer record, if present.
func (n *Node) GetOffer(id [32]byte) (*market.Offer, bool) {
	var (
		offer *market.Offer
		found bool
	)
	_ = n.withView(func(mgr *state.Manager) error {
		offer, found = mgr.OfferGet(id)
		return nil
	})
	return offer, found
}

// Balance returns the settlement-currency balance for an address.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.withView(func(mgr *state.Manager) error {
		acc, err := mgr.GetAccount(addr[:])
		if err != nil {
			return err
		}
		balance = types.EnsureAccount(acc).Balance
		return nil
	})
	return balance, err
}

// GenesisAsset is one pre-registered asset in the initial ledger.
type GenesisAsset struct {
	Creator  [20]byte
	URI      string
	Schedule royalty.Schedule
}

// ApplyGenesis funds the initial accounts and registers the initial assets.
// Idempotent: a second call against the same database is a no-op.
func (n *Node) ApplyGenesis(accounts map[[20]byte]*big.Int, assets []GenesisAsset) error {
	return n.withTransaction(func(mgr *state.Manager, _ *market.Engine) error {
		applied, err := mgr.GenesisApplied()
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		for addr, balance := range accounts {
			acc, err := mgr.GetAccount(addr[:])
			if err != nil {
				return err
			}
			acc = types.EnsureAccount(acc)
			acc.Balance = new(big.Int).Set(balance)
			if err := mgr.PutAccount(addr[:], acc); err != nil {
				return err
			}
		}
		for _, asset := range assets {
			if _, err := mgr.RegisterAsset(asset.Creator, asset.URI, asset.Schedule, n.now()); err != nil {
				return err
			}
		}
		mgr.MarkGenesisApplied()
		return nil
	})
}
