package market

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"bazaar/core/events"
	"bazaar/core/types"
	nativecommon "bazaar/native/common"
	"bazaar/native/royalty"
)

const moduleName = "market"

// DefaultOfferExpirySeconds is applied when an offer is created with a zero
// expiry, so abandoned bids cannot lock funds forever.
const DefaultOfferExpirySeconds int64 = 7 * 24 * 3600

var (
	errNilState    = errors.New("market engine: state not configured")
	errNilTreasury = errors.New("market engine: fee treasury not configured")
)

// engineState is the ledger surface the engine mutates. One atomic
// transaction backs every operation; the implementation re-validates nothing
// itself, it only moves what the engine tells it to.
type engineState interface {
	ListingPut(*Listing) error
	ListingGet(id [32]byte) (*Listing, bool)
	OfferPut(*Offer) error
	OfferGet(id [32]byte) (*Offer, bool)

	// Vault entries. Funds entries track escrowed currency per record,
	// asset entries bind an asset to its owning record.
	VaultAddress() [20]byte
	VaultCredit(record [32]byte, amount *big.Int) error
	VaultDebit(record [32]byte, amount *big.Int) error
	VaultBalance(record [32]byte) (*big.Int, error)
	VaultBindAsset(record [32]byte, asset [32]byte) error
	VaultAsset(record [32]byte) ([32]byte, bool, error)
	VaultReleaseAsset(record [32]byte) error

	// Asset ledger capability.
	AssetHolder(asset [32]byte) ([20]byte, bool, error)
	TransferAsset(asset [32]byte, from, to [20]byte) error
	AssetRoyalties(asset [32]byte) (royalty.Schedule, error)

	// Currency ledger capability.
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// FeePolicy is the marketplace-wide fee configuration. Referral rates are
// carved out of the marketplace fee on settlements that name a referrer.
type FeePolicy struct {
	Treasury          [20]byte
	FeeBps            uint32
	BuyerReferralBps  uint32
	SellerReferralBps uint32
}

// Referrals optionally names the parties credited with sourcing a settlement.
// Zero addresses leave the corresponding carve-out in the treasury fee.
type Referrals struct {
	Buyer  [20]byte
	Seller [20]byte
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine wires listing, offer and settlement logic to external state and
// event emission. It holds no record data itself: the ledger transaction it
// is bound to carries all state, so a fresh engine per transaction is cheap.
type Engine struct {
	state   engineState
	emitter events.Emitter
	policy  FeePolicy
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewEngine creates a market engine with a no-op emitter and wall-clock time.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPolicy configures the marketplace fee policy.
func (e *Engine) SetPolicy(policy FeePolicy) { e.policy = policy }

// SetPauses configures the pause switches consulted before every operation.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) guard() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// expired reports whether a deadline has passed. Zero deadlines never expire.
// Expiry is advisory until reclaimed, so every operation calls this against
// the wall clock instead of trusting the stored status.
func expired(deadline, now int64) bool {
	return deadline > 0 && now > deadline
}

func (e *Engine) loadListing(id [32]byte) (*Listing, error) {
	listing, ok := e.state.ListingGet(id)
	if !ok {
		return nil, fmt.Errorf("%w: listing %x", ErrNotFound, id[:8])
	}
	return listing, nil
}

func (e *Engine) loadOffer(id [32]byte) (*Offer, error) {
	offer, ok := e.state.OfferGet(id)
	if !ok {
		return nil, fmt.Errorf("%w: offer %x", ErrNotFound, id[:8])
	}
	return offer, nil
}

// transferFunds moves settlement currency between two accounts. A zero amount
// is a no-op; a shortfall fails with ErrInsufficientFunds and no effect.
func (e *Engine) transferFunds(from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("market: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = types.EnsureAccount(fromAcc)
	toAcc = types.EnsureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: balance %s short of %s", ErrInsufficientFunds, fromAcc.Balance, amt)
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// moveAsset shifts custody on the asset ledger, mapping refusals onto the
// marketplace taxonomy.
func (e *Engine) moveAsset(asset [32]byte, from, to [20]byte) error {
	if err := e.state.TransferAsset(asset, from, to); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferDenied, err)
	}
	return nil
}
