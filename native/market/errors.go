package market

import "errors"

// Sentinel errors forming the marketplace failure taxonomy. Every precondition
// failure aborts the whole operation; callers can distinguish retryable
// outcomes (a lost race, a record not yet expired) from permanent ones with
// errors.Is.
var (
	// ErrNotFound means the referenced listing or offer does not exist.
	ErrNotFound = errors.New("market: record not found")
	// ErrUnauthorized means the caller lacks authority over the record.
	ErrUnauthorized = errors.New("market: unauthorized caller")
	// ErrInvalidState means the record is not in the state the operation
	// requires, including already-terminal records and race losers.
	ErrInvalidState = errors.New("market: invalid record state")
	// ErrExpired means the record's deadline has passed, whether or not the
	// expiry reclamation has run yet.
	ErrExpired = errors.New("market: record expired")
	// ErrNotExpired rejects a premature expiry reclamation.
	ErrNotExpired = errors.New("market: record not expired")
	// ErrInvalidPrice rejects a non-positive price or bid amount.
	ErrInvalidPrice = errors.New("market: price must be positive")
	// ErrPriceMismatch means the supplied settlement amount disagrees with
	// the listing price.
	ErrPriceMismatch = errors.New("market: price mismatch")
	// ErrInsufficientFunds means the buyer's balance cannot cover the
	// escrow deposit.
	ErrInsufficientFunds = errors.New("market: insufficient funds")
	// ErrTransferDenied means the asset ledger refused a custody move.
	ErrTransferDenied = errors.New("market: asset transfer denied")
	// ErrNotAssetOwner means the caller does not hold the asset it is
	// trying to list or settle.
	ErrNotAssetOwner = errors.New("market: caller does not hold asset")
)
