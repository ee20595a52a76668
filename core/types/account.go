package types

import "math/big"

// Account is the ledger-side record for a participant: a replay nonce and a
// balance in the settlement currency.
type Account struct {
	Nonce   uint64
	Balance *big.Int
}

// EnsureAccount returns a usable account value with a non-nil balance,
// allocating a fresh zero account when acc is nil.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := &Account{Nonce: a.Nonce, Balance: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}
