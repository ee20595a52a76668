package state

import (
	"math/big"

	"bazaar/core/types"
)

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount loads the account for addr, returning a zeroed account when none
// exists yet.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.getRLP(prefixedKey(accountPrefix, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return types.EnsureAccount(&types.Account{Nonce: stored.Nonce, Balance: stored.Balance}), nil
}

// PutAccount persists the account under addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	account = types.EnsureAccount(account)
	return m.putRLP(prefixedKey(accountPrefix, addr), &storedAccount{
		Nonce:   account.Nonce,
		Balance: account.Balance,
	})
}
