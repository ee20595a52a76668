package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"bazaar/storage"
)

// Manager is one ledger transaction: reads fall through a pending overlay to
// the backing database, writes stay in the overlay until Commit. Discarding
// the manager discards every write, which gives each marketplace operation
// its all-or-nothing property.
type Manager struct {
	db      storage.Database
	pending map[string][]byte
	deleted map[string]struct{}
}

// NewManager opens a fresh transaction over the database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

var (
	accountPrefix    = []byte("account:")
	listingPrefix    = []byte("market/listing:")
	offerPrefix      = []byte("market/offer:")
	vaultFundsPrefix = []byte("market/vault/funds:")
	vaultAssetPrefix = []byte("market/vault/asset:")
	assetPrefix      = []byte("asset/meta:")
	genesisFlagKey   = []byte("genesis/applied")
)

func prefixedKey(prefix, suffix []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(suffix))
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) getRaw(key []byte) ([]byte, bool, error) {
	if value, ok := m.pending[string(key)]; ok {
		return value, true, nil
	}
	if _, ok := m.deleted[string(key)]; ok {
		return nil, false, nil
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) putRaw(key, value []byte) {
	delete(m.deleted, string(key))
	m.pending[string(key)] = append([]byte(nil), value...)
}

func (m *Manager) deleteRaw(key []byte) {
	delete(m.pending, string(key))
	m.deleted[string(key)] = struct{}{}
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	raw, ok, err := m.getRaw(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %x: %w", key[:8], err)
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %x: %w", key[:8], err)
	}
	m.putRaw(key, encoded)
	return nil
}

// Commit flushes every pending write to the backing database. Writes are
// applied in deterministic key order so two nodes replaying the same
// operations touch storage identically.
func (m *Manager) Commit() error {
	keys := make([]string, 0, len(m.pending)+len(m.deleted))
	for k := range m.pending {
		keys = append(keys, k)
	}
	for k := range m.deleted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if value, ok := m.pending[k]; ok {
			if err := m.db.Put([]byte(k), value); err != nil {
				return err
			}
			continue
		}
		if err := m.db.Delete([]byte(k)); err != nil {
			return err
		}
	}
	m.Discard()
	return nil
}

// Discard drops every pending write, leaving the database untouched.
func (m *Manager) Discard() {
	m.pending = make(map[string][]byte)
	m.deleted = make(map[string]struct{})
}

// GenesisApplied reports whether the genesis allocation has run.
func (m *Manager) GenesisApplied() (bool, error) {
	_, ok, err := m.getRaw(prefixedKey(genesisFlagKey, nil))
	return ok, err
}

// MarkGenesisApplied stamps the genesis flag.
func (m *Manager) MarkGenesisApplied() {
	m.putRaw(prefixedKey(genesisFlagKey, nil), []byte{1})
}
