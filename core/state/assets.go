package state

import (
	"errors"
	"fmt"
	"strings"

	"lukechampine.com/blake3"

	"bazaar/native/royalty"
)

var (
	// ErrAssetNotFound means the asset identifier is unknown to the ledger.
	ErrAssetNotFound = errors.New("state: asset not found")
	// ErrAssetExists rejects re-registration of an already known asset.
	ErrAssetExists = errors.New("state: asset already registered")
	// ErrNotHolder means the from party of a custody move does not hold
	// the asset.
	ErrNotHolder = errors.New("state: sender is not asset holder")
)

// Asset is one registered non-fungible asset: content-addressed identifier,
// immutable creator and royalty schedule, and the current holder.
type Asset struct {
	ID        [32]byte
	Creator   [20]byte
	Holder    [20]byte
	URI       string
	Royalties royalty.Schedule
	CreatedAt int64
}

type storedRoyalty struct {
	Recipient [20]byte
	Bps       uint32
}

type storedAsset struct {
	Creator   [20]byte
	Holder    [20]byte
	URI       string
	Royalties []storedRoyalty
	CreatedAt uint64
}

// AssetID derives the content-addressed identifier from the metadata URI.
func AssetID(uri string) [32]byte {
	return blake3.Sum256([]byte(strings.TrimSpace(uri)))
}

// RegisterAsset mints a new asset under its creator's custody. The royalty
// schedule is fixed at registration and applied to every later settlement.
func (m *Manager) RegisterAsset(creator [20]byte, uri string, schedule royalty.Schedule, now int64) (*Asset, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return nil, fmt.Errorf("state: asset uri required")
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	id := AssetID(trimmed)
	key := prefixedKey(assetPrefix, id[:])
	var existing storedAsset
	if ok, err := m.getRLP(key, &existing); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, trimmed)
	}
	stored := storedAsset{
		Creator:   creator,
		Holder:    creator,
		URI:       trimmed,
		Royalties: toStoredRoyalties(schedule),
		CreatedAt: uint64(now),
	}
	if err := m.putRLP(key, &stored); err != nil {
		return nil, err
	}
	return assetFromStored(id, &stored), nil
}

// GetAsset loads the asset record.
func (m *Manager) GetAsset(id [32]byte) (*Asset, bool, error) {
	var stored storedAsset
	ok, err := m.getRLP(prefixedKey(assetPrefix, id[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return assetFromStored(id, &stored), true, nil
}

// AssetHolder answers the read-only custody query.
func (m *Manager) AssetHolder(id [32]byte) ([20]byte, bool, error) {
	asset, ok, err := m.GetAsset(id)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	return asset.Holder, true, nil
}

// TransferAsset moves custody of the asset. It fails when from is not the
// current holder, which is the structural guarantee behind vault exclusivity.
func (m *Manager) TransferAsset(id [32]byte, from, to [20]byte) error {
	key := prefixedKey(assetPrefix, id[:])
	var stored storedAsset
	ok, err := m.getRLP(key, &stored)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %x", ErrAssetNotFound, id[:8])
	}
	if stored.Holder != from {
		return fmt.Errorf("%w: asset %x", ErrNotHolder, id[:8])
	}
	stored.Holder = to
	return m.putRLP(key, &stored)
}

// AssetRoyalties returns the royalty schedule registered for the asset.
func (m *Manager) AssetRoyalties(id [32]byte) (royalty.Schedule, error) {
	asset, ok, err := m.GetAsset(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrAssetNotFound, id[:8])
	}
	return asset.Royalties, nil
}

func toStoredRoyalties(schedule royalty.Schedule) []storedRoyalty {
	out := make([]storedRoyalty, 0, len(schedule))
	for _, r := range schedule {
		out = append(out, storedRoyalty{Recipient: r.Recipient, Bps: r.Bps})
	}
	return out
}

func assetFromStored(id [32]byte, stored *storedAsset) *Asset {
	schedule := make(royalty.Schedule, 0, len(stored.Royalties))
	for _, r := range stored.Royalties {
		schedule = append(schedule, royalty.Royalty{Recipient: r.Recipient, Bps: r.Bps})
	}
	return &Asset{
		ID:        id,
		Creator:   stored.Creator,
		Holder:    stored.Holder,
		URI:       stored.URI,
		Royalties: schedule,
		CreatedAt: int64(stored.CreatedAt),
	}
}
