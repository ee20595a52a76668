package config

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"bazaar/crypto"
	"bazaar/native/royalty"
)

// Genesis describes the initial ledger contents applied once on an empty
// database: funded accounts and pre-registered assets.
type Genesis struct {
	Accounts []GenesisAccount `yaml:"accounts"`
	Assets   []GenesisAsset   `yaml:"assets"`
}

// GenesisAccount funds one address with an initial balance.
type GenesisAccount struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"`
}

// GenesisAsset registers one asset under its creator with a royalty schedule.
type GenesisAsset struct {
	Creator   string           `yaml:"creator"`
	URI       string           `yaml:"uri"`
	Royalties []GenesisRoyalty `yaml:"royalties"`
}

// GenesisRoyalty is one creator payout rate in a genesis asset.
type GenesisRoyalty struct {
	Recipient string `yaml:"recipient"`
	Bps       uint32 `yaml:"bps"`
}

// LoadGenesis reads and validates the genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read genesis %s: %w", path, err)
	}
	gen := &Genesis{}
	if err := yaml.Unmarshal(raw, gen); err != nil {
		return nil, fmt.Errorf("config: parse genesis %s: %w", path, err)
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	return gen, nil
}

// Validate checks addresses, balances and royalty schedules.
func (g *Genesis) Validate() error {
	for i, acc := range g.Accounts {
		if _, err := crypto.DecodeAddress(acc.Address); err != nil {
			return fmt.Errorf("config: genesis account %d: %w", i, err)
		}
		if _, ok := new(big.Int).SetString(acc.Balance, 10); !ok {
			return fmt.Errorf("config: genesis account %d: invalid balance %q", i, acc.Balance)
		}
	}
	for i, asset := range g.Assets {
		if _, err := crypto.DecodeAddress(asset.Creator); err != nil {
			return fmt.Errorf("config: genesis asset %d: %w", i, err)
		}
		if asset.URI == "" {
			return fmt.Errorf("config: genesis asset %d: uri required", i)
		}
		if _, err := asset.Schedule(); err != nil {
			return fmt.Errorf("config: genesis asset %d: %w", i, err)
		}
	}
	return nil
}

// Schedule converts the asset's royalty entries into the engine schedule.
func (a *GenesisAsset) Schedule() (royalty.Schedule, error) {
	schedule := make(royalty.Schedule, 0, len(a.Royalties))
	for _, r := range a.Royalties {
		recipient, err := crypto.DecodeAddress(r.Recipient)
		if err != nil {
			return nil, err
		}
		schedule = append(schedule, royalty.Royalty{Recipient: recipient.Bytes(), Bps: r.Bps})
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return schedule, nil
}
