package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"bazaar/crypto"
	"bazaar/native/market"
	"bazaar/native/royalty"
)

// Policy is the marketplace-wide fee configuration, loaded from YAML. Rates
// are basis points; referral rates are carved out of the marketplace fee.
type Policy struct {
	Treasury          string   `yaml:"treasury"`
	FeeBps            uint32   `yaml:"feeBps"`
	BuyerReferralBps  uint32   `yaml:"buyerReferralBps"`
	SellerReferralBps uint32   `yaml:"sellerReferralBps"`
	Paused            []string `yaml:"paused"`
}

// LoadPolicy reads and validates the policy file.
func LoadPolicy(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read policy %s: %w", path, err)
	}
	policy := &Policy{}
	if err := yaml.Unmarshal(raw, policy); err != nil {
		return nil, fmt.Errorf("config: parse policy %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// Validate rejects rates past 100% and referral carve-outs exceeding the fee.
func (p *Policy) Validate() error {
	if strings.TrimSpace(p.Treasury) == "" {
		return fmt.Errorf("config: policy treasury address required")
	}
	if _, err := crypto.DecodeAddress(p.Treasury); err != nil {
		return fmt.Errorf("config: policy treasury: %w", err)
	}
	if p.FeeBps > royalty.BpsDenominator {
		return fmt.Errorf("config: feeBps %d out of range", p.FeeBps)
	}
	if uint64(p.BuyerReferralBps)+uint64(p.SellerReferralBps) > uint64(p.FeeBps) {
		return fmt.Errorf("config: referral bps exceed feeBps")
	}
	return nil
}

// FeePolicy converts the policy into the engine's representation.
func (p *Policy) FeePolicy() (market.FeePolicy, error) {
	treasury, err := crypto.DecodeAddress(p.Treasury)
	if err != nil {
		return market.FeePolicy{}, err
	}
	return market.FeePolicy{
		Treasury:          treasury.Bytes(),
		FeeBps:            p.FeeBps,
		BuyerReferralBps:  p.BuyerReferralBps,
		SellerReferralBps: p.SellerReferralBps,
	}, nil
}
