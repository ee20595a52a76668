package royalty

import (
	"fmt"
	"math/big"
)

// Payment is one computed payout leg of a settlement.
type Payment struct {
	Recipient [20]byte
	Amount    *big.Int
}

// SplitInput carries everything needed to divide a settlement price. Referral
// rewards are carved out of the marketplace fee, never out of seller proceeds,
// and a referral leg is only paid when the corresponding flag is set.
type SplitInput struct {
	Price             *big.Int
	FeeBps            uint32
	BuyerReferralBps  uint32
	SellerReferralBps uint32
	PayBuyerReferral  bool
	PaySellerReferral bool
	Schedule          Schedule
}

// Receipt records the full division of a settlement price. It is ephemeral:
// engines use it to move funds and stamp events within a single transaction,
// it is never persisted. Invariant: SellerProceeds + Fee + BuyerReferral +
// SellerReferral + sum(Royalties) == Price exactly.
type Receipt struct {
	Price          *big.Int
	SellerProceeds *big.Int
	Fee            *big.Int
	BuyerReferral  *big.Int
	SellerReferral *big.Int
	Royalties      []Payment
}

// Total returns the sum of every leg in the receipt. Used by tests to check
// that no value is created or destroyed.
func (r *Receipt) Total() *big.Int {
	total := new(big.Int).Add(r.SellerProceeds, r.Fee)
	total.Add(total, r.BuyerReferral)
	total.Add(total, r.SellerReferral)
	for _, p := range r.Royalties {
		total.Add(total, p.Amount)
	}
	return total
}

func bpsShare(price *big.Int, bps uint32) *big.Int {
	share := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(bps)))
	return share.Div(share, big.NewInt(BpsDenominator))
}

// Split divides a settlement price among the seller, the marketplace treasury
// and the creator royalty recipients. Pure integer math: each royalty is
// floor(price*bps/10000) computed in schedule order, the fee is floored the
// same way and capped at whatever remains after royalties, and all floor
// remainders accrue to the seller. Deterministic and order-stable for
// identical inputs.
func Split(in SplitInput) (*Receipt, error) {
	if in.Price == nil || in.Price.Sign() <= 0 {
		return nil, fmt.Errorf("royalty: price must be positive")
	}
	if in.FeeBps > BpsDenominator {
		return nil, fmt.Errorf("royalty: fee bps out of range: %d", in.FeeBps)
	}
	if err := in.Schedule.Validate(); err != nil {
		return nil, err
	}
	price := new(big.Int).Set(in.Price)
	receipt := &Receipt{
		Price:          price,
		BuyerReferral:  big.NewInt(0),
		SellerReferral: big.NewInt(0),
	}
	royaltyTotal := big.NewInt(0)
	if len(in.Schedule) > 0 {
		receipt.Royalties = make([]Payment, 0, len(in.Schedule))
		for _, r := range in.Schedule {
			amount := bpsShare(price, r.Bps)
			receipt.Royalties = append(receipt.Royalties, Payment{Recipient: r.Recipient, Amount: amount})
			royaltyTotal.Add(royaltyTotal, amount)
		}
	}
	remaining := new(big.Int).Sub(price, royaltyTotal)
	fee := bpsShare(price, in.FeeBps)
	if fee.Cmp(remaining) > 0 {
		fee = new(big.Int).Set(remaining)
	}
	if in.PayBuyerReferral && in.BuyerReferralBps > 0 {
		ref := bpsShare(price, in.BuyerReferralBps)
		if ref.Cmp(fee) > 0 {
			ref = new(big.Int).Set(fee)
		}
		receipt.BuyerReferral = ref
		fee = new(big.Int).Sub(fee, ref)
	}
	if in.PaySellerReferral && in.SellerReferralBps > 0 {
		ref := bpsShare(price, in.SellerReferralBps)
		if ref.Cmp(fee) > 0 {
			ref = new(big.Int).Set(fee)
		}
		receipt.SellerReferral = ref
		fee = new(big.Int).Sub(fee, ref)
	}
	receipt.Fee = fee
	feeTotal := new(big.Int).Add(fee, receipt.BuyerReferral)
	feeTotal.Add(feeTotal, receipt.SellerReferral)
	receipt.SellerProceeds = new(big.Int).Sub(remaining, feeTotal)
	return receipt, nil
}
