package royalty

import (
	"math/big"
	"testing"
)

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func TestSplitBasic(t *testing.T) {
	receipt, err := Split(SplitInput{
		Price:  big.NewInt(100),
		FeeBps: 250,
		Schedule: Schedule{
			{Recipient: addr(1), Bps: 500},
		},
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got := receipt.Royalties[0].Amount.Int64(); got != 5 {
		t.Fatalf("royalty = %d, want 5", got)
	}
	if got := receipt.Fee.Int64(); got != 2 {
		t.Fatalf("fee = %d, want 2", got)
	}
	if got := receipt.SellerProceeds.Int64(); got != 93 {
		t.Fatalf("seller proceeds = %d, want 93", got)
	}
	if receipt.Total().Cmp(receipt.Price) != 0 {
		t.Fatalf("total %s != price %s", receipt.Total(), receipt.Price)
	}
}

func TestSplitRemaindersAccrueToSeller(t *testing.T) {
	// 3 bps of 999 floors to 0; the full price less the fee goes to the seller.
	receipt, err := Split(SplitInput{
		Price:  big.NewInt(999),
		FeeBps: 100,
		Schedule: Schedule{
			{Recipient: addr(1), Bps: 3},
		},
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got := receipt.Royalties[0].Amount.Int64(); got != 0 {
		t.Fatalf("royalty = %d, want 0", got)
	}
	if got := receipt.Fee.Int64(); got != 9 {
		t.Fatalf("fee = %d, want 9", got)
	}
	if got := receipt.SellerProceeds.Int64(); got != 990 {
		t.Fatalf("seller proceeds = %d, want 990", got)
	}
	if receipt.Total().Cmp(receipt.Price) != 0 {
		t.Fatalf("total %s != price %s", receipt.Total(), receipt.Price)
	}
}

func TestSplitFullRoyaltyCapsFee(t *testing.T) {
	// Royalties consume the full price; the fee is capped at what remains and
	// the seller receives nothing, but no leg goes negative.
	receipt, err := Split(SplitInput{
		Price:  big.NewInt(1000),
		FeeBps: 200,
		Schedule: Schedule{
			{Recipient: addr(1), Bps: 10_000},
		},
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got := receipt.Royalties[0].Amount.Int64(); got != 1000 {
		t.Fatalf("royalty = %d, want 1000", got)
	}
	if receipt.Fee.Sign() != 0 {
		t.Fatalf("fee = %s, want 0", receipt.Fee)
	}
	if receipt.SellerProceeds.Sign() != 0 {
		t.Fatalf("seller proceeds = %s, want 0", receipt.SellerProceeds)
	}
	if receipt.Total().Cmp(receipt.Price) != 0 {
		t.Fatalf("total %s != price %s", receipt.Total(), receipt.Price)
	}
}

func TestSplitReferralsCarvedFromFee(t *testing.T) {
	receipt, err := Split(SplitInput{
		Price:             big.NewInt(10_000),
		FeeBps:            200,
		BuyerReferralBps:  50,
		SellerReferralBps: 50,
		PayBuyerReferral:  true,
		PaySellerReferral: true,
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got := receipt.BuyerReferral.Int64(); got != 50 {
		t.Fatalf("buyer referral = %d, want 50", got)
	}
	if got := receipt.SellerReferral.Int64(); got != 50 {
		t.Fatalf("seller referral = %d, want 50", got)
	}
	if got := receipt.Fee.Int64(); got != 100 {
		t.Fatalf("fee = %d, want 100", got)
	}
	if got := receipt.SellerProceeds.Int64(); got != 9800 {
		t.Fatalf("seller proceeds = %d, want 9800", got)
	}
	if receipt.Total().Cmp(receipt.Price) != 0 {
		t.Fatalf("total %s != price %s", receipt.Total(), receipt.Price)
	}
}

func TestSplitReferralSkippedWithoutReferrer(t *testing.T) {
	receipt, err := Split(SplitInput{
		Price:            big.NewInt(10_000),
		FeeBps:           200,
		BuyerReferralBps: 50,
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if receipt.BuyerReferral.Sign() != 0 {
		t.Fatalf("buyer referral = %s, want 0", receipt.BuyerReferral)
	}
	if got := receipt.Fee.Int64(); got != 200 {
		t.Fatalf("fee = %d, want 200", got)
	}
}

func TestSplitOrderStable(t *testing.T) {
	in := SplitInput{
		Price:  big.NewInt(12345),
		FeeBps: 175,
		Schedule: Schedule{
			{Recipient: addr(1), Bps: 333},
			{Recipient: addr(2), Bps: 167},
		},
	}
	first, err := Split(in)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	second, err := Split(in)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(first.Royalties) != len(second.Royalties) {
		t.Fatalf("royalty leg count changed between runs")
	}
	for i := range first.Royalties {
		if first.Royalties[i].Recipient != second.Royalties[i].Recipient {
			t.Fatalf("royalty order changed at %d", i)
		}
		if first.Royalties[i].Amount.Cmp(second.Royalties[i].Amount) != 0 {
			t.Fatalf("royalty amount changed at %d", i)
		}
	}
	if first.SellerProceeds.Cmp(second.SellerProceeds) != 0 {
		t.Fatalf("seller proceeds changed between runs")
	}
}

func TestSplitRejectsBadInputs(t *testing.T) {
	if _, err := Split(SplitInput{Price: big.NewInt(0), FeeBps: 100}); err == nil {
		t.Fatal("expected error for zero price")
	}
	if _, err := Split(SplitInput{Price: big.NewInt(100), FeeBps: 10_001}); err == nil {
		t.Fatal("expected error for fee bps above denominator")
	}
}

func TestScheduleValidate(t *testing.T) {
	over := Schedule{
		{Recipient: addr(1), Bps: 6000},
		{Recipient: addr(2), Bps: 5000},
	}
	if err := over.Validate(); err == nil {
		t.Fatal("expected error when schedule exceeds 10000 bps")
	}
	zero := Schedule{{Bps: 100}}
	if err := zero.Validate(); err == nil {
		t.Fatal("expected error for zero recipient")
	}
	exact := Schedule{
		{Recipient: addr(1), Bps: 4000},
		{Recipient: addr(2), Bps: 6000},
	}
	if err := exact.Validate(); err != nil {
		t.Fatalf("schedule at exactly 10000 bps should validate: %v", err)
	}
}
