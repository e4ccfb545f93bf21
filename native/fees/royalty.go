package fees

import (
	"nftlend/crypto"
	"nftlend/native/common"
)

// CreatorPayout is the share of a royalty owed to one creator.
type CreatorPayout struct {
	Address crypto.Address
	Amount  uint64
}

// RoyaltySplit describes how a sale amount is divided between creators and
// the seller.
type RoyaltySplit struct {
	Amount          uint64
	TotalFee        uint64
	Payouts         []CreatorPayout
	RemainingFee    uint64
	RemainingAmount uint64
}

// SellerProceeds is what the seller receives: the amount net of royalties
// plus the rounding remainder of the creator split.
func (s RoyaltySplit) SellerProceeds() uint64 {
	return s.RemainingAmount + s.RemainingFee
}

// CreatorTotal sums the creator payouts.
func (s RoyaltySplit) CreatorTotal() uint64 {
	var total uint64
	for _, payout := range s.Payouts {
		total += payout.Amount
	}
	return total
}

// SplitRoyalties divides amount according to the royalty rate and creator
// shares. Each creator receives floor(total_fee*share/100); the remainder of
// the fee is returned to the seller side.
func SplitRoyalties(amount uint64, sellerFeeBP uint16, creators []common.Creator) (RoyaltySplit, error) {
	totalFee, err := FeeFromBasisPoints(amount, uint64(sellerFeeBP))
	if err != nil {
		return RoyaltySplit{}, err
	}
	remainingAmount, err := CheckedSub(amount, totalFee)
	if err != nil {
		return RoyaltySplit{}, err
	}
	split := RoyaltySplit{Amount: amount, TotalFee: totalFee, RemainingAmount: remainingAmount}
	remainingFee := totalFee
	for _, creator := range creators {
		scaled, err := CheckedMul(totalFee, uint64(creator.Share))
		if err != nil {
			return RoyaltySplit{}, err
		}
		fee := scaled / 100
		remainingFee, err = CheckedSub(remainingFee, fee)
		if err != nil {
			return RoyaltySplit{}, err
		}
		if fee == 0 {
			continue
		}
		split.Payouts = append(split.Payouts, CreatorPayout{Address: creator.Address, Amount: fee})
	}
	split.RemainingFee = remainingFee
	return split, nil
}
