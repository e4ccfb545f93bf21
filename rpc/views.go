package rpc

import (
	"nftlend/crypto"
	"nftlend/indexer"
	"nftlend/native/fees"
	"nftlend/native/listings"
	"nftlend/native/pools"
	"nftlend/native/tokenmanager"
)

func addressString(addr crypto.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.String()
}

type LoanResult struct {
	Address     string `json:"address,omitempty"`
	State       string `json:"state"`
	Mint        string `json:"mint"`
	Borrower    string `json:"borrower"`
	Lender      string `json:"lender,omitempty"`
	Amount      string `json:"amount"`
	BasisPoints uint32 `json:"basisPoints"`
	Duration    int64  `json:"duration"`
	StartDate   int64  `json:"startDate,omitempty"`
	DueAt       int64  `json:"dueAt,omitempty"`
}

func loanResult(engine *listings.Engine, loan *listings.Loan) LoanResult {
	res := LoanResult{
		State:       loan.State.String(),
		Mint:        loan.Mint.String(),
		Borrower:    loan.Borrower.String(),
		Lender:      addressString(loan.Lender),
		Amount:      formatLamports(loan.Amount),
		BasisPoints: loan.BasisPoints,
		Duration:    loan.Duration,
		StartDate:   loan.StartDate,
	}
	if loan.StartDate != 0 {
		res.DueAt = loan.DueAt()
	}
	if addr, err := engine.LoanAddress(loan.Mint, loan.Borrower); err == nil {
		res.Address = addr.String()
	}
	return res
}

type RepaymentResult struct {
	Principal  string `json:"principal"`
	AnnualFee  string `json:"annualFee"`
	FeeDivisor string `json:"feeDivisor"`
	ProRataFee string `json:"proRataFee"`
	AmountDue  string `json:"amountDue"`
}

func repaymentResult(r fees.LoanRepayment) RepaymentResult {
	return RepaymentResult{
		Principal:  formatLamports(r.Principal),
		AnnualFee:  formatLamports(r.AnnualFee),
		FeeDivisor: r.FeeDivisor.String(),
		ProRataFee: formatLamports(r.ProRataFee),
		AmountDue:  formatLamports(r.AmountDue),
	}
}

type CallOptionResult struct {
	Address     string `json:"address,omitempty"`
	State       string `json:"state"`
	Mint        string `json:"mint"`
	Seller      string `json:"seller"`
	Buyer       string `json:"buyer,omitempty"`
	Amount      string `json:"amount"`
	StrikePrice string `json:"strikePrice"`
	Expiry      int64  `json:"expiry"`
}

func callOptionResult(engine *listings.Engine, option *listings.CallOption) CallOptionResult {
	res := CallOptionResult{
		State:       option.State.String(),
		Mint:        option.Mint.String(),
		Seller:      option.Seller.String(),
		Buyer:       addressString(option.Buyer),
		Amount:      formatLamports(option.Amount),
		StrikePrice: formatLamports(option.StrikePrice),
		Expiry:      option.Expiry,
	}
	if addr, err := engine.CallOptionAddress(option.Mint, option.Seller); err == nil {
		res.Address = addr.String()
	}
	return res
}

type PayoutResult struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type ExerciseResult struct {
	StrikePrice    string         `json:"strikePrice"`
	Royalties      string         `json:"royalties"`
	SellerProceeds string         `json:"sellerProceeds"`
	Payouts        []PayoutResult `json:"payouts"`
}

func exerciseResult(split fees.RoyaltySplit) ExerciseResult {
	res := ExerciseResult{
		StrikePrice:    formatLamports(split.Amount),
		Royalties:      formatLamports(split.CreatorTotal()),
		SellerProceeds: formatLamports(split.SellerProceeds()),
		Payouts:        make([]PayoutResult, 0, len(split.Payouts)),
	}
	for _, payout := range split.Payouts {
		res.Payouts = append(res.Payouts, PayoutResult{Address: payout.Address.String(), Amount: formatLamports(payout.Amount)})
	}
	return res
}

type HireResult struct {
	Address       string `json:"address,omitempty"`
	Escrow        string `json:"escrow,omitempty"`
	State         string `json:"state"`
	Mint          string `json:"mint"`
	Lender        string `json:"lender"`
	Borrower      string `json:"borrower,omitempty"`
	Amount        string `json:"amount"`
	Expiry        int64  `json:"expiry"`
	CurrentStart  int64  `json:"currentStart,omitempty"`
	CurrentExpiry int64  `json:"currentExpiry,omitempty"`
	EscrowBalance string `json:"escrowBalance"`
}

func hireResult(engine *listings.Engine, hire *listings.Hire) HireResult {
	res := HireResult{
		State:         hire.State.String(),
		Mint:          hire.Mint.String(),
		Lender:        hire.Lender.String(),
		Borrower:      addressString(hire.Borrower),
		Amount:        formatLamports(hire.Amount),
		Expiry:        hire.Expiry,
		CurrentStart:  hire.CurrentStart,
		CurrentExpiry: hire.CurrentExpiry,
		EscrowBalance: formatLamports(hire.EscrowBalance),
	}
	if addr, err := engine.HireAddress(hire.Mint, hire.Lender); err == nil {
		res.Address = addr.String()
	}
	if addr, err := engine.EscrowAddress(hire.Mint, hire.Lender); err == nil {
		res.Escrow = addr.String()
	}
	return res
}

type TokenManagerResult struct {
	Authority  string `json:"authority,omitempty"`
	Mint       string `json:"mint"`
	Issuer     string `json:"issuer"`
	Loan       bool   `json:"loan"`
	CallOption bool   `json:"callOption"`
	Hire       bool   `json:"hire"`
	Locked     bool   `json:"locked"`
}

func tokenManagerResult(engine *listings.Engine, tm *tokenmanager.TokenManager) TokenManagerResult {
	res := TokenManagerResult{
		Mint:       tm.Mint.String(),
		Issuer:     tm.Issuer.String(),
		Loan:       tm.Loan,
		CallOption: tm.CallOption,
		Hire:       tm.Hire,
		Locked:     tm.Locked(),
	}
	if addr, err := engine.TokenManagerAuthority(tm.Mint, tm.Issuer); err == nil {
		res.Authority = addr.String()
	}
	return res
}

type CollectionResult struct {
	Collection string `json:"collection"`
	Authority  string `json:"authority"`
}

func collectionResult(c *pools.Collection) CollectionResult {
	return CollectionResult{Collection: c.Collection.String(), Authority: c.Authority.String()}
}

type PoolResult struct {
	Address      string `json:"address,omitempty"`
	Vault        string `json:"vault,omitempty"`
	Authority    string `json:"authority"`
	Collection   string `json:"collection"`
	FloorPrice   string `json:"floorPrice"`
	BasisPoints  uint32 `json:"basisPoints"`
	Duration     int64  `json:"duration"`
	Originated   uint64 `json:"originated"`
	Volume       string `json:"volume"`
	VaultBalance string `json:"vaultBalance,omitempty"`
}

func poolResult(engine *pools.Engine, pool *pools.Pool) PoolResult {
	res := PoolResult{
		Authority:   pool.Authority.String(),
		Collection:  pool.Collection.String(),
		FloorPrice:  formatLamports(pool.FloorPrice),
		BasisPoints: pool.BasisPoints,
		Duration:    pool.Duration,
		Originated:  pool.Originated,
		Volume:      formatLamports(pool.Volume),
	}
	if addr, _, err := engine.PoolAddress(pool.Collection, pool.Authority); err == nil {
		res.Address = addr.String()
	}
	if addr, _, err := engine.VaultAddress(pool.Collection, pool.Authority); err == nil {
		res.Vault = addr.String()
	}
	return res
}

type EventResult struct {
	ID         string            `json:"id"`
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  int64             `json:"createdAt"`
}

func eventResult(record indexer.EventRecord) (EventResult, error) {
	attrs, err := record.DecodeAttributes()
	if err != nil {
		return EventResult{}, err
	}
	return EventResult{
		ID:         record.ID.String(),
		Sequence:   record.Sequence,
		Type:       record.Type,
		Attributes: attrs,
		CreatedAt:  record.CreatedAt.Unix(),
	}, nil
}
