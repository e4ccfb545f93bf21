package listings

import (
	"fmt"

	"nftlend/crypto"
	"nftlend/native/fees"
)

// Derivation seeds of the claim records.
const (
	LoanPrefix       = "loan"
	CallOptionPrefix = "call_option"
	HirePrefix       = "hire"
)

// Pause module names.
const (
	ModuleLoans   = "loans"
	ModuleOptions = "options"
	ModuleHires   = "hires"
)

// LoanState enumerates the lifecycle of a loan.
type LoanState uint8

const (
	LoanListed LoanState = iota + 1
	LoanActive
	LoanDefaulted
)

func (s LoanState) String() string {
	switch s {
	case LoanListed:
		return "listed"
	case LoanActive:
		return "active"
	case LoanDefaulted:
		return "defaulted"
	default:
		return fmt.Sprintf("loan_state(%d)", uint8(s))
	}
}

// Loan is a fixed-term bullet loan against a collateral token. Amount is the
// principal and BasisPoints the annual rate. StartDate is set when a lender
// funds the loan.
type Loan struct {
	State       LoanState
	Amount      uint64
	Borrower    crypto.Address
	Lender      crypto.Address
	BasisPoints uint32
	Duration    int64
	StartDate   int64
	Mint        crypto.Address
	Bump        uint8
}

// Clone returns a copy of the loan.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

// DueAt is the first instant the lender may repossess.
func (l *Loan) DueAt() int64 {
	return l.StartDate + l.Duration
}

// MaxLoanDuration bounds the term of a loan to ten years.
const MaxLoanDuration = 10 * fees.SecondsPerYear

// LoanTerms are the borrower's listing parameters.
type LoanTerms struct {
	Amount      uint64
	BasisPoints uint32
	Duration    int64
}

// Validate rejects terms that could never be repaid: a zero principal, a
// duration outside (0, MaxLoanDuration], or an amount due that overflows.
func (t LoanTerms) Validate() error {
	if t.Amount == 0 {
		return ErrInvalidAmount
	}
	if t.Duration <= 0 || t.Duration > MaxLoanDuration {
		return ErrInvalidDuration
	}
	if _, err := fees.CalculateLoanRepayment(t.Amount, t.BasisPoints, t.Duration); err != nil {
		return err
	}
	return nil
}

// CallOptionState enumerates the lifecycle of a call option.
type CallOptionState uint8

const (
	CallOptionListed CallOptionState = iota + 1
	CallOptionActive
	CallOptionExercised
)

func (s CallOptionState) String() string {
	switch s {
	case CallOptionListed:
		return "listed"
	case CallOptionActive:
		return "active"
	case CallOptionExercised:
		return "exercised"
	default:
		return fmt.Sprintf("call_option_state(%d)", uint8(s))
	}
}

// CallOption is a covered call written against collateral. Amount is the
// premium paid by the buyer.
type CallOption struct {
	State       CallOptionState
	Amount      uint64
	Seller      crypto.Address
	Buyer       crypto.Address
	Expiry      int64
	StrikePrice uint64
	Mint        crypto.Address
	Bump        uint8
}

// Clone returns a copy of the option.
func (o *CallOption) Clone() *CallOption {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// CallOptionTerms are the seller's listing parameters.
type CallOptionTerms struct {
	Amount      uint64
	StrikePrice uint64
	Expiry      int64
}

// HireState enumerates the lifecycle of a hire.
type HireState uint8

const (
	HireListed HireState = iota + 1
	HireHired
)

func (s HireState) String() string {
	switch s {
	case HireListed:
		return "listed"
	case HireHired:
		return "hired"
	default:
		return fmt.Sprintf("hire_state(%d)", uint8(s))
	}
}

// Hire leases collateral for a daily fee. A zero Borrower means the listing
// is open to anyone; CurrentStart and CurrentExpiry are zero unless the hire
// is taken. EscrowBalance is prepaid rent not yet paid out to the lender.
type Hire struct {
	State         HireState
	Amount        uint64
	Lender        crypto.Address
	Borrower      crypto.Address
	Expiry        int64
	CurrentStart  int64
	CurrentExpiry int64
	EscrowBalance uint64
	Mint          crypto.Address
	Bump          uint8
	EscrowBump    uint8
}

// Clone returns a copy of the hire.
func (h *Hire) Clone() *Hire {
	if h == nil {
		return nil
	}
	clone := *h
	return &clone
}

// HasBorrower reports whether a borrower is named or occupying the hire.
func (h *Hire) HasBorrower() bool { return !h.Borrower.IsZero() }

// HasWindow reports whether a hire period is running.
func (h *Hire) HasWindow() bool { return h.CurrentStart != 0 && h.CurrentExpiry != 0 }

// HireTerms are the lender's listing parameters. A zero Borrower opens the
// hire to anyone.
type HireTerms struct {
	Amount   uint64
	Expiry   int64
	Borrower crypto.Address
}
