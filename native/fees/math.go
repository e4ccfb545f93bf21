// Package fees holds the protocol's money arithmetic. Every function is pure
// and overflow-checked; callers move funds with the amounts returned here.
package fees

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"nftlend/native/common"
)

const (
	// BasisPointsDenominator is 100% expressed in basis points.
	BasisPointsDenominator = 10_000
	// SecondsPerDay is the hire billing unit.
	SecondsPerDay int64 = 86_400
	// SecondsPerYear is the interest accrual basis (365 days).
	SecondsPerYear int64 = 31_536_000

	divisorPrecision = 16
)

var (
	ErrNumericalOverflow = common.NewError(common.ErrArithmeticOverflow, "fees: numerical overflow")
	ErrInvalidDuration   = common.NewError(common.ErrPreconditionViolation, "fees: duration must be positive")
)

var bpDenominator = uint256.NewInt(BasisPointsDenominator)

// FeeFromBasisPoints returns floor(amount * bp / 10_000).
func FeeFromBasisPoints(amount uint64, bp uint64) (uint64, error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(amount), uint256.NewInt(bp))
	if overflow {
		return 0, ErrNumericalOverflow
	}
	fee := new(uint256.Int).Div(product, bpDenominator)
	if !fee.IsUint64() {
		return 0, ErrNumericalOverflow
	}
	return fee.Uint64(), nil
}

// CheckedAdd returns a+b or ErrNumericalOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, ErrNumericalOverflow
	}
	return sum.Uint64(), nil
}

// CheckedSub returns a-b or ErrNumericalOverflow when b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrNumericalOverflow
	}
	return a - b, nil
}

// CheckedMul returns a*b or ErrNumericalOverflow.
func CheckedMul(a, b uint64) (uint64, error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !product.IsUint64() {
		return 0, ErrNumericalOverflow
	}
	return product.Uint64(), nil
}

// LoanRepayment is the amount owed on a fixed-term loan.
type LoanRepayment struct {
	Principal  uint64
	AnnualFee  uint64
	FeeDivisor decimal.Decimal
	ProRataFee uint64
	AmountDue  uint64
}

// CalculateLoanRepayment prices a loan over its listed duration. The fee
// divisor is SecondsPerYear/duration; the pro-rata fee is annual/divisor,
// evaluated exactly as annual*duration/SecondsPerYear and rounded half-up to a
// whole lamport. The result does not depend on when the loan is repaid.
func CalculateLoanRepayment(principal uint64, bp uint32, duration int64) (LoanRepayment, error) {
	if duration <= 0 {
		return LoanRepayment{}, ErrInvalidDuration
	}
	annual, err := FeeFromBasisPoints(principal, uint64(bp))
	if err != nil {
		return LoanRepayment{}, err
	}
	year := decimal.NewFromInt(SecondsPerYear)
	span := decimal.NewFromInt(duration)

	proRata := fromUint64(annual).Mul(span).DivRound(year, 0)
	proRataFee, err := toUint64(proRata)
	if err != nil {
		return LoanRepayment{}, err
	}
	due, err := CheckedAdd(principal, proRataFee)
	if err != nil {
		return LoanRepayment{}, err
	}
	return LoanRepayment{
		Principal:  principal,
		AnnualFee:  annual,
		FeeDivisor: year.DivRound(span, divisorPrecision),
		ProRataFee: proRataFee,
		AmountDue:  due,
	}, nil
}

// HireCost returns the escrow payment for the given number of days.
func HireCost(daily uint64, days uint16) (uint64, error) {
	return CheckedMul(daily, uint64(days))
}

// HireSpan converts whole days into seconds.
func HireSpan(days uint16) int64 {
	return int64(days) * SecondsPerDay
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func toUint64(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() {
		return 0, ErrNumericalOverflow
	}
	value := d.BigInt()
	if !value.IsUint64() {
		return 0, ErrNumericalOverflow
	}
	return value.Uint64(), nil
}
