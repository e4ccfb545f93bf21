package fees

import "github.com/shopspring/decimal"

// EscrowWithdrawable returns the share of an escrow balance earned between
// start and now over the window [start, expiry]. The fraction is clamped to
// one once now passes expiry and the result is floored.
func EscrowWithdrawable(balance uint64, start, expiry, now int64) (uint64, error) {
	if balance == 0 || now <= start {
		return 0, nil
	}
	window := expiry - start
	if window <= 0 || now >= expiry {
		return balance, nil
	}
	elapsed := decimal.NewFromInt(now - start)
	earned, _ := fromUint64(balance).Mul(elapsed).QuoRem(decimal.NewFromInt(window), 0)
	amount, err := toUint64(earned)
	if err != nil {
		return 0, err
	}
	if amount > balance {
		return balance, nil
	}
	return amount, nil
}
