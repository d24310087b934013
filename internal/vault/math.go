package vault

import (
	"github.com/holiman/uint256"
)

// Precision is the fixed-point scale of the exchange rate (6 decimals).
const Precision = 1_000_000

const bpsDenominator = 10_000

// mulDiv computes floor(a*b/d) with a 256-bit intermediate so the product
// can never wrap. A result that does not fit uint64, or a zero divisor, is
// reported as an error rather than truncated.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrInvalidAmount
	}
	z := new(uint256.Int).SetUint64(a)
	z.Mul(z, new(uint256.Int).SetUint64(b))
	z.Div(z, new(uint256.Int).SetUint64(d))
	if !z.IsUint64() {
		return 0, ErrInvalidAmount
	}
	return z.Uint64(), nil
}

// feeOf computes floor(amount*bps/10000). bps is validated < 10000 at the
// setters, so the fee is strictly below amount for amount > 0.
func feeOf(amount uint64, bps uint32) (uint64, error) {
	return mulDiv(amount, uint64(bps), bpsDenominator)
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrInvalidAmount
	}
	return sum, nil
}
