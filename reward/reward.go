// Package reward implements the accrual arithmetic of staked positions.
//
// All functions are pure. Every step that can overflow, underflow or divide by
// zero reports a classified arithmetic failure instead of wrapping.
package reward

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"github.com/tos-network/gstake/faults"
)

// Rate is the accrual rate of a global config: Precision reward units per
// CycleStakedAmount staked units per CycleDuration seconds.
type Rate struct {
	Precision         uint32
	CycleDuration     uint32
	CycleStakedAmount uint64
}

// Accrual is the part of a staked position the engine reads.
type Accrual struct {
	Amount uint64
	Since  int64
	Debt   uint64
}

func mul(a, b uint64) (uint64, error) {
	v, overflow := math.SafeMul(a, b)
	if overflow {
		return 0, faults.ErrOverflow
	}
	return v, nil
}

func add(a, b uint64) (uint64, error) {
	v, overflow := math.SafeAdd(a, b)
	if overflow {
		return 0, faults.ErrOverflow
	}
	return v, nil
}

// Pending returns the reward owed to acc as of now, scaled by rate.Precision:
//
//	floor((now-since) * amount * precision / (cycleDuration * cycleStakedAmount)) + debt
func Pending(rate Rate, acc Accrual, now int64) (uint64, error) {
	if now < acc.Since {
		return 0, faults.ErrUnderflow
	}
	elapsed := uint64(now - acc.Since)

	denominator, err := mul(uint64(rate.CycleDuration), rate.CycleStakedAmount)
	if err != nil {
		return 0, err
	}
	if denominator == 0 {
		return 0, faults.ErrDivisionByZero
	}
	numerator, err := mul(elapsed, acc.Amount)
	if err != nil {
		return 0, err
	}
	if numerator, err = mul(numerator, uint64(rate.Precision)); err != nil {
		return 0, err
	}
	return add(numerator/denominator, acc.Debt)
}

// Payout descales a pending amount into whole reward-asset units. The
// fractional remainder is dropped.
func Payout(precision uint32, pending uint64) (uint64, error) {
	if precision == 0 {
		return 0, faults.ErrDivisionByZero
	}
	return pending / uint64(precision), nil
}

// Pow10 returns 10^exp, failing if it does not fit a uint64.
func Pow10(exp uint8) (uint64, error) {
	result := uint64(1)
	for i := uint8(0); i < exp; i++ {
		var err error
		if result, err = mul(result, 10); err != nil {
			return 0, err
		}
	}
	return result, nil
}

// StakeFee converts a fee quoted in reward-asset terms into stake-asset units.
// The steps run in this order, each checked:
//
//	feeAmount * 10^decimals / price * exponent
func StakeFee(feeAmount uint64, decimals uint8, price, exponent uint64) (uint64, error) {
	scale, err := Pow10(decimals)
	if err != nil {
		return 0, err
	}
	fee, err := mul(feeAmount, scale)
	if err != nil {
		return 0, err
	}
	if price == 0 {
		return 0, faults.ErrDivisionByZero
	}
	return mul(fee/price, exponent)
}

// Project quotes the scaled reward that amount would accrue over seconds at
// rate. It is computed in 256 bits and cannot overflow for 64-bit inputs.
func Project(rate Rate, amount uint64, seconds uint64) (*uint256.Int, error) {
	denominator := new(uint256.Int).Mul(
		uint256.NewInt(uint64(rate.CycleDuration)),
		uint256.NewInt(rate.CycleStakedAmount),
	)
	if denominator.IsZero() {
		return nil, faults.ErrDivisionByZero
	}
	numerator := new(uint256.Int).Mul(uint256.NewInt(seconds), uint256.NewInt(amount))
	numerator.Mul(numerator, uint256.NewInt(uint64(rate.Precision)))
	return numerator.Div(numerator, denominator), nil
}
