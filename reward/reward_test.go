package reward

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/tos-network/gstake/faults"
)

var testRate = Rate{Precision: 1000, CycleDuration: 86400, CycleStakedAmount: 300_000_000}

func TestPendingExactFormula(t *testing.T) {
	got, err := Pending(testRate, Accrual{Amount: 100_000_000, Since: 0}, 86400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 333 {
		t.Fatalf("pending = %d, want 333", got)
	}
	paid, err := Payout(testRate.Precision, got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid != 0 {
		t.Fatalf("payout = %d, want 0", paid)
	}
}

func TestPendingAddsDebt(t *testing.T) {
	got, err := Pending(testRate, Accrual{Amount: 100_000_000, Since: 0, Debt: 5000}, 86400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5333 {
		t.Fatalf("pending = %d, want 5333", got)
	}
}

func TestPendingMonotonic(t *testing.T) {
	acc := Accrual{Amount: 123_456_789, Since: 1000, Debt: 7}
	prev := uint64(0)
	for now := int64(1000); now < 1000+3*86400; now += 977 {
		got, err := Pending(testRate, acc, now)
		if err != nil {
			t.Fatalf("now=%d: %v", now, err)
		}
		if got < prev {
			t.Fatalf("pending decreased at now=%d: %d < %d", now, got, prev)
		}
		prev = got
	}
}

func TestPendingFailures(t *testing.T) {
	tests := []struct {
		name string
		rate Rate
		acc  Accrual
		now  int64
		want error
	}{
		{"clock before stake", testRate, Accrual{Amount: 1, Since: 10}, 9, faults.ErrUnderflow},
		{"zero cycle duration", Rate{Precision: 1000, CycleStakedAmount: 1}, Accrual{Amount: 1}, 1, faults.ErrDivisionByZero},
		{"zero cycle staked", Rate{Precision: 1000, CycleDuration: 1}, Accrual{Amount: 1}, 1, faults.ErrDivisionByZero},
		{"numerator overflow", testRate, Accrual{Amount: gomath.MaxUint64}, 2, faults.ErrOverflow},
		{"debt overflow", Rate{Precision: 1, CycleDuration: 1, CycleStakedAmount: 1}, Accrual{Amount: 1, Debt: gomath.MaxUint64}, 1, faults.ErrOverflow},
		{"denominator overflow", Rate{Precision: 1, CycleDuration: gomath.MaxUint32, CycleStakedAmount: gomath.MaxUint64}, Accrual{}, 0, faults.ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pending(tt.rate, tt.acc, tt.now)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if !errors.Is(err, faults.Arithmetic) {
				t.Fatalf("error %v not classified arithmetic", err)
			}
		})
	}
}

func TestPayoutZeroPrecision(t *testing.T) {
	if _, err := Payout(0, 10); !errors.Is(err, faults.ErrDivisionByZero) {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := Payout(1000, 2999); got != 2 {
		t.Fatalf("payout = %d, want 2", got)
	}
}

func TestStakeFeeLiteralOrder(t *testing.T) {
	// 2 * 10^9 / 3 * 10 truncates before the final multiply.
	got, err := StakeFee(2, 9, 3, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := uint64(2_000_000_000/3) * 10; got != want {
		t.Fatalf("fee = %d, want %d", got, want)
	}
	// Division first loses everything below the price.
	if got, _ := StakeFee(2, 0, 3, 1000); got != 0 {
		t.Fatalf("fee = %d, want 0", got)
	}
	if _, err := StakeFee(2, 9, 0, 1); !errors.Is(err, faults.ErrDivisionByZero) {
		t.Fatalf("zero price: %v", err)
	}
	if _, err := StakeFee(2, 20, 1, 1); !errors.Is(err, faults.ErrOverflow) {
		t.Fatalf("decimals overflow: %v", err)
	}
	if _, err := StakeFee(2, 9, 1, gomath.MaxUint64); !errors.Is(err, faults.ErrOverflow) {
		t.Fatalf("exponent overflow: %v", err)
	}
}

func TestProjectMatchesPending(t *testing.T) {
	acc := Accrual{Amount: 100_000_000}
	pending, err := Pending(testRate, acc, 86400)
	if err != nil {
		t.Fatal(err)
	}
	projected, err := Project(testRate, acc.Amount, 86400)
	if err != nil {
		t.Fatal(err)
	}
	if projected.Uint64() != pending {
		t.Fatalf("projection %s differs from pending %d", projected, pending)
	}
	// Projection stays exact where the checked path overflows.
	big, err := Project(Rate{Precision: 1000, CycleDuration: 1, CycleStakedAmount: 1}, gomath.MaxUint64, 10)
	if err != nil {
		t.Fatal(err)
	}
	if big.IsUint64() {
		t.Fatalf("expected a projection wider than 64 bits, got %s", big)
	}
	if _, err := Project(Rate{Precision: 1}, 1, 1); !errors.Is(err, faults.ErrDivisionByZero) {
		t.Fatalf("unexpected error: %v", err)
	}
}
