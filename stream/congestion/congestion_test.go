package congestion

import (
	"testing"

	"github.com/interledger4j/ilpstream/ilp"
)

func TestSlowStartDoublesOnEachFulfill(t *testing.T) {
	const start = uint64(100)
	c := NewController(Params{StartAmount: start, IncreaseAmount: start / 10, DecreaseFactor: 2.0})

	want := start
	for i := uint64(1); i <= 5; i++ {
		c.Prepare(i, 1)
		c.Fulfill(i)
		want *= 2
		if c.MaxInFlight() != want {
			t.Fatalf("after %d fulfills, max_in_flight = %d, want %d", i, c.MaxInFlight(), want)
		}
	}
}

func TestAvoidCongestionHalvesOnT04(t *testing.T) {
	c := NewController(Params{StartAmount: 1000, IncreaseAmount: 100, DecreaseFactor: 2.0})
	c.Prepare(1, 10)
	c.Reject(1, ilp.Reject{Code: ilp.CodeT04InsufficientLiquidity})

	if c.State() != AvoidCongestion {
		t.Fatal("expected state to switch to AvoidCongestion")
	}
	if c.MaxInFlight() != 500 {
		t.Fatalf("max_in_flight = %d, want 500", c.MaxInFlight())
	}
}

func TestAvoidCongestionFloorsAtOne(t *testing.T) {
	c := NewController(Params{StartAmount: 1, IncreaseAmount: 1, DecreaseFactor: 2.0})
	c.Prepare(1, 1)
	c.Reject(1, ilp.Reject{Code: ilp.CodeT04InsufficientLiquidity})
	if c.MaxInFlight() != 1 {
		t.Fatalf("max_in_flight = %d, want 1 (floored)", c.MaxInFlight())
	}
}

func TestAvoidCongestionAdditiveIncreaseOnFulfill(t *testing.T) {
	c := NewController(Params{StartAmount: 1000, IncreaseAmount: 50, DecreaseFactor: 2.0})
	c.Prepare(1, 10)
	c.Reject(1, ilp.Reject{Code: ilp.CodeT04InsufficientLiquidity}) // -> AvoidCongestion, max_in_flight=500

	before := c.MaxInFlight()
	c.Prepare(2, 10)
	c.Fulfill(2)
	if c.MaxInFlight() != before+50 {
		t.Fatalf("max_in_flight = %d, want %d", c.MaxInFlight(), before+50)
	}
}

func TestGetMaxAmountRespectsMaxPacketAmount(t *testing.T) {
	c := NewController(Params{StartAmount: 1000, IncreaseAmount: 100, DecreaseFactor: 2.0, MaxPacketAmount: 10})
	if got := c.GetMaxAmount(); got != 10 {
		t.Fatalf("GetMaxAmount = %d, want 10", got)
	}
}

func TestF08AmountTooLargeHalvesMaxPacketAmountWithoutParseableData(t *testing.T) {
	c := NewController(Params{StartAmount: 1000, IncreaseAmount: 100, DecreaseFactor: 2.0, MaxPacketAmount: 100})
	c.Prepare(1, 50)
	c.Reject(1, ilp.Reject{Code: ilp.CodeF08AmountTooLarge})
	if c.GetMaxAmount() > 50 {
		t.Fatalf("GetMaxAmount = %d, want <= 50 after F08 halving", c.GetMaxAmount())
	}
}

func TestGetMaxAmountNeverNegative(t *testing.T) {
	c := NewController(Params{StartAmount: 10, IncreaseAmount: 1, DecreaseFactor: 2.0})
	c.Prepare(1, 10)
	if got := c.GetMaxAmount(); got != 0 {
		t.Fatalf("GetMaxAmount = %d, want 0 when fully in flight", got)
	}
}
