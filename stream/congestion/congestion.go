// Package congestion implements the AIMD (additive-increase,
// multiplicative-decrease) window controller that governs how much
// source amount a sender may have in flight at once.
package congestion

import (
	"math"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/oer"
)

// State is the controller's current congestion-avoidance phase.
type State int

const (
	SlowStart State = iota
	AvoidCongestion
)

// Params configures a Controller.
type Params struct {
	StartAmount      uint64
	IncreaseAmount   uint64
	DecreaseFactor   float64
	MaxPacketAmount  uint64 // 0 means unbounded
}

// Controller tracks in-flight amount against a dynamically sized
// window, growing the window on fulfillment and shrinking it on
// congestion signals. It is not safe for concurrent use; callers that
// fan out concurrent Prepares must guard it with a mutex or route
// results through a single-writer channel.
type Controller struct {
	increaseAmount  uint64
	decreaseFactor  float64
	maxPacketAmount uint64 // 0 means unbounded

	state         State
	maxInFlight   uint64
	amountInFlight uint64
	inFlight      map[uint64]uint64
}

// NewController builds a Controller from p.
func NewController(p Params) *Controller {
	decreaseFactor := p.DecreaseFactor
	if decreaseFactor <= 0 {
		decreaseFactor = 2.0
	}
	return &Controller{
		increaseAmount:  p.IncreaseAmount,
		decreaseFactor:  decreaseFactor,
		maxPacketAmount: p.MaxPacketAmount,
		state:           SlowStart,
		maxInFlight:     p.StartAmount,
		inFlight:        make(map[uint64]uint64),
	}
}

func saturatingAdd(a, b uint64) uint64 {
	if math.MaxUint64-a < b {
		return math.MaxUint64
	}
	return a + b
}

func saturatingMul2(a uint64) uint64 {
	if a > math.MaxUint64/2 {
		return math.MaxUint64
	}
	return a * 2
}

// GetMaxAmount returns the largest amount currently permissible for a
// single Prepare: the remaining window capacity, capped by
// MaxPacketAmount if one is configured.
func (c *Controller) GetMaxAmount() uint64 {
	var remaining uint64
	if c.amountInFlight >= c.maxInFlight {
		remaining = 0
	} else {
		remaining = c.maxInFlight - c.amountInFlight
	}
	if c.maxPacketAmount > 0 && c.maxPacketAmount < remaining {
		return c.maxPacketAmount
	}
	return remaining
}

// Prepare records that amount is now in flight under id.
func (c *Controller) Prepare(id uint64, amount uint64) {
	c.inFlight[id] = amount
	c.amountInFlight = saturatingAdd(c.amountInFlight, amount)
}

func (c *Controller) release(id uint64) (uint64, bool) {
	amount, ok := c.inFlight[id]
	if !ok {
		return 0, false
	}
	delete(c.inFlight, id)
	if amount > c.amountInFlight {
		c.amountInFlight = 0
	} else {
		c.amountInFlight -= amount
	}
	return amount, true
}

// Fulfill records that the Prepare sent under id was fulfilled,
// growing the window: doubling in SlowStart, additive otherwise.
func (c *Controller) Fulfill(id uint64) {
	if _, ok := c.release(id); !ok {
		return
	}
	switch c.state {
	case SlowStart:
		c.maxInFlight = saturatingMul2(c.maxInFlight)
	default:
		c.maxInFlight = saturatingAdd(c.maxInFlight, c.increaseAmount)
	}
}

// Reject records that the Prepare sent under id was rejected, shrinking
// the window when reject signals congestion (T04) and adjusting
// MaxPacketAmount when it signals F08_AMOUNT_TOO_LARGE.
func (c *Controller) Reject(id uint64, reject ilp.Reject) {
	if _, ok := c.release(id); !ok {
		return
	}
	switch reject.Code {
	case ilp.CodeT04InsufficientLiquidity:
		c.state = AvoidCongestion
		reduced := uint64(math.Floor(float64(c.maxInFlight) / c.decreaseFactor))
		if reduced < 1 {
			reduced = 1
		}
		c.maxInFlight = reduced
	case ilp.CodeF08AmountTooLarge:
		c.handleAmountTooLarge(reject.Data)
	}
}

// handleAmountTooLarge lowers MaxPacketAmount in response to an
// F08_AMOUNT_TOO_LARGE reject. The reject's data, when present, is an
// OER-encoded {maximum_amount, received_amount} pair the receiving
// connector reports; when both are parseable and received_amount is
// nonzero, the new cap is scaled proportionally. Otherwise the cap is
// conservatively halved.
func (c *Controller) handleAmountTooLarge(data []byte) {
	current := c.maxPacketAmount
	if current == 0 {
		current = math.MaxUint64
	}

	maxAmount, n, err := oer.ReadVarUint(data)
	if err == nil {
		receivedAmount, _, err2 := oer.ReadVarUint(data[n:])
		if err2 == nil && receivedAmount > 0 {
			scaled := uint64(math.Floor(float64(current) * float64(maxAmount) / float64(receivedAmount)))
			if scaled > 0 && scaled < current {
				c.maxPacketAmount = scaled
				return
			}
		}
	}

	half := current / 2
	if half < 1 {
		half = 1
	}
	c.maxPacketAmount = half
}

// State reports the controller's current congestion phase, for testing.
func (c *Controller) State() State { return c.state }

// MaxInFlight reports the controller's current window size, for testing.
func (c *Controller) MaxInFlight() uint64 { return c.maxInFlight }
