// Package sender implements the STREAM sending state machine
// (send_money): a congestion-controlled loop that dispatches Prepares
// carrying successive shares of a source amount, tracks delivered
// totals, and closes the connection cleanly on completion.
package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/stream/congestion"
	"github.com/interledger4j/ilpstream/stream/crypto"
	streamerrors "github.com/interledger4j/ilpstream/stream/errors"
	"github.com/interledger4j/ilpstream/stream/frames"
	"github.com/interledger4j/ilpstream/stream/packet"
)

// LivenessTimeout is the maximum time a connection may go without a
// Fulfill before send_money reports a TimeoutError.
const LivenessTimeout = 30 * time.Second

// PrepareExpiry is how far in the future each Prepare's expiry is set.
const PrepareExpiry = 30 * time.Second

// lifecycle state, unexported: mirrors SendMoneyState.state.
type lifecycleState int

const (
	stateSendMoney lifecycleState = iota
	stateClosing
	stateClosed
)

// Receipt summarizes a completed (or failed) send.
type Receipt struct {
	From               ilp.Address
	To                 ilp.Address
	SentAmount         uint64
	SentAssetCode      string
	SentAssetScale     uint8
	DeliveredAmount    uint64
	DeliveredAssetCode string
	DeliveredAssetScale uint8
	HasDeliveredAsset  bool
}

// Clock abstracts wall-clock reads so tests can control time without
// sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Params configures a send_money run.
type Params struct {
	From               ilp.Address
	To                 ilp.Address
	SourceAmount       uint64
	SourceAssetCode    string
	SourceAssetScale   uint8
	SharedSecret       []byte
	Next               ilp.RequestHandler
	Clock              Clock // defaults to the system clock if nil
}

// State is the sender's working state for one send_money invocation.
// It is owned exclusively by the goroutine running Run and must never
// be shared without external synchronization.
type State struct {
	p      Params
	clock  Clock
	state  lifecycleState

	sourceAmount         uint64
	controller           *congestion.Controller
	receipt              Receipt
	shouldSendSourceAddr bool
	sequence             uint64
	lastFulfillTime      time.Time

	latchedErr error
}

// New constructs sender state ready to run send_money.
func New(p Params) *State {
	clock := p.Clock
	if clock == nil {
		clock = systemClock{}
	}
	controller := congestion.NewController(congestion.Params{
		StartAmount:    p.SourceAmount,
		IncreaseAmount: p.SourceAmount / 10,
		DecreaseFactor: 2.0,
	})
	return &State{
		p:                    p,
		clock:                clock,
		state:                stateSendMoney,
		sourceAmount:         p.SourceAmount,
		controller:           controller,
		shouldSendSourceAddr: true,
		sequence:             1,
		lastFulfillTime:      clock.Now(),
		receipt: Receipt{
			From:           p.From,
			To:             p.To,
			SentAmount:     p.SourceAmount,
			SentAssetCode:  p.SourceAssetCode,
			SentAssetScale: p.SourceAssetScale,
		},
	}
}

func (s *State) nextSequence() uint64 {
	seq := s.sequence
	s.sequence++
	return seq
}

// Run drives the main loop to completion, returning the final Receipt
// or one of the errors in stream/errors.
func (s *State) Run(ctx context.Context) (Receipt, error) {
	for {
		if s.latchedErr != nil {
			return s.receipt, s.latchedErr
		}
		if s.clock.Now().Sub(s.lastFulfillTime) >= LivenessTimeout {
			return s.receipt, &streamerrors.TimeoutError{Msg: "no fulfill within liveness window"}
		}
		if s.sourceAmount == 0 {
			switch s.state {
			case stateSendMoney:
				s.state = stateClosing
				s.sendConnectionClose(ctx)
				continue
			default:
				s.state = stateClosed
				return s.receipt, nil
			}
		}
		s.trySendMoney(ctx)
	}
}

func (s *State) trySendMoney(ctx context.Context) {
	amount := s.sourceAmount
	if max := s.controller.GetMaxAmount(); max < amount {
		amount = max
	}
	if amount == 0 {
		return
	}
	s.sourceAmount -= amount

	packetFrames := []frames.Frame{frames.StreamMoney{StreamID: 1, Shares: 1}}
	if s.shouldSendSourceAddr {
		packetFrames = append(packetFrames, frames.ConnectionNewAddress{SourceAccount: s.p.From})
	}

	seq := s.nextSequence()
	streamPacket := packet.Builder{
		Sequence:      seq,
		PacketType:    ilp.TypePrepare,
		PrepareAmount: 0,
		Frames:        packetFrames,
	}.Build()

	encrypted, err := packet.ToEncrypted(s.p.SharedSecret, streamPacket)
	if err != nil {
		s.sourceAmount += amount
		return
	}
	condition := crypto.GenerateCondition(s.p.SharedSecret, encrypted)

	prepare := ilp.PrepareBuilder{
		Destination:        s.p.To,
		Amount:             amount,
		ExpiresAt:          s.clock.Now().Add(PrepareExpiry),
		ExecutionCondition: condition,
		Data:               encrypted,
	}.Build()

	s.controller.Prepare(seq, amount)
	fulfill, reject := s.p.Next.HandleRequest(ctx, s.p.From, prepare)

	switch {
	case fulfill != nil:
		s.onFulfill(seq, amount, *fulfill)
	case reject != nil:
		s.onReject(seq, amount, *reject)
	default:
		// Neither: treat as a dropped request, restore the amount and retry later.
		s.controller.Reject(seq, ilp.Reject{Code: ilp.CodeT04InsufficientLiquidity})
		s.sourceAmount += amount
	}
}

func (s *State) onFulfill(seq, amount uint64, fulfill ilp.Fulfill) {
	s.controller.Fulfill(seq)
	s.shouldSendSourceAddr = false
	s.lastFulfillTime = s.clock.Now()

	responsePacket, err := packet.FromEncrypted(s.p.SharedSecret, fulfill.Data)
	if err != nil {
		slog.Warn("malformed fulfill response, skipping", "error", &streamerrors.ParseError{Msg: "decoding fulfill response packet", Cause: err})
		return
	}
	if responsePacket.PacketType != ilp.TypeFulfill {
		return
	}
	s.populateDeliveredAsset(responsePacket.Frames)
	s.receipt.DeliveredAmount += responsePacket.PrepareAmount
}

func (s *State) onReject(seq, amount uint64, reject ilp.Reject) {
	s.sourceAmount += amount
	s.controller.Reject(seq, reject)

	if responsePacket, err := packet.FromEncrypted(s.p.SharedSecret, reject.Data); err == nil {
		s.populateDeliveredAsset(responsePacket.Frames)
	} else if len(reject.Data) > 0 {
		slog.Warn("malformed reject response, skipping", "error", &streamerrors.ParseError{Msg: "decoding reject response packet", Cause: err})
	}

	switch reject.Code.Class() {
	case ilp.ClassTemporary:
		// retry implicitly, no latched error
	case ilp.ClassFinal:
		if reject.Code == ilp.CodeF08AmountTooLarge || reject.Code == ilp.CodeF99ApplicationError {
			return
		}
		s.latchedErr = &streamerrors.SendMoneyError{Code: string(reject.Code), Message: reject.Message}
	case ilp.ClassRelative:
		s.latchedErr = &streamerrors.SendMoneyError{Code: string(reject.Code), Message: reject.Message}
	}
}

func (s *State) populateDeliveredAsset(respFrames []frames.Frame) {
	if s.receipt.HasDeliveredAsset {
		return
	}
	for _, f := range respFrames {
		if ad, ok := f.(frames.ConnectionAssetDetails); ok {
			s.receipt.DeliveredAssetCode = ad.SourceAssetCode
			s.receipt.DeliveredAssetScale = ad.SourceAssetScale
			s.receipt.HasDeliveredAsset = true
			return
		}
	}
}

func (s *State) sendConnectionClose(ctx context.Context) {
	streamPacket := packet.Builder{
		Sequence:      s.nextSequence(),
		PacketType:    ilp.TypePrepare,
		PrepareAmount: 0,
		Frames:        []frames.Frame{frames.ConnectionClose{Code: frames.ErrNoError, Message: ""}},
	}.Build()

	encrypted, err := packet.ToEncrypted(s.p.SharedSecret, streamPacket)
	if err != nil {
		return
	}
	condition, err := crypto.RandomCondition()
	if err != nil {
		return
	}
	prepare := ilp.PrepareBuilder{
		Destination:        s.p.To,
		Amount:             0,
		ExpiresAt:          s.clock.Now().Add(PrepareExpiry),
		ExecutionCondition: condition,
		Data:               encrypted,
	}.Build()

	// The expected outcome is a Reject (no connector can fulfill a
	// random condition); any latched error from it is ignored.
	s.p.Next.HandleRequest(ctx, s.p.From, prepare)
	s.latchedErr = nil
}
