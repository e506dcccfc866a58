// Package receiver implements the STREAM receiver state machine: a
// stateless per-Prepare decision that re-derives a shared secret,
// verifies the execution condition, and emits a Fulfill or Reject.
package receiver

import (
	"context"
	"crypto/subtle"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/stream/crypto"
	"github.com/interledger4j/ilpstream/stream/frames"
	"github.com/interledger4j/ilpstream/stream/packet"
)

// Service answers incoming Prepares addressed to connections this
// ConnectionGenerator knows how to re-derive secrets for. It holds no
// per-connection state and may be invoked concurrently.
type Service struct {
	generator     rederiver
	clientAddress ilp.Address
}

// rederiver is the subset of *conn.Generator the receiver depends on,
// kept narrow so tests can supply a fake without importing conn.
type rederiver interface {
	Rederive(destination ilp.Address) ([32]byte, error)
}

// New builds a receiver Service bound to clientAddress, using
// generator to recover shared secrets from incoming Prepare destinations.
func New(generator rederiver, clientAddress ilp.Address) *Service {
	return &Service{generator: generator, clientAddress: clientAddress}
}

// HandleRequest implements ilp.RequestHandler.
func (s *Service) HandleRequest(ctx context.Context, from ilp.Address, prepare ilp.Prepare) (*ilp.Fulfill, *ilp.Reject) {
	sharedSecret, err := s.generator.Rederive(prepare.Destination)
	if err != nil {
		return nil, s.reject(ilp.CodeF06UnexpectedPayment, "unknown or tampered destination")
	}
	return s.handle(sharedSecret[:], prepare)
}

func (s *Service) handle(sharedSecret []byte, prepare ilp.Prepare) (*ilp.Fulfill, *ilp.Reject) {
	fulfillment := crypto.GenerateFulfillment(sharedSecret, prepare.Data)
	condition := crypto.HashSHA256(fulfillment[:])
	isFulfillable := subtle.ConstantTimeCompare(condition[:], prepare.ExecutionCondition[:]) == 1

	decrypted, err := packet.FromEncrypted(sharedSecret, prepare.Data)
	if err != nil {
		return nil, s.reject(ilp.CodeF06UnexpectedPayment, "could not decrypt stream packet")
	}

	responseFrames := responseFramesFor(decrypted.Frames)

	if isFulfillable && prepare.Amount >= decrypted.PrepareAmount {
		responsePacket := packet.Builder{
			Sequence:      decrypted.Sequence,
			PacketType:    ilp.TypeFulfill,
			PrepareAmount: prepare.Amount,
			Frames:        responseFrames,
		}.Build()
		encrypted, err := packet.ToEncrypted(sharedSecret, responsePacket)
		if err != nil {
			return nil, s.reject(ilp.CodeF99ApplicationError, "could not encrypt response")
		}
		fulfill := ilp.FulfillBuilder{Fulfillment: fulfillment, Data: encrypted}.Build()
		return &fulfill, nil
	}

	responsePacket := packet.Builder{
		Sequence:      decrypted.Sequence,
		PacketType:    ilp.TypeReject,
		PrepareAmount: prepare.Amount,
		Frames:        responseFrames,
	}.Build()
	encrypted, err := packet.ToEncrypted(sharedSecret, responsePacket)
	if err != nil {
		return nil, s.reject(ilp.CodeF99ApplicationError, "could not encrypt response")
	}
	reject := ilp.RejectBuilder{
		Code:        ilp.CodeF99ApplicationError,
		TriggeredBy: s.clientAddress,
		Data:        encrypted,
	}.Build()
	return nil, &reject
}

func (s *Service) reject(code ilp.ErrorCode, message string) *ilp.Reject {
	reject := ilp.RejectBuilder{Code: code, Message: message, TriggeredBy: s.clientAddress}.Build()
	return &reject
}

// responseFramesFor builds the receiver's response frame list: one
// StreamMaxMoney per incoming StreamMoney frame, advertising an
// effectively unlimited receive window.
func responseFramesFor(incoming []frames.Frame) []frames.Frame {
	var out []frames.Frame
	for _, f := range incoming {
		if sm, ok := f.(frames.StreamMoney); ok {
			out = append(out, frames.StreamMaxMoney{
				StreamID:      sm.StreamID,
				ReceiveMax:    ^uint64(0),
				TotalReceived: 0,
			})
		}
	}
	return out
}
