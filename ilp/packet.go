// Package ilp provides the ILP packet model (Prepare, Fulfill, Reject)
// that the STREAM transport core is built on top of. Encoding these
// packets onto an actual connector wire format (ASN.1 OER over HTTP/BTP)
// is outside this package's scope — it supplies the in-memory value
// types and the RequestHandler capability the rest of the module
// consumes.
package ilp

import (
	"context"
	"time"
)

// PacketType mirrors the ILP packet type tags used inside a STREAM
// packet's ilp_packet_type field.
type PacketType uint8

const (
	TypePrepare PacketType = 12
	TypeFulfill PacketType = 13
	TypeReject  PacketType = 14
)

// Prepare is an ILP Prepare packet.
type Prepare struct {
	Destination        Address
	Amount              uint64
	ExpiresAt           time.Time
	ExecutionCondition  [32]byte
	Data                []byte
}

// PrepareBuilder builds a Prepare packet.
type PrepareBuilder struct {
	Destination        Address
	Amount              uint64
	ExpiresAt           time.Time
	ExecutionCondition  [32]byte
	Data                []byte
}

// Build returns the constructed Prepare.
func (b PrepareBuilder) Build() Prepare {
	return Prepare{
		Destination:        b.Destination,
		Amount:              b.Amount,
		ExpiresAt:           b.ExpiresAt,
		ExecutionCondition:  b.ExecutionCondition,
		Data:                b.Data,
	}
}

// Fulfill is an ILP Fulfill packet.
type Fulfill struct {
	Fulfillment [32]byte
	Data        []byte
}

// FulfillBuilder builds a Fulfill packet.
type FulfillBuilder struct {
	Fulfillment [32]byte
	Data        []byte
}

// Build returns the constructed Fulfill.
func (b FulfillBuilder) Build() Fulfill {
	return Fulfill{Fulfillment: b.Fulfillment, Data: b.Data}
}

// ErrorCode is a 3-character ILP error code, e.g. "F06", "T04", "R00".
type ErrorCode string

// ErrorClass categorizes an ErrorCode by its first letter.
type ErrorClass int

const (
	ClassFinal ErrorClass = iota
	ClassTemporary
	ClassRelative
	ClassUnknown
)

// Class returns the error's class based on its leading letter.
func (c ErrorCode) Class() ErrorClass {
	if len(c) == 0 {
		return ClassUnknown
	}
	switch c[0] {
	case 'F':
		return ClassFinal
	case 'T':
		return ClassTemporary
	case 'R':
		return ClassRelative
	default:
		return ClassUnknown
	}
}

// Well-known STREAM-relevant ILP error codes.
const (
	CodeF00BadRequest          ErrorCode = "F00"
	CodeF06UnexpectedPayment   ErrorCode = "F06"
	CodeF08AmountTooLarge      ErrorCode = "F08"
	CodeF99ApplicationError    ErrorCode = "F99"
	CodeT04InsufficientLiquidity ErrorCode = "T04"
)

// Reject is an ILP Reject packet.
type Reject struct {
	Code        ErrorCode
	Message     string
	TriggeredBy Address
	Data        []byte
}

// RejectBuilder builds a Reject packet.
type RejectBuilder struct {
	Code        ErrorCode
	Message     string
	TriggeredBy Address
	Data        []byte
}

// Build returns the constructed Reject.
func (b RejectBuilder) Build() Reject {
	return Reject{
		Code:        b.Code,
		Message:     b.Message,
		TriggeredBy: b.TriggeredBy,
		Data:        b.Data,
	}
}

// RequestHandler is the capability every STREAM component (sender,
// receiver, validator, router) composes by value instead of inheriting
// from a shared base type: send a Prepare, get back exactly one of
// Fulfill or Reject.
type RequestHandler interface {
	HandleRequest(ctx context.Context, from Address, prepare Prepare) (*Fulfill, *Reject)
}

// RequestHandlerFunc adapts a function to a RequestHandler.
type RequestHandlerFunc func(ctx context.Context, from Address, prepare Prepare) (*Fulfill, *Reject)

// HandleRequest implements RequestHandler.
func (f RequestHandlerFunc) HandleRequest(ctx context.Context, from Address, prepare Prepare) (*Fulfill, *Reject) {
	return f(ctx, from, prepare)
}
