// Package validator implements the expiry/fulfillment re-validation
// collaborator the sender composes in front of its RequestHandler
// rather than duplicating those checks inline.
package validator

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/interledger4j/ilpstream/ilp"
)

// Clock abstracts wall-clock reads for testability.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service wraps a RequestHandler, rejecting Prepares that have already
// expired before forwarding, and verifying that a downstream Fulfill's
// fulfillment actually hashes to the Prepare's execution condition
// before passing it back to the caller.
//
// Composing a Service in front of every outbound Prepare is required:
// the sender itself performs no expiry or fulfillment re-validation.
type Service struct {
	next  ilp.RequestHandler
	clock Clock
}

// New wraps next with expiry and fulfillment validation.
func New(next ilp.RequestHandler, clock Clock) *Service {
	if clock == nil {
		clock = systemClock{}
	}
	return &Service{next: next, clock: clock}
}

// HandleRequest implements ilp.RequestHandler.
func (s *Service) HandleRequest(ctx context.Context, from ilp.Address, prepare ilp.Prepare) (*ilp.Fulfill, *ilp.Reject) {
	if !prepare.ExpiresAt.IsZero() && s.clock.Now().After(prepare.ExpiresAt) {
		reject := ilp.RejectBuilder{
			Code:        ilp.ErrorCode("R00"),
			Message:     "prepare expired before dispatch",
			TriggeredBy: from,
		}.Build()
		return nil, &reject
	}

	fulfill, reject := s.next.HandleRequest(ctx, from, prepare)
	if fulfill == nil {
		return nil, reject
	}

	condition := sha256.Sum256(fulfill.Fulfillment[:])
	if subtle.ConstantTimeCompare(condition[:], prepare.ExecutionCondition[:]) != 1 {
		rejected := ilp.RejectBuilder{
			Code:        ilp.CodeF00BadRequest,
			Message:     "fulfillment does not match execution condition",
			TriggeredBy: from,
		}.Build()
		return nil, &rejected
	}
	return fulfill, nil
}
