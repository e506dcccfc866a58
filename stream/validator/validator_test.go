package validator

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/interledger4j/ilpstream/ilp"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type stubHandler struct {
	fulfill *ilp.Fulfill
	reject  *ilp.Reject
}

func (h stubHandler) HandleRequest(ctx context.Context, from ilp.Address, prepare ilp.Prepare) (*ilp.Fulfill, *ilp.Reject) {
	return h.fulfill, h.reject
}

func TestRejectsExpiredPrepareBeforeDispatch(t *testing.T) {
	clock := fakeClock{now: time.Now()}
	svc := New(stubHandler{}, clock)

	prepare := ilp.PrepareBuilder{
		Destination: ilp.MustAddress("example.receiver"),
		ExpiresAt:   clock.now.Add(-time.Second),
	}.Build()

	fulfill, reject := svc.HandleRequest(context.Background(), ilp.Address{}, prepare)
	if fulfill != nil {
		t.Fatal("expected Reject for expired prepare")
	}
	if reject == nil {
		t.Fatal("expected non-nil Reject")
	}
}

func TestRejectsFulfillmentNotMatchingCondition(t *testing.T) {
	clock := fakeClock{now: time.Now()}
	badFulfillment := [32]byte{0xFF}
	condition := sha256.Sum256([]byte("something else"))

	svc := New(stubHandler{fulfill: &ilp.Fulfill{Fulfillment: badFulfillment}}, clock)
	prepare := ilp.PrepareBuilder{
		Destination:        ilp.MustAddress("example.receiver"),
		ExpiresAt:          clock.now.Add(time.Minute),
		ExecutionCondition: condition,
	}.Build()

	fulfill, reject := svc.HandleRequest(context.Background(), ilp.Address{}, prepare)
	if fulfill != nil {
		t.Fatal("expected Reject when fulfillment doesn't match condition")
	}
	if reject == nil || reject.Code != ilp.CodeF00BadRequest {
		t.Fatalf("expected F00_BAD_REQUEST, got %+v", reject)
	}
}

func TestPassesThroughValidFulfill(t *testing.T) {
	clock := fakeClock{now: time.Now()}
	fulfillment := [32]byte{0x01, 0x02, 0x03}
	condition := sha256.Sum256(fulfillment[:])

	svc := New(stubHandler{fulfill: &ilp.Fulfill{Fulfillment: fulfillment}}, clock)
	prepare := ilp.PrepareBuilder{
		Destination:        ilp.MustAddress("example.receiver"),
		ExpiresAt:          clock.now.Add(time.Minute),
		ExecutionCondition: condition,
	}.Build()

	fulfill, reject := svc.HandleRequest(context.Background(), ilp.Address{}, prepare)
	if reject != nil {
		t.Fatalf("expected Fulfill to pass through, got Reject %+v", reject)
	}
	if fulfill == nil || fulfill.Fulfillment != fulfillment {
		t.Fatalf("fulfill mismatch: %+v", fulfill)
	}
}
