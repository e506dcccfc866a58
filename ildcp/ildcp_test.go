package ildcp

import (
	"context"
	"testing"

	"github.com/interledger4j/ilpstream/ilp"
)

type stubHandler struct {
	fulfill *ilp.Fulfill
	reject  *ilp.Reject
}

func (h stubHandler) HandleRequest(ctx context.Context, from ilp.Address, prepare ilp.Prepare) (*ilp.Fulfill, *ilp.Reject) {
	return h.fulfill, h.reject
}

func TestGetInfoDecodesFulfillData(t *testing.T) {
	info := Info{
		ClientAddress: ilp.MustAddress("example.sender"),
		AssetCode:     "USD",
		AssetScale:    2,
	}
	fulfill := &ilp.Fulfill{Data: Encode(info)}

	client := &Client{Next: stubHandler{fulfill: fulfill}}
	got, err := client.GetInfo(context.Background(), ilp.MustAddress("example.sender"))
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if got.ClientAddress.String() != info.ClientAddress.String() || got.AssetCode != info.AssetCode || got.AssetScale != info.AssetScale {
		t.Fatalf("GetInfo = %+v, want %+v", got, info)
	}
}

func TestGetInfoFailsOnReject(t *testing.T) {
	reject := &ilp.Reject{Code: ilp.CodeF00BadRequest, Message: "no ildcp"}
	client := &Client{Next: stubHandler{reject: reject}}
	if _, err := client.GetInfo(context.Background(), ilp.MustAddress("example.sender")); err == nil {
		t.Fatal("expected ConnectionError on reject")
	}
}

func TestGetInfoFailsOnUnparseableData(t *testing.T) {
	fulfill := &ilp.Fulfill{Data: []byte{0xFF}}
	client := &Client{Next: stubHandler{fulfill: fulfill}}
	if _, err := client.GetInfo(context.Background(), ilp.MustAddress("example.sender")); err == nil {
		t.Fatal("expected ConnectionError on unparseable ildcp data")
	}
}

func TestResponderAnswersPeerConfigAndForwardsEverythingElse(t *testing.T) {
	info := Info{ClientAddress: ilp.MustAddress("example.receiver"), AssetCode: "XRP", AssetScale: 6}
	forwarded := &ilp.Reject{Code: ilp.CodeF06UnexpectedPayment}
	responder := &Responder{Info: info, Next: stubHandler{reject: forwarded}}

	client := &Client{Next: responder}
	got, err := client.GetInfo(context.Background(), ilp.MustAddress("example.sender"))
	if err != nil {
		t.Fatalf("GetInfo via Responder: %v", err)
	}
	if got.ClientAddress.String() != info.ClientAddress.String() || got.AssetCode != info.AssetCode || got.AssetScale != info.AssetScale {
		t.Fatalf("GetInfo = %+v, want %+v", got, info)
	}

	prepare := ilp.PrepareBuilder{Destination: ilp.MustAddress("example.receiver.abc")}.Build()
	fulfill, reject := responder.HandleRequest(context.Background(), ilp.Address{}, prepare)
	if fulfill != nil || reject != forwarded {
		t.Fatalf("expected non-peer.config request to forward to Next, got fulfill=%+v reject=%+v", fulfill, reject)
	}
}
