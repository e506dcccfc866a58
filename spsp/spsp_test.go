package spsp

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/interledger4j/ilpstream/ilp"
)

type stubGenerator struct {
	destination ilp.Address
	secret      [32]byte
}

func (g stubGenerator) Generate(base ilp.Address) (ilp.Address, [32]byte, error) {
	return g.destination, g.secret, nil
}

func TestHandlerAndClientRoundTrip(t *testing.T) {
	want := stubGenerator{
		destination: ilp.MustAddress("example.receiver.abc123"),
		secret:      [32]byte{0x01, 0x02, 0x03},
	}
	handler := &Handler{Generator: want, Base: ilp.MustAddress("example.receiver")}

	server := httptest.NewServer(handler)
	defer server.Close()

	client := &Client{}
	destination, secret, err := client.Query(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if destination.String() != want.destination.String() {
		t.Fatalf("destination = %q, want %q", destination.String(), want.destination.String())
	}
	if secret != want.secret {
		t.Fatalf("secret mismatch")
	}
}
