// Package ildcp implements the ILDCP (Interledger Dynamic Configuration
// Protocol) collaborator a sender queries once at connection start to
// learn its own address and asset details from its parent connector.
package ildcp

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/oer"
	streamerrors "github.com/interledger4j/ilpstream/stream/errors"
)

// peerConfigAddress is the conventional destination connectors reserve
// for ILDCP configuration requests.
var peerConfigAddress = ilp.MustAddress("peer.config")

// zeroFulfillment and peerConfigCondition implement the ILDCP
// zero-fulfillment convention (RFC 0031): every peer.config request is
// fulfilled with 32 zero bytes, so its execution condition is always
// SHA256 of 32 zero bytes rather than a per-connection hashlock.
var zeroFulfillment [32]byte
var peerConfigCondition = sha256.Sum256(zeroFulfillment[:])

// Info is the local endpoint's configuration as reported by ILDCP.
type Info struct {
	ClientAddress ilp.Address
	AssetCode     string
	AssetScale    uint8
}

// Client fetches Info over a RequestHandler collaborator representing
// the connection to the parent connector.
type Client struct {
	Next ilp.RequestHandler
}

// GetInfo sends a zero-amount, zero-fulfillable Prepare to peer.config
// and parses the resulting Fulfill's data as an
// {client_address, asset_code, asset_scale} OER tuple.
func (c *Client) GetInfo(ctx context.Context, from ilp.Address) (Info, error) {
	prepare := ilp.PrepareBuilder{
		Destination:        peerConfigAddress,
		Amount:             0,
		ExpiresAt:          time.Now().Add(30 * time.Second),
		ExecutionCondition: peerConfigCondition,
	}.Build()

	fulfill, reject := c.Next.HandleRequest(ctx, from, prepare)
	if reject != nil {
		return Info{}, &streamerrors.ConnectionError{Msg: fmt.Sprintf("ildcp request rejected: %s %s", reject.Code, reject.Message)}
	}
	if fulfill == nil {
		return Info{}, &streamerrors.ConnectionError{Msg: "ildcp request returned neither fulfill nor reject"}
	}

	info, err := decode(fulfill.Data)
	if err != nil {
		return Info{}, &streamerrors.ConnectionError{Msg: "could not parse ildcp response", Cause: err}
	}
	return info, nil
}

// decode parses the OER-encoded {client_address, asset_code, asset_scale} tuple.
func decode(data []byte) (Info, error) {
	addrBytes, n, err := oer.ReadVarOctetString(data)
	if err != nil {
		return Info{}, fmt.Errorf("ildcp: client_address: %w", err)
	}
	offset := n

	addr, err := ilp.NewAddress(string(addrBytes))
	if err != nil {
		return Info{}, fmt.Errorf("ildcp: invalid client_address: %w", err)
	}

	assetCode, n, err := oer.ReadVarOctetString(data[offset:])
	if err != nil {
		return Info{}, fmt.Errorf("ildcp: asset_code: %w", err)
	}
	offset += n

	if len(data) <= offset {
		return Info{}, fmt.Errorf("ildcp: missing asset_scale")
	}
	assetScale := data[offset]

	return Info{ClientAddress: addr, AssetCode: string(assetCode), AssetScale: assetScale}, nil
}

// Encode serializes info as the OER tuple a connector's ILDCP responder
// would return, for use by test fixtures and in-process stub connectors.
func Encode(info Info) []byte {
	buf := oer.WriteVarOctetString(nil, info.ClientAddress.Bytes())
	buf = oer.WriteVarOctetString(buf, []byte(info.AssetCode))
	return append(buf, info.AssetScale)
}

// Responder answers peer.config requests with a fixed Info, forwarding
// every other destination to Next. A node composes it in front of its
// STREAM receiver so a peer's Client.GetInfo call and its STREAM
// Prepares can travel through the same RequestHandler pipeline.
type Responder struct {
	Info Info
	Next ilp.RequestHandler
}

// HandleRequest implements ilp.RequestHandler.
func (r *Responder) HandleRequest(ctx context.Context, from ilp.Address, prepare ilp.Prepare) (*ilp.Fulfill, *ilp.Reject) {
	if prepare.Destination.String() != peerConfigAddress.String() {
		return r.Next.HandleRequest(ctx, from, prepare)
	}
	fulfill := ilp.FulfillBuilder{Fulfillment: zeroFulfillment, Data: Encode(r.Info)}.Build()
	return &fulfill, nil
}
