package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/ildcp"
	"github.com/interledger4j/ilpstream/spsp"
	"github.com/interledger4j/ilpstream/stream/sender"
	"github.com/interledger4j/ilpstream/stream/validator"
	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var spspEndpoint string
	var amount uint64

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send money to an SPSP payment pointer over an existing ILP transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), spspEndpoint, amount)
		},
	}
	cmd.Flags().StringVar(&spspEndpoint, "to", "", "SPSP query URL of the receiver")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "source amount to send, in the sender's asset units")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// runSend queries SPSP at spspEndpoint, fetches ILDCP info and runs
// send_money for amount. Every Prepare goes through an httpTransport to
// cfg.UpstreamURL wrapped in a validator.Service.
func runSend(ctx context.Context, spspEndpoint string, amount uint64) error {
	cfg := loadConfigOrExit()

	if cfg.UpstreamURL == "" {
		return fmt.Errorf("ILPSTREAM_UPSTREAM_URL must be set to send money")
	}

	spspClient := &spsp.Client{}
	destination, sharedSecret, err := spspClient.Query(ctx, spspEndpoint)
	if err != nil {
		return fmt.Errorf("spsp query failed: %w", err)
	}

	transport := newHTTPTransport(cfg.UpstreamURL)
	validated := validator.New(transport, nil)

	baseAddress, err := ilp.NewAddress(cfg.BaseAddress)
	if err != nil {
		return fmt.Errorf("invalid base address: %w", err)
	}

	ildcpClient := &ildcp.Client{Next: validated}
	info, err := ildcpClient.GetInfo(ctx, baseAddress)
	if err != nil {
		return fmt.Errorf("ildcp fetch failed: %w", err)
	}

	state := sender.New(sender.Params{
		From:             info.ClientAddress,
		To:               destination,
		SourceAmount:     amount,
		SourceAssetCode:  info.AssetCode,
		SourceAssetScale: info.AssetScale,
		SharedSecret:     sharedSecret[:],
		Next:             validated,
	})

	receipt, err := state.Run(ctx)
	if err != nil {
		return fmt.Errorf("send_money failed: %w", err)
	}

	slog.Info("send_money complete",
		"sent_amount", receipt.SentAmount,
		"delivered_amount", receipt.DeliveredAmount,
		"delivered_asset_code", receipt.DeliveredAssetCode,
	)
	return nil
}

// httpTransport posts each Prepare to a peer's /ilp/prepare endpoint
// using this CLI's own loopback JSON envelope (see transport.go). A
// real connector would instead speak ILP-over-HTTP/BTP's OER packet
// encoding; that binding is outside this module's scope, and this
// transport exists only so `ilpstream send` has a real peer to drive
// send_money against (typically another `ilpstream serve`).
type httpTransport struct {
	client   *http.Client
	endpoint string
}

func newHTTPTransport(endpoint string) *httpTransport {
	return &httpTransport{client: http.DefaultClient, endpoint: endpoint}
}

func (t *httpTransport) HandleRequest(ctx context.Context, from ilp.Address, prepare ilp.Prepare) (*ilp.Fulfill, *ilp.Reject) {
	reject := func(msg string) (*ilp.Fulfill, *ilp.Reject) {
		r := ilp.RejectBuilder{Code: ilp.CodeF99ApplicationError, Message: msg, TriggeredBy: from}.Build()
		return nil, &r
	}

	body, err := json.Marshal(encodePrepare(prepare))
	if err != nil {
		return reject("encoding prepare for loopback transport: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/ilp/prepare", bytes.NewReader(body))
	if err != nil {
		return reject("building loopback transport request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return reject("loopback transport request failed: " + err.Error())
	}
	defer resp.Body.Close()

	var payload resultPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return reject("decoding loopback transport response: " + err.Error())
	}
	fulfill, rej, err := decodeResult(payload)
	if err != nil {
		return reject("decoding loopback transport result: " + err.Error())
	}
	return fulfill, rej
}
