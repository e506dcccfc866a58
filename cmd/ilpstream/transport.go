package main

import (
	"encoding/base64"
	"time"

	"github.com/interledger4j/ilpstream/ilp"
)

// preparePayload and resultPayload are this CLI's own loopback wire
// format for carrying a Prepare/Fulfill/Reject over plain HTTP JSON.
// They exist only so `ilpstream send` has something concrete to talk to
// `ilpstream serve` with; a real ILP-over-HTTP/BTP connector would use
// the ASN.1 OER packet encoding instead, which is outside this module's
// scope.
type preparePayload struct {
	Destination        string `json:"destination"`
	Amount             uint64 `json:"amount"`
	ExpiresAt          string `json:"expires_at"`
	ExecutionCondition string `json:"execution_condition"`
	Data               string `json:"data"`
}

type resultPayload struct {
	Fulfillment string `json:"fulfillment,omitempty"`
	Data        string `json:"data,omitempty"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
	TriggeredBy string `json:"triggered_by,omitempty"`
}

func encodePrepare(prepare ilp.Prepare) preparePayload {
	return preparePayload{
		Destination:        prepare.Destination.String(),
		Amount:             prepare.Amount,
		ExpiresAt:          prepare.ExpiresAt.UTC().Format(time.RFC3339Nano),
		ExecutionCondition: base64.StdEncoding.EncodeToString(prepare.ExecutionCondition[:]),
		Data:               base64.StdEncoding.EncodeToString(prepare.Data),
	}
}

func decodePrepare(p preparePayload) (ilp.Prepare, error) {
	destination, err := ilp.NewAddress(p.Destination)
	if err != nil {
		return ilp.Prepare{}, err
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, p.ExpiresAt)
	if err != nil {
		return ilp.Prepare{}, err
	}
	condition, err := base64.StdEncoding.DecodeString(p.ExecutionCondition)
	if err != nil {
		return ilp.Prepare{}, err
	}
	var conditionArr [32]byte
	copy(conditionArr[:], condition)
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return ilp.Prepare{}, err
	}
	return ilp.PrepareBuilder{
		Destination:        destination,
		Amount:             p.Amount,
		ExpiresAt:          expiresAt,
		ExecutionCondition: conditionArr,
		Data:               data,
	}.Build(), nil
}

func encodeResult(fulfill *ilp.Fulfill, reject *ilp.Reject) resultPayload {
	if fulfill != nil {
		return resultPayload{
			Fulfillment: base64.StdEncoding.EncodeToString(fulfill.Fulfillment[:]),
			Data:        base64.StdEncoding.EncodeToString(fulfill.Data),
		}
	}
	return resultPayload{
		Code:        string(reject.Code),
		Message:     reject.Message,
		TriggeredBy: reject.TriggeredBy.String(),
		Data:        base64.StdEncoding.EncodeToString(reject.Data),
	}
}

func decodeResult(r resultPayload) (*ilp.Fulfill, *ilp.Reject, error) {
	if r.Code != "" {
		data, err := base64.StdEncoding.DecodeString(r.Data)
		if err != nil {
			return nil, nil, err
		}
		triggeredBy, _ := ilp.NewAddress(r.TriggeredBy)
		reject := ilp.RejectBuilder{
			Code:        ilp.ErrorCode(r.Code),
			Message:     r.Message,
			TriggeredBy: triggeredBy,
			Data:        data,
		}.Build()
		return nil, &reject, nil
	}
	fulfillment, err := base64.StdEncoding.DecodeString(r.Fulfillment)
	if err != nil {
		return nil, nil, err
	}
	data, err := base64.StdEncoding.DecodeString(r.Data)
	if err != nil {
		return nil, nil, err
	}
	var fulfillmentArr [32]byte
	copy(fulfillmentArr[:], fulfillment)
	fulfill := ilp.FulfillBuilder{Fulfillment: fulfillmentArr, Data: data}.Build()
	return &fulfill, nil, nil
}
