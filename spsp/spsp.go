// Package spsp implements the SPSP (Simple Payment Setup Protocol)
// query that a STREAM sender uses to discover a receiver's destination
// address and shared secret before it ever sends a Prepare. SPSP itself
// is an unrelated HTTP query; this package is the thin responder and
// client around the STREAM connection generator.
package spsp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/interledger4j/ilpstream/ilp"
)

const contentType = "application/spsp4+json"

// QueryResponse is the JSON body an SPSP responder returns.
type QueryResponse struct {
	DestinationAccount string `json:"destination_account"`
	SharedSecret        string `json:"shared_secret"`
}

// generator is the subset of *conn.Generator the responder depends on.
type generator interface {
	Generate(base ilp.Address) (ilp.Address, [32]byte, error)
}

// Handler is an http.Handler that answers SPSP queries by generating a
// fresh connection for each request.
type Handler struct {
	Generator generator
	Base      ilp.Address
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	queryID := uuid.New().String()

	destination, sharedSecret, err := h.Generator.Generate(h.Base)
	if err != nil {
		slog.Error("spsp query failed", "query_id", queryID, "error", err)
		http.Error(w, "could not generate connection", http.StatusInternalServerError)
		return
	}
	slog.Debug("spsp query answered", "query_id", queryID, "destination", destination.String())

	resp := QueryResponse{
		DestinationAccount: destination.String(),
		SharedSecret:        base64.StdEncoding.EncodeToString(sharedSecret[:]),
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "max-age=60")
	_ = json.NewEncoder(w).Encode(resp)
}

// Client queries SPSP responders over HTTP.
type Client struct {
	HTTPClient *http.Client
}

// Query fetches and parses a receiver's SPSP response, returning the
// destination address and decoded shared secret.
func (c *Client) Query(ctx context.Context, endpoint string) (ilp.Address, [32]byte, error) {
	var secret [32]byte

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ilp.Address{}, secret, fmt.Errorf("spsp: building request: %w", err)
	}
	req.Header.Set("Accept", contentType)

	resp, err := httpClient.Do(req)
	if err != nil {
		return ilp.Address{}, secret, fmt.Errorf("spsp: query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ilp.Address{}, secret, fmt.Errorf("spsp: query returned status %d", resp.StatusCode)
	}

	var body QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ilp.Address{}, secret, fmt.Errorf("spsp: decoding response: %w", err)
	}

	destination, err := ilp.NewAddress(body.DestinationAccount)
	if err != nil {
		return ilp.Address{}, secret, fmt.Errorf("spsp: invalid destination_account: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(body.SharedSecret)
	if err != nil {
		return ilp.Address{}, secret, fmt.Errorf("spsp: invalid shared_secret: %w", err)
	}
	if len(decoded) != 32 {
		return ilp.Address{}, secret, fmt.Errorf("spsp: shared_secret is %d bytes, want 32", len(decoded))
	}
	copy(secret[:], decoded)

	return destination, secret, nil
}
