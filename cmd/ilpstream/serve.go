package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/interledger4j/ilpstream/ildcp"
	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/internal/config"
	"github.com/interledger4j/ilpstream/spsp"
	"github.com/interledger4j/ilpstream/stream/conn"
	"github.com/interledger4j/ilpstream/stream/receiver"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the SPSP responder and STREAM receiver for this node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg := loadConfigOrExit()

	baseAddress, err := ilp.NewAddress(cfg.BaseAddress)
	if err != nil {
		slog.Error("invalid base address", "error", err)
		os.Exit(1)
	}

	generator := conn.NewGenerator(cfg.ServerSecret)
	recv := receiver.New(generator, baseAddress)
	withIldcp := &ildcp.Responder{
		Info: ildcp.Info{
			ClientAddress: baseAddress,
			AssetCode:     cfg.AssetCode,
			AssetScale:    cfg.AssetScale,
		},
		Next: recv,
	}

	mux := chi.NewRouter()
	mux.Handle("/.well-known/pay", &spsp.Handler{Generator: generator, Base: baseAddress})
	mux.Post("/ilp/prepare", prepareHandler(withIldcp))

	slog.Info("ilpstream node starting",
		"addr", cfg.ListenAddr,
		"base_address", cfg.BaseAddress,
	)

	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	return nil
}

// prepareHandler exposes recv over this CLI's loopback JSON transport so
// `ilpstream send` can reach it without a real ILP connector wire
// encoding. It has no counterpart in the STREAM transport core itself.
func prepareHandler(recv ilp.RequestHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload preparePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid prepare payload", http.StatusBadRequest)
			return
		}
		prepare, err := decodePrepare(payload)
		if err != nil {
			http.Error(w, "invalid prepare payload", http.StatusBadRequest)
			return
		}

		fulfill, reject := recv.HandleRequest(r.Context(), ilp.Address{}, prepare)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(encodeResult(fulfill, reject))
	}
}
