// Package config loads an ilpstream node's configuration from
// environment variables (with an optional .env file for local
// development), the same way the rest of this module's ambient
// stack does.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for an ilpstream node.
type Config struct {
	// ServerSecret seeds the connection generator's secret-generator
	// key; must be exactly 32 bytes.
	ServerSecret []byte

	// BaseAddress is this node's ILP address, used as the base for
	// generated connection destinations.
	BaseAddress string

	// ListenAddr is the address the SPSP/STREAM HTTP listener binds to.
	ListenAddr string

	// UpstreamURL is the base URL of the peer's loopback /ilp/prepare
	// endpoint (cmd/ilpstream's JSON envelope), used by the sender and
	// the ILDCP client.
	UpstreamURL string

	// AssetCode and AssetScale describe this node's own asset, reported
	// to peers via ILDCP.
	AssetCode  string
	AssetScale uint8

	// LivenessTimeout is read from ILPSTREAM_LIVENESS_TIMEOUT_SECONDS.
	// The sender does not read it; send_money uses the fixed
	// sender.LivenessTimeout.
	LivenessTimeout time.Duration

	// PrepareExpiry is read from ILPSTREAM_PREPARE_EXPIRY_SECONDS. The
	// sender does not read it; outgoing Prepares use the fixed
	// sender.PrepareExpiry.
	PrepareExpiry time.Duration
}

// Load reads configuration from environment variables. A .env file in
// the working directory is loaded first if present (dev convenience);
// production deployments rely on real environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load() // no-op if .env absent

	secretHex := getEnv("ILPSTREAM_SERVER_SECRET", "")
	if secretHex == "" {
		return nil, fmt.Errorf("ILPSTREAM_SERVER_SECRET env var is required (32-byte hex)")
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("ILPSTREAM_SERVER_SECRET must be valid hex: %w", err)
	}
	if len(secret) != 32 {
		return nil, fmt.Errorf("ILPSTREAM_SERVER_SECRET must be exactly 32 bytes (64 hex chars), got %d", len(secret))
	}

	baseAddress := getEnv("ILPSTREAM_BASE_ADDRESS", "")
	if baseAddress == "" {
		return nil, fmt.Errorf("ILPSTREAM_BASE_ADDRESS env var is required")
	}

	cfg := &Config{
		ServerSecret:    secret,
		BaseAddress:     baseAddress,
		ListenAddr:      getEnv("ILPSTREAM_LISTEN_ADDR", ":7768"),
		UpstreamURL:     getEnv("ILPSTREAM_UPSTREAM_URL", ""),
		AssetCode:       getEnv("ILPSTREAM_ASSET_CODE", "USD"),
		AssetScale:      uint8(getEnvInt("ILPSTREAM_ASSET_SCALE", 9)),
		LivenessTimeout: time.Duration(getEnvInt("ILPSTREAM_LIVENESS_TIMEOUT_SECONDS", 30)) * time.Second,
		PrepareExpiry:   time.Duration(getEnvInt("ILPSTREAM_PREPARE_EXPIRY_SECONDS", 30)) * time.Second,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
