// Package conn implements the STREAM connection generator: stateless
// derivation of per-connection destination addresses and shared
// secrets from a single server secret, and authenticated re-derivation
// of the secret from an incoming destination address.
package conn

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/stream/crypto"
)

const secretGeneratorContext = "ilp_stream_secret_generator"

// ErrUnauthenticated is returned by Rederive when a destination's
// embedded auth tag does not match the value recomputed from the
// re-derived shared secret, meaning the address was tampered with or
// was never generated by this generator.
var ErrUnauthenticated = errors.New("conn: unauthenticated destination")

const (
	tokenLen   = crypto.TokenSize // 18
	authTagLen = 14
	// encodedSuffixLen is the decoded byte length of the last address
	// segment this generator emits: token || auth_tag.
	encodedSuffixLen = tokenLen + authTagLen // 32
)

var b64 = base64.RawURLEncoding

// Generator derives per-connection destinations and shared secrets
// from a single 32-byte server secret. It holds no per-connection
// state and is safe for concurrent use once constructed.
type Generator struct {
	secretGenerator [32]byte
}

// NewGenerator derives a Generator's secret-generator key from
// serverSecret: G = HMAC-SHA256(serverSecret, "ilp_stream_secret_generator").
func NewGenerator(serverSecret []byte) *Generator {
	return &Generator{secretGenerator: crypto.HMACSHA256(serverSecret, []byte(secretGeneratorContext))}
}

// Generate derives a fresh (destination, sharedSecret) pair rooted at
// base. The destination embeds an authentication tag so that Rederive
// can recover the same shared secret from the address alone.
func (g *Generator) Generate(base ilp.Address) (ilp.Address, [32]byte, error) {
	token, err := crypto.GenerateToken()
	if err != nil {
		return ilp.Address{}, [32]byte{}, fmt.Errorf("conn: generate: %w", err)
	}
	sharedSecret := crypto.HMACSHA256(g.secretGenerator[:], token[:])

	addr1, err := base.WithSuffix(b64.EncodeToString(token[:]))
	if err != nil {
		return ilp.Address{}, [32]byte{}, fmt.Errorf("conn: generate: %w", err)
	}

	authTag := crypto.HMACSHA256(sharedSecret[:], addr1.Bytes())
	destStr := addr1.String() + b64.EncodeToString(authTag[:authTagLen])
	destination, err := ilp.NewAddress(destStr)
	if err != nil {
		return ilp.Address{}, [32]byte{}, fmt.Errorf("conn: generate: %w", err)
	}
	return destination, sharedSecret, nil
}

// Rederive recovers the shared secret embedded in destination,
// verifying its authentication tag in constant time. It returns
// ErrUnauthenticated if destination was not produced by this
// generator (or any of its bytes were altered).
func (g *Generator) Rederive(destination ilp.Address) ([32]byte, error) {
	var zero [32]byte
	last := destination.LastSegment()
	decoded, err := b64.DecodeString(last)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if len(decoded) != encodedSuffixLen {
		return zero, fmt.Errorf("%w: decoded segment is %d bytes, want %d", ErrUnauthenticated, len(decoded), encodedSuffixLen)
	}
	token := decoded[:tokenLen]
	tag := decoded[tokenLen:]

	sharedSecret := crypto.HMACSHA256(g.secretGenerator[:], token)

	full := destination.String()
	encodedTagLen := b64.EncodedLen(authTagLen)
	if len(full) <= encodedTagLen {
		return zero, fmt.Errorf("%w: destination too short", ErrUnauthenticated)
	}
	prefix := full[:len(full)-encodedTagLen]

	expectedTag := crypto.HMACSHA256(sharedSecret[:], []byte(prefix))
	if subtle.ConstantTimeCompare(expectedTag[:authTagLen], tag) != 1 {
		return zero, ErrUnauthenticated
	}
	return sharedSecret, nil
}
