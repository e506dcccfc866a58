// Package crypto implements the cryptographic primitives STREAM layers
// on top of an ILP connection: HMAC-based key derivation, AES-256-GCM
// payload encryption, and the condition/fulfillment hashlock pair that
// binds a STREAM packet to the ILP Prepare carrying it.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

const (
	encryptionKeyContext  = "ilp_stream_encryption"
	fulfillmentKeyContext = "ilp_stream_fulfillment"

	// SharedSecretSize is the required length of a STREAM shared secret.
	SharedSecretSize = 32
	// TokenSize is the length of a connection generator's random token.
	TokenSize = 18
	// nonceSize is the AES-GCM IV length used by this wire format.
	nonceSize = 12
	// tagSize is the AES-GCM authentication tag length.
	tagSize = 16
)

// HMACSHA256 computes HMAC-SHA256(key, data).
func HMACSHA256(key, data []byte) [32]byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// HashSHA256 computes SHA256(data).
func HashSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// GenerateToken returns 18 cryptographically random bytes, used as the
// per-connection random component of a generated destination address.
func GenerateToken() ([TokenSize]byte, error) {
	var token [TokenSize]byte
	if _, err := io.ReadFull(rand.Reader, token[:]); err != nil {
		return token, fmt.Errorf("crypto: generate token: %w", err)
	}
	return token, nil
}

// RandomCondition returns 32 cryptographically random bytes to use as an
// execution condition that no connector can plausibly fulfill. Used for
// the Prepare that closes a STREAM connection: the sender wants a
// guaranteed Reject, never a Fulfill.
func RandomCondition() ([32]byte, error) {
	var condition [32]byte
	if _, err := io.ReadFull(rand.Reader, condition[:]); err != nil {
		return condition, fmt.Errorf("crypto: generate random condition: %w", err)
	}
	return condition, nil
}

// encryptionKey derives the AES-256-GCM key for sharedSecret.
func encryptionKey(sharedSecret []byte) [32]byte {
	return HMACSHA256(sharedSecret, []byte(encryptionKeyContext))
}

// fulfillmentKey derives the HMAC key used to compute fulfillments for
// sharedSecret.
func fulfillmentKey(sharedSecret []byte) [32]byte {
	return HMACSHA256(sharedSecret, []byte(fulfillmentKeyContext))
}

// GenerateFulfillment computes the 32-byte preimage that fulfills a
// Prepare whose data field is ilpData, under the connection's
// sharedSecret: HMAC-SHA256(HMAC-SHA256(sharedSecret, "ilp_stream_fulfillment"), ilpData).
func GenerateFulfillment(sharedSecret, ilpData []byte) [32]byte {
	key := fulfillmentKey(sharedSecret)
	return HMACSHA256(key[:], ilpData)
}

// GenerateCondition computes the execution condition for ilpData under
// sharedSecret: SHA256(GenerateFulfillment(sharedSecret, ilpData)).
func GenerateCondition(sharedSecret, ilpData []byte) [32]byte {
	fulfillment := GenerateFulfillment(sharedSecret, ilpData)
	return HashSHA256(fulfillment[:])
}

// Encrypt seals plaintext with AES-256-GCM under a key derived from
// sharedSecret, returning iv || ciphertext || tag.
func Encrypt(sharedSecret, plaintext []byte) ([]byte, error) {
	key := encryptionKey(sharedSecret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	iv := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("crypto: generate iv: %w", err)
	}
	// Seal appends ciphertext||tag after dst; dst here is iv so the
	// result is iv || ciphertext || tag, matching the wire layout in
	// the STREAM RFC's reference implementation.
	return gcm.Seal(iv, iv, plaintext, nil), nil
}

// Decrypt opens a buffer produced by Encrypt, verifying the AEAD tag.
func Decrypt(sharedSecret, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize+tagSize {
		return nil, fmt.Errorf("crypto: ciphertext too short (%d bytes)", len(ciphertext))
	}
	key := encryptionKey(sharedSecret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	iv := ciphertext[:nonceSize]
	sealed := ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt: %w", err)
	}
	return plaintext, nil
}

// ZeroBytes overwrites b with zeroes in place, for scrubbing shared
// secrets and other ephemeral key material. Nothing else in this module
// calls it.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
