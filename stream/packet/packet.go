// Package packet implements the STREAM packet codec: the plaintext
// outer envelope (version, ilp type, sequence, prepare amount, frame
// list) that is encrypted wholesale into a Prepare/Fulfill/Reject's
// opaque data field.
package packet

import (
	"fmt"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/oer"
	"github.com/interledger4j/ilpstream/stream/crypto"
	"github.com/interledger4j/ilpstream/stream/frames"
)

// Version is the only StreamPacket version this implementation emits or accepts.
const Version uint8 = 1

// StreamPacket is the STREAM transport's logical plaintext value.
type StreamPacket struct {
	Sequence      uint64
	PacketType    ilp.PacketType
	PrepareAmount uint64
	Frames        []frames.Frame
}

// Builder builds a StreamPacket.
type Builder struct {
	Sequence      uint64
	PacketType    ilp.PacketType
	PrepareAmount uint64
	Frames        []frames.Frame
}

// Build returns the constructed StreamPacket.
func (b Builder) Build() StreamPacket {
	return StreamPacket{
		Sequence:      b.Sequence,
		PacketType:    b.PacketType,
		PrepareAmount: b.PrepareAmount,
		Frames:        b.Frames,
	}
}

// Encode serializes p to its plaintext wire form: version, ilp_type,
// sequence, prepare_amount, num_frames, then each frame in order.
func Encode(p StreamPacket) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, Version, byte(p.PacketType))
	buf = oer.WriteVarUint(buf, p.Sequence)
	buf = oer.WriteVarUint(buf, p.PrepareAmount)
	buf = oer.WriteVarUint(buf, uint64(len(p.Frames)))
	for _, f := range p.Frames {
		buf = frames.WriteTo(buf, f)
	}
	return buf
}

// Decode parses buf as a plaintext StreamPacket. It fails if num_frames
// disagrees with the number of frames actually present at the buffer
// tail, or if any frame fails to parse; it never fails merely because a
// frame's type tag is unrecognized (those decode to frames.Unknown).
func Decode(buf []byte) (StreamPacket, error) {
	if len(buf) < 2 {
		return StreamPacket{}, fmt.Errorf("packet: %w", oer.ErrBufferTooShort)
	}
	version := buf[0]
	if version != Version {
		return StreamPacket{}, fmt.Errorf("packet: unsupported version %d", version)
	}
	packetType := ilp.PacketType(buf[1])
	offset := 2

	sequence, n, err := oer.ReadVarUint(buf[offset:])
	if err != nil {
		return StreamPacket{}, fmt.Errorf("packet: sequence: %w", err)
	}
	offset += n

	prepareAmount, n, err := oer.ReadVarUint(buf[offset:])
	if err != nil {
		return StreamPacket{}, fmt.Errorf("packet: prepare_amount: %w", err)
	}
	offset += n

	numFrames, n, err := oer.ReadVarUint(buf[offset:])
	if err != nil {
		return StreamPacket{}, fmt.Errorf("packet: num_frames: %w", err)
	}
	offset += n

	parsed := make([]frames.Frame, 0, numFrames)
	for offset < len(buf) {
		f, n, err := frames.ReadFrom(buf[offset:])
		if err != nil {
			return StreamPacket{}, fmt.Errorf("packet: frame %d: %w", len(parsed), err)
		}
		parsed = append(parsed, f)
		offset += n
	}

	if uint64(len(parsed)) != numFrames {
		return StreamPacket{}, fmt.Errorf("packet: num_frames=%d but found %d frames in trailer", numFrames, len(parsed))
	}

	return StreamPacket{
		Sequence:      sequence,
		PacketType:    packetType,
		PrepareAmount: prepareAmount,
		Frames:        parsed,
	}, nil
}

// ToEncrypted encodes p and seals it with sharedSecret, producing the
// bytes that belong in a Prepare/Fulfill/Reject's data field.
func ToEncrypted(sharedSecret []byte, p StreamPacket) ([]byte, error) {
	plaintext := Encode(p)
	ciphertext, err := crypto.Encrypt(sharedSecret, plaintext)
	if err != nil {
		return nil, fmt.Errorf("packet: encrypt: %w", err)
	}
	return ciphertext, nil
}

// FromEncrypted opens ciphertext with sharedSecret and decodes the
// resulting plaintext as a StreamPacket.
func FromEncrypted(sharedSecret []byte, ciphertext []byte) (StreamPacket, error) {
	plaintext, err := crypto.Decrypt(sharedSecret, ciphertext)
	if err != nil {
		return StreamPacket{}, fmt.Errorf("packet: decrypt: %w", err)
	}
	return Decode(plaintext)
}

// FindAssetDetails scans p's frames for a ConnectionAssetDetails frame,
// returning its fields and true if one is present.
func FindAssetDetails(p StreamPacket) (code string, scale uint8, ok bool) {
	for _, f := range p.Frames {
		if ad, isAD := f.(frames.ConnectionAssetDetails); isAD {
			return ad.SourceAssetCode, ad.SourceAssetScale, true
		}
	}
	return "", 0, false
}
