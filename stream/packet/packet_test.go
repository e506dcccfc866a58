package packet

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/interledger4j/ilpstream/ilp"
	"github.com/interledger4j/ilpstream/oer"
	"github.com/interledger4j/ilpstream/stream/frames"
)

// s1Packet builds the literal reference packet from the STREAM
// transport's end-to-end test scenario S1.
func s1Packet() StreamPacket {
	return Builder{
		Sequence:      1,
		PacketType:    ilp.TypePrepare, // 12
		PrepareAmount: 99,
		Frames: []frames.Frame{
			frames.ConnectionClose{Code: frames.ErrNoError, Message: "oop"},
			frames.ConnectionNewAddress{SourceAccount: ilp.MustAddress("example.blah")},
			frames.ConnectionMaxData{MaxOffset: 1000},
			frames.ConnectionDataBlocked{MaxOffset: 2000},
			frames.ConnectionMaxStreamID{MaxStreamID: 3000},
			frames.ConnectionStreamIDBlocked{MaxStreamID: 4000},
			frames.ConnectionAssetDetails{SourceAssetCode: "XYZ", SourceAssetScale: 9},
			frames.StreamClose{StreamID: 76, Code: frames.ErrInternalError, Message: "blah"},
			frames.StreamMoney{StreamID: 88, Shares: 99},
			frames.StreamMaxMoney{StreamID: 11, ReceiveMax: 987, TotalReceived: 500},
			frames.StreamMoneyBlocked{StreamID: 66, SendMax: 20000, TotalSent: 6000},
			frames.StreamData{StreamID: 34, Offset: 9000, Data: []byte("hello")},
			frames.StreamMaxData{StreamID: 35, MaxOffset: 8766},
			frames.StreamDataBlocked{StreamID: 888, MaxOffset: 44444},
		},
	}.Build()
}

const s1Hex = `
01 0C 01 01 01 63 01 0E 01 05 01 03 6F 6F 70 02 0D 0C 65 78 61 6D 70 6C 65
2E 62 6C 61 68 03 03 02 03 E8 04 03 02 07 D0 05 03 02 0B B8 06 03 02 0F A0
07 05 03 58 59 5A 09 10 08 01 4C 02 04 62 6C 61 68 11 04 01 58 01 63 12 08
01 0B 02 03 DB 02 01 F4 13 08 01 42 02 4E 20 02 17 70 14 0B 01 22 02 23 28
05 68 65 6C 6C 6F 15 05 01 23 02 22 3E 16 06 02 03 78 02 AD 9C`

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	cleaned := strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(cleaned)
	if err != nil {
		t.Fatalf("decoding expected hex: %v", err)
	}
	return b
}

func TestS1EncodeReferencePacket(t *testing.T) {
	want := mustDecodeHex(t, s1Hex)
	got := Encode(s1Packet())
	if !bytes.Equal(got, want) {
		t.Fatalf("S1 encoding mismatch:\n got  % X\n want % X", got, want)
	}
}

func TestS1DecodeReferencePacket(t *testing.T) {
	raw := mustDecodeHex(t, s1Hex)
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Sequence != 1 || decoded.PacketType != ilp.TypePrepare || decoded.PrepareAmount != 99 {
		t.Fatalf("decoded header mismatch: %+v", decoded)
	}
	if len(decoded.Frames) != 14 {
		t.Fatalf("decoded %d frames, want 14", len(decoded.Frames))
	}
	if sm, ok := decoded.Frames[8].(frames.StreamMoney); !ok || sm.StreamID != 88 || sm.Shares != 99 {
		t.Fatalf("frame 8 = %#v, want StreamMoney{88,99}", decoded.Frames[8])
	}
}

func TestRoundTripArbitraryPacket(t *testing.T) {
	p := Builder{
		Sequence:      42,
		PacketType:    ilp.TypeFulfill,
		PrepareAmount: 7,
		Frames: []frames.Frame{
			frames.StreamMoney{StreamID: 1, Shares: 1},
			frames.StreamData{StreamID: 2, Offset: 0, Data: []byte("x")},
		},
	}.Build()
	encoded := Encode(p)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Sequence != p.Sequence || decoded.PacketType != p.PacketType || decoded.PrepareAmount != p.PrepareAmount {
		t.Fatalf("round trip header mismatch: got %+v", decoded)
	}
	if len(decoded.Frames) != len(p.Frames) {
		t.Fatalf("round trip frame count mismatch: got %d, want %d", len(decoded.Frames), len(p.Frames))
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := bytes.Repeat([]byte{0x07}, 32)
	p := s1Packet()
	ciphertext, err := ToEncrypted(secret, p)
	if err != nil {
		t.Fatalf("ToEncrypted: %v", err)
	}
	decoded, err := FromEncrypted(secret, ciphertext)
	if err != nil {
		t.Fatalf("FromEncrypted: %v", err)
	}
	if decoded.Sequence != p.Sequence || decoded.PrepareAmount != p.PrepareAmount {
		t.Fatalf("decrypted packet mismatch: %+v", decoded)
	}
}

func TestDecodeRejectsNumFramesMismatch(t *testing.T) {
	p := Builder{
		Sequence:      1,
		PacketType:    ilp.TypePrepare,
		PrepareAmount: 0,
		Frames:        []frames.Frame{frames.StreamMoney{StreamID: 1, Shares: 1}},
	}.Build()
	encoded := Encode(p)

	// Truncating the sole frame's trailer desyncs num_frames from the
	// number of frames actually parseable from the buffer tail.
	truncated := encoded[:len(encoded)-1]
	if _, err := Decode(truncated); err == nil {
		t.Fatal("Decode should fail when frame trailer is truncated")
	}

	// A num_frames prefix of 2 over a single well-formed frame. Byte 6 is
	// the num_frames content (version, type, 01 01 sequence, 00 amount, 01).
	overcounted := append([]byte(nil), encoded...)
	overcounted[6] = 2
	if _, err := Decode(overcounted); err == nil {
		t.Fatal("Decode should fail when num_frames exceeds the frames present")
	}
}

func TestSingleByteMutationBreaksDecodeOrAuthentication(t *testing.T) {
	secret := bytes.Repeat([]byte{0x08}, 32)
	p := s1Packet()
	ciphertext, err := ToEncrypted(secret, p)
	if err != nil {
		t.Fatalf("ToEncrypted: %v", err)
	}
	mutated := append([]byte(nil), ciphertext...)
	mutated[len(mutated)/2] ^= 0x01

	if _, err := FromEncrypted(secret, mutated); err == nil {
		t.Fatal("FromEncrypted should fail after a single-byte mutation")
	}
}

func TestSaturatingReceiveMax(t *testing.T) {
	p := Builder{
		Sequence:      1,
		PacketType:    ilp.TypeFulfill,
		PrepareAmount: 0,
		Frames: []frames.Frame{
			frames.StreamMaxMoney{StreamID: 1, ReceiveMax: ^uint64(0), TotalReceived: 0},
		},
	}.Build()
	encoded := Encode(p)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := decoded.Frames[0].(frames.StreamMaxMoney)
	if got.ReceiveMax != ^uint64(0) {
		t.Fatalf("ReceiveMax = %d, want MaxUint64", got.ReceiveMax)
	}

	// A receive_max encoded in 9 bytes saturates to MaxUint64.
	contents := oer.WriteVarUint(nil, 1)
	contents = oer.WriteVarOctetString(contents, bytes.Repeat([]byte{0xFF}, 9))
	contents = oer.WriteVarUint(contents, 0)
	raw := []byte{Version, byte(ilp.TypeFulfill)}
	raw = oer.WriteVarUint(raw, 1) // sequence
	raw = oer.WriteVarUint(raw, 0) // prepare_amount
	raw = oer.WriteVarUint(raw, 1) // num_frames
	raw = append(raw, byte(frames.TypeStreamMaxMoney))
	raw = oer.WriteVarOctetString(raw, contents)
	decoded, err = Decode(raw)
	if err != nil {
		t.Fatalf("Decode 9-byte receive_max: %v", err)
	}
	got = decoded.Frames[0].(frames.StreamMaxMoney)
	if got.ReceiveMax != ^uint64(0) {
		t.Fatalf("9-byte ReceiveMax = %d, want MaxUint64", got.ReceiveMax)
	}
}
