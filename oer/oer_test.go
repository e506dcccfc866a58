package oer

import (
	"bytes"
	"math"
	"testing"
)

func TestWriteReadVarUintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 99, 127, 128, 255, 1000, 65535, 1 << 32, math.MaxUint64}
	for _, n := range cases {
		buf := WriteVarUint(nil, n)
		got, consumed, err := ReadVarUint(buf)
		if err != nil {
			t.Fatalf("ReadVarUint(%d): %v", n, err)
		}
		if got != n {
			t.Fatalf("ReadVarUint round-trip: want %d, got %d", n, got)
		}
		if consumed != len(buf) {
			t.Fatalf("consumed %d, want %d", consumed, len(buf))
		}
	}
}

func TestWriteVarUintSmallValuesAreOneByteLength(t *testing.T) {
	buf := WriteVarUint(nil, 99)
	// length prefix 01, content 63
	want := []byte{0x01, 0x63}
	if !bytes.Equal(buf, want) {
		t.Fatalf("WriteVarUint(99) = % x, want % x", buf, want)
	}
}

func TestWriteVarUintZeroIsEmptyContent(t *testing.T) {
	buf := WriteVarUint(nil, 0)
	want := []byte{0x00}
	if !bytes.Equal(buf, want) {
		t.Fatalf("WriteVarUint(0) = % x, want % x", buf, want)
	}
}

func TestVarOctetStringLongLength(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 200)
	buf := WriteVarOctetString(nil, data)
	if buf[0] != 0x80|0x01 {
		t.Fatalf("length-of-length byte = %x, want %x", buf[0], 0x80|0x01)
	}
	if buf[1] != 200 {
		t.Fatalf("length byte = %d, want 200", buf[1])
	}
	got, n, err := ReadVarOctetString(buf)
	if err != nil {
		t.Fatalf("ReadVarOctetString: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestSaturatingReadVarUintSaturatesOnLongContent(t *testing.T) {
	content := bytes.Repeat([]byte{0xFF}, 9)
	buf := WriteVarOctetString(nil, content)
	got, _, err := SaturatingReadVarUint(buf)
	if err != nil {
		t.Fatalf("SaturatingReadVarUint: %v", err)
	}
	if got != math.MaxUint64 {
		t.Fatalf("SaturatingReadVarUint = %d, want MaxUint64", got)
	}
}

func TestReadVarUintFailsOnLongContent(t *testing.T) {
	content := bytes.Repeat([]byte{0xFF}, 9)
	buf := WriteVarOctetString(nil, content)
	if _, _, err := ReadVarUint(buf); err == nil {
		t.Fatal("ReadVarUint should fail on a 9-byte integer content")
	}
}

func TestReadVarOctetStringTruncatedBuffer(t *testing.T) {
	buf := []byte{0x05, 0x01, 0x02}
	if _, _, err := ReadVarOctetString(buf); err == nil {
		t.Fatal("expected error reading truncated buffer")
	}
}

func TestReadVarOctetStringEmptyBuffer(t *testing.T) {
	if _, _, err := ReadVarOctetString(nil); err == nil {
		t.Fatal("expected error reading empty buffer")
	}
}
