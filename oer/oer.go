// Package oer implements the subset of the OER (Octet Encoding Rules)
// variable-length integer and octet-string encodings used by the ILP
// STREAM wire format: canonical length-prefixed unsigned integers and
// length-prefixed byte strings.
package oer

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBufferTooShort is returned when a read operation runs past the end
// of the supplied buffer.
var ErrBufferTooShort = errors.New("oer: buffer too short")

// ErrLengthTooLong is returned when a length-of-length prefix exceeds
// what the reader supports (more than 8 bytes of length, or a uint
// value that would overflow 8 bytes of content).
var ErrLengthTooLong = errors.New("oer: length prefix too long")

// WriteVarUint appends n to buf as a variable-length octet string
// holding n's minimal big-endian bytes: 0 is the single byte 0x00, 99
// is 0x01 0x63, 1000 is 0x02 0x03 0xE8.
func WriteVarUint(buf []byte, n uint64) []byte {
	return WriteVarOctetString(buf, uintBytes(n))
}

// uintBytes returns the minimal big-endian encoding of n (empty for 0).
func uintBytes(n uint64) []byte {
	if n == 0 {
		return nil
	}
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], n)
	i := 0
	for i < 7 && tmp[i] == 0 {
		i++
	}
	return tmp[i:]
}

// ReadVarUint reads a canonical OER variable-length unsigned integer
// from buf, returning the value and the number of bytes consumed.
func ReadVarUint(buf []byte) (uint64, int, error) {
	content, n, err := ReadVarOctetString(buf)
	if err != nil {
		return 0, 0, err
	}
	if len(content) > 8 {
		return 0, 0, fmt.Errorf("%w: %d-byte integer", ErrLengthTooLong, len(content))
	}
	var padded [8]byte
	copy(padded[8-len(content):], content)
	return binary.BigEndian.Uint64(padded[:]), n, nil
}

// SaturatingReadVarUint behaves like ReadVarUint except that an encoded
// integer longer than 8 bytes saturates to math.MaxUint64 instead of
// failing. Used for StreamMaxMoney.receive_max and
// StreamMoneyBlocked.send_max per the STREAM RFC.
func SaturatingReadVarUint(buf []byte) (uint64, int, error) {
	content, n, err := ReadVarOctetString(buf)
	if err != nil {
		return 0, 0, err
	}
	if len(content) > 8 {
		return ^uint64(0), n, nil
	}
	var padded [8]byte
	copy(padded[8-len(content):], content)
	return binary.BigEndian.Uint64(padded[:]), n, nil
}

// WriteVarOctetString appends data to buf prefixed with its canonical
// OER length encoding.
func WriteVarOctetString(buf []byte, data []byte) []byte {
	length := len(data)
	if length < 128 {
		buf = append(buf, byte(length))
	} else {
		lengthBytes := uintBytes(uint64(length))
		buf = append(buf, 0x80|byte(len(lengthBytes)))
		buf = append(buf, lengthBytes...)
	}
	return append(buf, data...)
}

// ReadVarOctetString reads a length-prefixed octet string from buf,
// returning a slice into buf (no copy) and the number of bytes consumed
// including the prefix.
func ReadVarOctetString(buf []byte) ([]byte, int, error) {
	if len(buf) < 1 {
		return nil, 0, ErrBufferTooShort
	}
	first := buf[0]
	if first&0x80 == 0 {
		length := int(first)
		if len(buf) < 1+length {
			return nil, 0, ErrBufferTooShort
		}
		return buf[1 : 1+length], 1 + length, nil
	}

	lengthOfLength := int(first & 0x7f)
	if lengthOfLength == 0 || lengthOfLength > 8 {
		return nil, 0, ErrLengthTooLong
	}
	if len(buf) < 1+lengthOfLength {
		return nil, 0, ErrBufferTooShort
	}
	var padded [8]byte
	copy(padded[8-lengthOfLength:], buf[1:1+lengthOfLength])
	length64 := binary.BigEndian.Uint64(padded[:])
	if length64 > uint64(len(buf)-1-lengthOfLength) {
		return nil, 0, ErrBufferTooShort
	}
	length := int(length64)
	start := 1 + lengthOfLength
	return buf[start : start+length], start + length, nil
}

// PeekVarOctetStringLen returns the length of the octet-string content
// that ReadVarOctetString would return, without consuming it. Used by
// SaturatingReadVarUint's Rust counterpart (peek_var_octet_string);
// exposed here for callers that want to inspect length before reading.
func PeekVarOctetStringLen(buf []byte) (int, error) {
	content, _, err := ReadVarOctetString(buf)
	if err != nil {
		return 0, err
	}
	return len(content), nil
}
