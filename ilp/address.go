package ilp

import (
	"fmt"
	"strings"
)

// Address is a validated ILP address: dot-separated ASCII segments,
// the first of which is a scheme ("g", "example", "test", "private", ...).
// Addresses are immutable once constructed.
type Address struct {
	value string
}

const maxAddressLength = 1023

// NewAddress validates s against the ILP address grammar (RFC 0015) and
// returns an Address, or an error describing the first violation.
func NewAddress(s string) (Address, error) {
	if len(s) == 0 {
		return Address{}, fmt.Errorf("ilp: address is empty")
	}
	if len(s) > maxAddressLength {
		return Address{}, fmt.Errorf("ilp: address exceeds %d bytes", maxAddressLength)
	}
	segments := strings.Split(s, ".")
	if len(segments) < 1 {
		return Address{}, fmt.Errorf("ilp: address %q has no segments", s)
	}
	for i, seg := range segments {
		if len(seg) == 0 {
			return Address{}, fmt.Errorf("ilp: address %q has an empty segment", s)
		}
		if i == 0 {
			if !isScheme(seg) {
				return Address{}, fmt.Errorf("ilp: address %q has invalid scheme %q", s, seg)
			}
			continue
		}
		if !isSegment(seg) {
			return Address{}, fmt.Errorf("ilp: address %q has invalid segment %q", s, seg)
		}
	}
	return Address{value: s}, nil
}

// MustAddress is NewAddress, panicking on error. Intended for constants
// and test fixtures, not for parsing untrusted input.
func MustAddress(s string) Address {
	addr, err := NewAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func isScheme(s string) bool {
	if len(s) < 1 {
		return false
	}
	for _, r := range s {
		if !isAddressChar(r) {
			return false
		}
	}
	return true
}

func isSegment(s string) bool {
	return isScheme(s)
}

func isAddressChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '~' || r == '-':
		return true
	}
	return false
}

// String returns the textual address.
func (a Address) String() string { return a.value }

// Bytes returns the textual address as a byte slice.
func (a Address) Bytes() []byte { return []byte(a.value) }

// IsZero reports whether a is the zero Address (not constructed via NewAddress).
func (a Address) IsZero() bool { return a.value == "" }

// Scheme returns the first label of the address.
func (a Address) Scheme() string {
	if i := strings.IndexByte(a.value, '.'); i >= 0 {
		return a.value[:i]
	}
	return a.value
}

// Segments returns the dot-separated labels in order.
func (a Address) Segments() []string {
	return strings.Split(a.value, ".")
}

// LastSegment returns the final dot-separated label.
func (a Address) LastSegment() string {
	segs := a.Segments()
	return segs[len(segs)-1]
}

// WithSuffix appends suffix as one or more additional dot-separated
// segments and validates the result.
func (a Address) WithSuffix(suffix string) (Address, error) {
	return NewAddress(a.value + "." + suffix)
}

// StartsWith reports whether a's textual form begins with prefix's.
func (a Address) StartsWith(prefix Address) bool {
	return strings.HasPrefix(a.value, prefix.value)
}
