// Package ss58 implements the network-prefixed, checksummed textual encoding
// of 32-byte account identifiers.
package ss58

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// checksumPreimage prefixes every checksum computation.
var checksumPreimage = []byte("SS58PRE")

var (
	ErrBadLength   = errors.New("account id must be 32 bytes")
	ErrBadPrefix   = errors.New("network prefix out of range")
	ErrBadChecksum = errors.New("address checksum mismatch")
	ErrBadAddress  = errors.New("malformed address")
)

// Encode renders a 32-byte account id as an address at the given network
// prefix. Encoding is deterministic: the same bytes and prefix always yield
// the same address.
func Encode(pub []byte, prefix uint16) (string, error) {
	if len(pub) != 32 {
		return "", fmt.Errorf("%w: got %d", ErrBadLength, len(pub))
	}
	if prefix > 16383 {
		return "", fmt.Errorf("%w: %d", ErrBadPrefix, prefix)
	}

	payload := make([]byte, 0, 36)
	if prefix < 64 {
		payload = append(payload, byte(prefix))
	} else {
		// Two-byte form: first byte carries bits 2..7 of the prefix under a
		// 0b01 tag, second byte carries the top 6 bits and bits 0..1.
		first := byte(prefix&0b0000_0000_1111_1100)>>2 | 0b0100_0000
		second := byte(prefix>>8) | byte(prefix&0b0000_0000_0000_0011)<<6
		payload = append(payload, first, second)
	}
	payload = append(payload, pub...)

	sum := checksum(payload)
	return base58.Encode(append(payload, sum[:2]...)), nil
}

// Decode parses an address back into its 32-byte account id and network
// prefix, verifying the checksum.
func Decode(addr string) ([]byte, uint16, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}

	var prefix uint16
	var prefixLen int
	switch {
	case len(raw) >= 1 && raw[0] < 64:
		prefix = uint16(raw[0])
		prefixLen = 1
	case len(raw) >= 2 && raw[0] < 128:
		lower := uint16(raw[0]&0b0011_1111)<<2 | uint16(raw[1])>>6
		upper := uint16(raw[1] & 0b0011_1111)
		prefix = lower | upper<<8
		prefixLen = 2
	default:
		return nil, 0, fmt.Errorf("%w: reserved prefix byte", ErrBadAddress)
	}

	if len(raw) != prefixLen+34 {
		return nil, 0, fmt.Errorf("%w: unexpected length %d", ErrBadAddress, len(raw))
	}
	pub := raw[prefixLen : prefixLen+32]
	sum := raw[len(raw)-2:]

	expect := checksum(raw[:len(raw)-2])
	if !bytes.Equal(sum, expect[:2]) {
		return nil, 0, ErrBadChecksum
	}
	out := make([]byte, 32)
	copy(out, pub)
	return out, prefix, nil
}

func checksum(payload []byte) [64]byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPreimage)
	h.Write(payload)
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}
