package transform

import (
	"encoding/hex"
	"strings"
)

// BytesToHex converts a byte slice to a 0x-prefixed lowercase hex string.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// HexToBytes parses a hex string with or without the 0x prefix.
// Returns nil if the string is not valid hex.
func HexToBytes(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
