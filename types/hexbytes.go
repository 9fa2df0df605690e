package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a []byte which encodes as hexadecimal in JSON, as opposed to
// the base64 default.
type HexBytes []byte

// String returns the hex representation prefixed with 0x.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// Hex returns the hex representation without prefix.
func (b HexBytes) Hex() string {
	return hex.EncodeToString(b)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+2)
	enc[0] = '"'
	hex.Encode(enc[1:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	decoded, err := HexStringToHexBytes(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// HexStringToHexBytes decodes a hex string, with or without the 0x prefix.
func HexStringToHexBytes(s string) (HexBytes, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return b, nil
}
