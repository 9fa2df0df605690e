package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	if err := cbor.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// uint64Key encodes v as 8 bytes big-endian, so keys sort numerically.
func uint64Key(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func accumulatorKey(sessionID uint64, option int) []byte {
	return binary.BigEndian.AppendUint32(uint64Key(sessionID), uint32(option))
}

func voterKey(sessionID uint64, voter common.Address) []byte {
	return append(uint64Key(sessionID), voter.Bytes()...)
}
