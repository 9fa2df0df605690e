package verifier

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/crypto/ethereum"
)

var (
	ballotDomain     = []byte("ciphervote/ballot")
	decryptionDomain = []byte("ciphervote/decryption")
)

// BallotContext returns the transcript context a ballot proof is bound to,
// so a proof is only valid for one session, option and voter.
func BallotContext(sessionID uint64, optionIndex int, voter common.Address) []byte {
	buf := append([]byte{}, ballotDomain...)
	buf = binary.BigEndian.AppendUint64(buf, sessionID)
	buf = binary.BigEndian.AppendUint32(buf, uint32(optionIndex))
	return append(buf, voter.Bytes()...)
}

// DecryptionContext returns the transcript context of the decryption proof
// of one option accumulator.
func DecryptionContext(sessionID uint64, optionIndex int) []byte {
	buf := append([]byte{}, decryptionDomain...)
	buf = binary.BigEndian.AppendUint64(buf, sessionID)
	return binary.BigEndian.AppendUint32(buf, uint32(optionIndex))
}

// AccumulatorsDigest returns the keccak256 digest of the accumulators of a
// session, in option order. Each accumulator is length prefixed.
func AccumulatorsDigest(sessionID uint64, accumulators [][]byte) []byte {
	data := [][]byte{binary.BigEndian.AppendUint64(nil, sessionID)}
	for _, acc := range accumulators {
		data = append(data, binary.BigEndian.AppendUint32(nil, uint32(len(acc))), acc)
	}
	return ethereum.HashRaw(data...)
}
