package verifier

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/crypto/ecc"
	"github.com/vocdoni/ciphervote/crypto/elgamal"
)

// PrepareBallot encrypts one vote under the verifier public key and proves
// that the ciphertext encrypts exactly one, bound to the session, option and
// voter. It returns the encoded ciphertext and proof, ready to be cast.
func PrepareBallot(publicKey ecc.Point, sessionID uint64, optionIndex int, voter common.Address) ([]byte, []byte, error) {
	k, err := ecc.RandomScalar(publicKey)
	if err != nil {
		return nil, nil, err
	}
	one := big.NewInt(1)
	ct, err := elgamal.NewCiphertext(publicKey).Encrypt(one, publicKey, k)
	if err != nil {
		return nil, nil, err
	}
	proof, err := elgamal.ProveEncryption(publicKey, ct, one, k, BallotContext(sessionID, optionIndex, voter))
	if err != nil {
		return nil, nil, fmt.Errorf("cannot prove ballot: %w", err)
	}
	return ct.Marshal(), proof, nil
}
