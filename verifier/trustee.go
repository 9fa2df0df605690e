package verifier

import (
	"context"
	"fmt"
	"math/big"

	"github.com/vocdoni/ciphervote/crypto/ecc"
	"github.com/vocdoni/ciphervote/crypto/elgamal"
	"github.com/vocdoni/ciphervote/crypto/ethereum"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/types"
)

// Trustee is the holder of the ElGamal private key. It decrypts the
// accumulators of a session, proves each decryption and signs the result
// with its Ethereum key.
type Trustee struct {
	privateKey *big.Int
	publicKey  ecc.Point
	signer     *ethereum.SignKeys
	maxVotes   uint64
}

// NewTrustee creates a trustee from its keys. maxVotes bounds the plaintext
// search of each decryption.
func NewTrustee(curve ecc.Point, privateKey *big.Int, signer *ethereum.SignKeys, maxVotes uint64) *Trustee {
	pub := curve.New()
	pub.ScalarBaseMult(privateKey)
	return &Trustee{
		privateKey: privateKey,
		publicKey:  pub,
		signer:     signer,
		maxVotes:   maxVotes,
	}
}

// GenerateTrustee creates a trustee with fresh keys.
func GenerateTrustee(curve ecc.Point, maxVotes uint64) (*Trustee, error) {
	_, priv, err := elgamal.GenerateKey(curve)
	if err != nil {
		return nil, err
	}
	signer := ethereum.NewSignKeys()
	if err := signer.Generate(); err != nil {
		return nil, err
	}
	return NewTrustee(curve, priv, signer, maxVotes), nil
}

// PublicKey returns the encryption public key ballots are encrypted to.
func (t *Trustee) PublicKey() ecc.Point {
	return t.publicKey
}

// PrivateKey returns the ElGamal private key.
func (t *Trustee) PrivateKey() *big.Int {
	return t.privateKey
}

// Signer returns the signing keys of the trustee.
func (t *Trustee) Signer() *ethereum.SignKeys {
	return t.signer
}

// Decrypt decrypts every accumulator and returns the signed attestation.
func (t *Trustee) Decrypt(ctx context.Context, sessionID uint64, accumulators [][]byte) (*types.Decryption, error) {
	env := elgamal.NewEnvelope(t.publicKey)
	dec := &types.Decryption{
		SessionID:          sessionID,
		AccumulatorsDigest: AccumulatorsDigest(sessionID, accumulators),
		Counts:             make([]uint64, len(accumulators)),
		Proofs:             make([]types.HexBytes, len(accumulators)),
	}
	for i, acc := range accumulators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ct, err := env.Decode(acc)
		if err != nil {
			return nil, fmt.Errorf("accumulator %d: %w", i, err)
		}
		_, count, err := elgamal.Decrypt(t.privateKey, ct.C1, ct.C2, t.maxVotes)
		if err != nil {
			return nil, fmt.Errorf("accumulator %d: %w", i, err)
		}
		proof, err := elgamal.ProveDecryption(t.privateKey, t.publicKey, ct, count, DecryptionContext(sessionID, i))
		if err != nil {
			return nil, fmt.Errorf("accumulator %d: %w", i, err)
		}
		dec.Counts[i] = count.Uint64()
		dec.Proofs[i] = proof
	}
	msg, err := dec.SignatureMessage()
	if err != nil {
		return nil, err
	}
	if dec.Signature, err = t.signer.SignEthereum(msg); err != nil {
		return nil, fmt.Errorf("cannot sign decryption: %w", err)
	}
	log.Debugw("accumulators decrypted", "sessionId", sessionID, "counts", dec.Counts)
	return dec, nil
}
