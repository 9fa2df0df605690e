package elgamal

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/ciphervote/crypto/ecc"
)

// scalarSize is the size of the little-endian encoding of the response.
const scalarSize = 32

// ErrInvalidProof is returned when a proof does not verify.
var ErrInvalidProof = errors.New("invalid proof")

// proofDomain separates the transcript of these proofs from any other use
// of the same hash.
var proofDomain = []byte("ciphervote/dleq/v1")

// Proof is a non-interactive Chaum-Pedersen proof that log_g1(h1) equals
// log_g2(h2), made non-interactive with a Fiat-Shamir keccak256 transcript
// that also covers a caller provided context.
type Proof struct {
	A1 ecc.Point
	A2 ecc.Point
	S  *big.Int
}

type proofEncoding struct {
	A1 []byte `cbor:"0,keyasint"`
	A2 []byte `cbor:"1,keyasint"`
	S  []byte `cbor:"2,keyasint"`
}

// ProveDLEQ proves knowledge of x such that h1 = x*g1 and h2 = x*g2.
func ProveDLEQ(g1, h1, g2, h2 ecc.Point, x *big.Int, context []byte) (*Proof, error) {
	r, err := ecc.RandomScalar(g1)
	if err != nil {
		return nil, err
	}
	a1, a2 := g1.New(), g1.New()
	a1.ScalarMult(g1, r)
	a2.ScalarMult(g2, r)
	e := challenge(context, g1, h1, g2, h2, a1, a2)
	// s = r + e*x mod order
	s := new(big.Int).Mul(e, x)
	s.Add(s, r)
	return &Proof{A1: a1, A2: a2, S: ecc.BigToFF(g1.Order(), s)}, nil
}

// VerifyDLEQ checks a proof produced by ProveDLEQ with the same statement
// and context.
func VerifyDLEQ(g1, h1, g2, h2 ecc.Point, proof *Proof, context []byte) error {
	if proof == nil || proof.A1 == nil || proof.A2 == nil || proof.S == nil {
		return ErrInvalidProof
	}
	if proof.S.Sign() < 0 || proof.S.Cmp(g1.Order()) >= 0 {
		return fmt.Errorf("%w: response out of range", ErrInvalidProof)
	}
	e := challenge(context, g1, h1, g2, h2, proof.A1, proof.A2)
	if !checkEquation(g1, h1, proof.A1, proof.S, e) || !checkEquation(g2, h2, proof.A2, proof.S, e) {
		return ErrInvalidProof
	}
	return nil
}

// checkEquation reports whether s*g == a + e*h.
func checkEquation(g, h, a ecc.Point, s, e *big.Int) bool {
	lhs := g.New()
	lhs.ScalarMult(g, s)
	eh := g.New()
	eh.ScalarMult(h, e)
	rhs := g.New()
	rhs.Add(a, eh)
	return lhs.Equal(rhs)
}

func challenge(context []byte, points ...ecc.Point) *big.Int {
	data := [][]byte{proofDomain, context}
	for _, p := range points {
		data = append(data, p.Marshal())
	}
	e := new(big.Int).SetBytes(ethcrypto.Keccak256(data...))
	return ecc.BigToFF(points[0].Order(), e)
}

// Marshal returns the CBOR encoding of the proof.
func (p *Proof) Marshal() ([]byte, error) {
	return cbor.Marshal(proofEncoding{
		A1: p.A1.Marshal(),
		A2: p.A2.Marshal(),
		S:  arbo.BigIntToBytes(scalarSize, p.S),
	})
}

// UnmarshalProof decodes a proof over the curve of the given point.
func UnmarshalProof(curve ecc.Point, data []byte) (*Proof, error) {
	var enc proofEncoding
	if err := cbor.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if len(enc.S) != scalarSize {
		return nil, fmt.Errorf("%w: invalid response size %d", ErrInvalidProof, len(enc.S))
	}
	p := &Proof{A1: curve.New(), A2: curve.New(), S: arbo.BytesToBigInt(enc.S)}
	if err := p.A1.Unmarshal(enc.A1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if err := p.A2.Unmarshal(enc.A2); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return p, nil
}

// messageOffset returns C2 - m*G.
func messageOffset(ct *Ciphertext, msg *big.Int) ecc.Point {
	mG := ct.C2.New()
	mG.ScalarBaseMult(new(big.Int).Mod(msg, ct.C2.Order()))
	mG.Neg(mG)
	h := ct.C2.New()
	h.Add(ct.C2, mG)
	return h
}

// ProveEncryption proves that ct encrypts msg under publicKey, using the
// nonce k of the encryption as witness: C1 = k*G and C2 - msg*G = k*publicKey.
func ProveEncryption(publicKey ecc.Point, ct *Ciphertext, msg, k *big.Int, context []byte) ([]byte, error) {
	proof, err := ProveDLEQ(ecc.Generator(publicKey), ct.C1, publicKey, messageOffset(ct, msg), k, context)
	if err != nil {
		return nil, err
	}
	return proof.Marshal()
}

// VerifyEncryption checks a proof produced by ProveEncryption.
func VerifyEncryption(publicKey ecc.Point, ct *Ciphertext, msg *big.Int, proof, context []byte) error {
	p, err := UnmarshalProof(publicKey, proof)
	if err != nil {
		return err
	}
	return VerifyDLEQ(ecc.Generator(publicKey), ct.C1, publicKey, messageOffset(ct, msg), p, context)
}

// ProveDecryption proves that ct decrypts to msg under the private key of
// publicKey: publicKey = d*G and C2 - msg*G = d*C1.
func ProveDecryption(privateKey *big.Int, publicKey ecc.Point, ct *Ciphertext, msg *big.Int, context []byte) ([]byte, error) {
	proof, err := ProveDLEQ(ecc.Generator(publicKey), publicKey, ct.C1, messageOffset(ct, msg), privateKey, context)
	if err != nil {
		return nil, err
	}
	return proof.Marshal()
}

// VerifyDecryption checks a proof produced by ProveDecryption.
func VerifyDecryption(publicKey ecc.Point, ct *Ciphertext, msg *big.Int, proof, context []byte) error {
	p, err := UnmarshalProof(publicKey, proof)
	if err != nil {
		return err
	}
	return VerifyDLEQ(ecc.Generator(publicKey), publicKey, ct.C1, messageOffset(ct, msg), p, context)
}
