// Package verifier is the trust boundary of the sequencer. The Gateway
// validates encrypted ballots and only authorizes the publication of results
// attested by the trusted verifier; the Trustee is the local verifier
// backend holding the decryption key.
package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/crypto/ecc"
	"github.com/vocdoni/ciphervote/crypto/elgamal"
	"github.com/vocdoni/ciphervote/crypto/ethereum"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/session"
	"github.com/vocdoni/ciphervote/types"
)

// Backend decrypts the accumulators of a session and attests the result.
type Backend interface {
	Decrypt(ctx context.Context, sessionID uint64, accumulators [][]byte) (*types.Decryption, error)
}

// ErrKeyInUse is returned when rotating to a new encryption key while some
// session still accumulates ballots under the current one.
var ErrKeyInUse = errors.New("verifier key in use by unfinalized sessions")

// SessionIndex lists the sessions whose results are not published yet.
// session.Engine implements it.
type SessionIndex interface {
	UnfinalizedSessions() ([]uint64, error)
}

// Gateway implements session.Gateway. It is configured with the address of
// the trusted verifier and its encryption public key.
type Gateway struct {
	mu        sync.RWMutex
	trusted   common.Address
	publicKey ecc.Point
	backend   Backend
	admin     common.Address
}

var _ session.Gateway = (*Gateway)(nil)

// NewGateway creates a Gateway trusting the verifier at address, whose
// ballots are encrypted to publicKey and whose decryptions are requested to
// backend. Only admin may rotate the verifier later.
func NewGateway(address common.Address, publicKey ecc.Point, backend Backend, admin common.Address) *Gateway {
	return &Gateway{
		trusted:   address,
		publicKey: publicKey,
		backend:   backend,
		admin:     admin,
	}
}

// Address returns the trusted verifier address.
func (g *Gateway) Address() common.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.trusted
}

// PublicKey returns the encryption public key of the trusted verifier.
func (g *Gateway) PublicKey() ecc.Point {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.publicKey
}

// RotateVerifier replaces the trusted verifier. Only the admin can do it.
// The encryption key can only change once every session listed by index is
// finalized, since the accumulators of an open session are bound to the
// current key. Ballots wait on the gateway lock during the check, so none
// is validated against the old key after it.
func (g *Gateway) RotateVerifier(caller, address common.Address, publicKey ecc.Point, backend Backend, index SessionIndex) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if caller != g.admin {
		log.Warnw("verifier rotation rejected", "caller", caller.Hex())
		return fmt.Errorf("%w: %s is not the admin", session.ErrUnauthorized, caller.Hex())
	}
	if publicKey == nil || backend == nil {
		return fmt.Errorf("missing verifier public key or backend")
	}
	if !publicKey.Equal(g.publicKey) {
		if index == nil {
			return fmt.Errorf("missing session index to rotate the encryption key")
		}
		open, err := index.UnfinalizedSessions()
		if err != nil {
			return fmt.Errorf("cannot list unfinalized sessions: %w", err)
		}
		if len(open) > 0 {
			log.Warnw("verifier key rotation rejected", "unfinalized", len(open))
			return fmt.Errorf("%w: %v", ErrKeyInUse, open)
		}
	}
	log.Infow("verifier rotated", "from", g.trusted.Hex(), "to", address.Hex())
	g.trusted, g.publicKey, g.backend = address, publicKey, backend
	return nil
}

// ValidateBallot checks that the ciphertext is a valid encryption of one
// under the verifier key with a proof bound to the session, option and
// voter of the ballot. It returns the canonical ciphertext encoding.
func (g *Gateway) ValidateBallot(_ context.Context, ballot *types.Ballot) ([]byte, error) {
	pub := g.PublicKey()
	ct, err := elgamal.NewEnvelope(pub).Decode(ballot.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrInvalidBallotProof, err)
	}
	ctx := BallotContext(ballot.SessionID, ballot.OptionIndex, ballot.Voter)
	if err := elgamal.VerifyEncryption(pub, ct, big.NewInt(1), ballot.Proof, ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrInvalidBallotProof, err)
	}
	return ct.Marshal(), nil
}

// AuthorizeFinalization requests the decryption of the accumulators to the
// backend and accepts it only if it is signed by the trusted verifier, was
// computed on exactly these accumulators and every count is proven.
func (g *Gateway) AuthorizeFinalization(ctx context.Context, sessionID uint64, accumulators [][]byte) (*types.Results, error) {
	g.mu.RLock()
	trusted, pub, backend := g.trusted, g.publicKey, g.backend
	g.mu.RUnlock()

	dec, err := backend.Decrypt(ctx, sessionID, accumulators)
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed: %v", session.ErrUnauthorized, err)
	}
	if err := VerifyDecryption(trusted, pub, sessionID, accumulators, dec); err != nil {
		return nil, err
	}
	return &types.Results{
		SessionID:  sessionID,
		Counts:     append([]uint64(nil), dec.Counts...),
		Verifier:   trusted,
		Decryption: dec,
	}, nil
}

// VerifyDecryption checks a decryption attestation against the trusted
// address, the verifier public key and the accumulators it must refer to.
// It can be used by anyone to audit published results.
func VerifyDecryption(trusted common.Address, publicKey ecc.Point, sessionID uint64, accumulators [][]byte, dec *types.Decryption) error {
	if dec == nil {
		return fmt.Errorf("%w: empty decryption", session.ErrUnauthorized)
	}
	if dec.SessionID != sessionID {
		return fmt.Errorf("%w: decryption of session %d", session.ErrUnauthorized, dec.SessionID)
	}
	if !bytes.Equal(dec.AccumulatorsDigest, AccumulatorsDigest(sessionID, accumulators)) {
		return fmt.Errorf("%w: accumulators digest mismatch", session.ErrUnauthorized)
	}
	msg, err := dec.SignatureMessage()
	if err != nil {
		return err
	}
	signer, err := ethereum.AddrFromSignature(msg, dec.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnauthorized, err)
	}
	if signer != trusted {
		return fmt.Errorf("%w: signed by %s", session.ErrUnauthorized, signer.Hex())
	}
	if len(dec.Counts) != len(accumulators) || len(dec.Proofs) != len(accumulators) {
		return fmt.Errorf("%w: %d counts and %d proofs for %d accumulators",
			session.ErrUnauthorized, len(dec.Counts), len(dec.Proofs), len(accumulators))
	}
	env := elgamal.NewEnvelope(publicKey)
	for i, acc := range accumulators {
		ct, err := env.Decode(acc)
		if err != nil {
			return fmt.Errorf("%w: accumulator %d: %v", session.ErrUnauthorized, i, err)
		}
		count := new(big.Int).SetUint64(dec.Counts[i])
		if err := elgamal.VerifyDecryption(publicKey, ct, count, dec.Proofs[i], DecryptionContext(sessionID, i)); err != nil {
			return fmt.Errorf("%w: option %d: %v", session.ErrUnauthorized, i, err)
		}
	}
	return nil
}
