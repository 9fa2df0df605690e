package verifier

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ciphervote/crypto/ecc"
	"github.com/vocdoni/ciphervote/crypto/ecc/curves"
	"github.com/vocdoni/ciphervote/crypto/elgamal"
	"github.com/vocdoni/ciphervote/session"
	"github.com/vocdoni/ciphervote/types"
)

var (
	testVoter = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testAdmin = common.HexToAddress("0x00000000000000000000000000000000000000ad")
)

// backendFunc adapts a function to the Backend interface.
type backendFunc func(ctx context.Context, sessionID uint64, accumulators [][]byte) (*types.Decryption, error)

func (f backendFunc) Decrypt(ctx context.Context, sessionID uint64, accumulators [][]byte) (*types.Decryption, error) {
	return f(ctx, sessionID, accumulators)
}

func newTestTrustee(c *qt.C) (*Trustee, ecc.Point) {
	curve, err := curves.New(curves.CurveTypeBabyJubJub)
	c.Assert(err, qt.IsNil)
	trustee, err := GenerateTrustee(curve, 255)
	c.Assert(err, qt.IsNil)
	return trustee, curve
}

func newTestGateway(trustee *Trustee) *Gateway {
	return NewGateway(trustee.Signer().Address(), trustee.PublicKey(), trustee, testAdmin)
}

// accumulate returns the accumulators of a session with the given votes per
// option.
func accumulate(c *qt.C, pub ecc.Point, sessionID uint64, votes []int) [][]byte {
	env := elgamal.NewEnvelope(pub)
	accs := make([][]byte, len(votes))
	for i, n := range votes {
		acc, err := env.Zero()
		c.Assert(err, qt.IsNil)
		for j := 0; j < n; j++ {
			ct, _, err := PrepareBallot(pub, sessionID, i, testVoter)
			c.Assert(err, qt.IsNil)
			acc, err = env.Add(acc, ct)
			c.Assert(err, qt.IsNil)
		}
		accs[i] = acc
	}
	return accs
}

func TestValidateBallot(t *testing.T) {
	c := qt.New(t)
	trustee, _ := newTestTrustee(c)
	gw := newTestGateway(trustee)
	ctx := context.Background()

	ct, proof, err := PrepareBallot(gw.PublicKey(), 1, 2, testVoter)
	c.Assert(err, qt.IsNil)

	ballot := &types.Ballot{SessionID: 1, Voter: testVoter, OptionIndex: 2, OptionCount: 3, Ciphertext: ct, Proof: proof}
	validated, err := gw.ValidateBallot(ctx, ballot)
	c.Assert(err, qt.IsNil)
	c.Assert(validated, qt.DeepEquals, ct)

	// the proof is bound to the option
	other := *ballot
	other.OptionIndex = 0
	_, err = gw.ValidateBallot(ctx, &other)
	c.Assert(err, qt.ErrorIs, session.ErrInvalidBallotProof)

	// and to the voter
	other = *ballot
	other.Voter = testAdmin
	_, err = gw.ValidateBallot(ctx, &other)
	c.Assert(err, qt.ErrorIs, session.ErrInvalidBallotProof)

	// and to the session
	other = *ballot
	other.SessionID = 2
	_, err = gw.ValidateBallot(ctx, &other)
	c.Assert(err, qt.ErrorIs, session.ErrInvalidBallotProof)

	// malformed ciphertext
	other = *ballot
	other.Ciphertext = []byte{1, 2, 3, 4}
	_, err = gw.ValidateBallot(ctx, &other)
	c.Assert(err, qt.ErrorIs, session.ErrInvalidBallotProof)

	// a ciphertext of two votes cannot be proven as one
	pub := gw.PublicKey()
	k, err := ecc.RandomScalar(pub)
	c.Assert(err, qt.IsNil)
	two, err := elgamal.NewCiphertext(pub).Encrypt(big.NewInt(2), pub, k)
	c.Assert(err, qt.IsNil)
	forged, err := elgamal.ProveEncryption(pub, two, big.NewInt(1), k, BallotContext(1, 2, testVoter))
	c.Assert(err, qt.IsNil)
	other = *ballot
	other.Ciphertext, other.Proof = two.Marshal(), forged
	_, err = gw.ValidateBallot(ctx, &other)
	c.Assert(err, qt.ErrorIs, session.ErrInvalidBallotProof)
}

func TestAuthorizeFinalization(t *testing.T) {
	c := qt.New(t)
	trustee, _ := newTestTrustee(c)
	gw := newTestGateway(trustee)
	ctx := context.Background()

	accs := accumulate(c, gw.PublicKey(), 7, []int{2, 1, 0})
	res, err := gw.AuthorizeFinalization(ctx, 7, accs)
	c.Assert(err, qt.IsNil)
	c.Assert(res.SessionID, qt.Equals, uint64(7))
	c.Assert(res.Counts, qt.DeepEquals, []uint64{2, 1, 0})
	c.Assert(res.Verifier, qt.Equals, trustee.Signer().Address())
	c.Assert(res.Decryption.Proofs, qt.HasLen, 3)

	// anyone can audit the attestation
	c.Assert(VerifyDecryption(gw.Address(), gw.PublicKey(), 7, accs, res.Decryption), qt.IsNil)
	c.Assert(VerifyDecryption(gw.Address(), gw.PublicKey(), 8, accs, res.Decryption), qt.ErrorIs, session.ErrUnauthorized)
}

func TestAuthorizeFinalizationRejections(t *testing.T) {
	c := qt.New(t)
	trustee, curve := newTestTrustee(c)
	ctx := context.Background()
	pub := trustee.PublicKey()
	accs := accumulate(c, pub, 1, []int{1, 1})

	c.Run("untrusted signer", func(c *qt.C) {
		impostor, err := GenerateTrustee(curve, 255)
		c.Assert(err, qt.IsNil)
		// same decryption key, different signing key
		impostor = NewTrustee(curve, trustee.PrivateKey(), impostor.Signer(), 255)
		gw := NewGateway(trustee.Signer().Address(), pub, impostor, testAdmin)
		_, err = gw.AuthorizeFinalization(ctx, 1, accs)
		c.Assert(err, qt.ErrorIs, session.ErrUnauthorized)
	})

	c.Run("different snapshot", func(c *qt.C) {
		stale := accumulate(c, pub, 1, []int{1, 0})
		backend := backendFunc(func(ctx context.Context, id uint64, _ [][]byte) (*types.Decryption, error) {
			return trustee.Decrypt(ctx, id, stale)
		})
		gw := NewGateway(trustee.Signer().Address(), pub, backend, testAdmin)
		_, err := gw.AuthorizeFinalization(ctx, 1, accs)
		c.Assert(err, qt.ErrorMatches, `unauthorized: accumulators digest mismatch`)
	})

	c.Run("tampered counts", func(c *qt.C) {
		backend := backendFunc(func(ctx context.Context, id uint64, accs [][]byte) (*types.Decryption, error) {
			dec, err := trustee.Decrypt(ctx, id, accs)
			if err != nil {
				return nil, err
			}
			dec.Counts = []uint64{2, 0}
			msg, err := dec.SignatureMessage()
			if err != nil {
				return nil, err
			}
			dec.Signature, err = trustee.Signer().SignEthereum(msg)
			return dec, err
		})
		gw := NewGateway(trustee.Signer().Address(), pub, backend, testAdmin)
		_, err := gw.AuthorizeFinalization(ctx, 1, accs)
		c.Assert(err, qt.ErrorMatches, `unauthorized: option 0: .*`)
	})

	c.Run("backend failure", func(c *qt.C) {
		other, err := GenerateTrustee(curve, 255)
		c.Assert(err, qt.IsNil)
		// the other key decrypts to garbage out of the vote range
		gw := NewGateway(other.Signer().Address(), pub, other, testAdmin)
		_, err = gw.AuthorizeFinalization(ctx, 1, accs)
		c.Assert(err, qt.ErrorIs, session.ErrUnauthorized)
	})

	c.Run("canceled", func(c *qt.C) {
		gw := newTestGateway(trustee)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := gw.AuthorizeFinalization(cctx, 1, accs)
		c.Assert(err, qt.ErrorIs, session.ErrUnauthorized)
	})
}

// openSessions is a fixed list of unfinalized sessions.
type openSessions []uint64

func (o openSessions) UnfinalizedSessions() ([]uint64, error) {
	return o, nil
}

func TestRotateVerifier(t *testing.T) {
	c := qt.New(t)
	trustee, curve := newTestTrustee(c)
	gw := newTestGateway(trustee)

	next, err := GenerateTrustee(curve, 255)
	c.Assert(err, qt.IsNil)

	err = gw.RotateVerifier(testVoter, next.Signer().Address(), next.PublicKey(), next, openSessions(nil))
	c.Assert(err, qt.ErrorIs, session.ErrUnauthorized)
	c.Assert(gw.Address(), qt.Equals, trustee.Signer().Address())

	// the key cannot change under an open session
	err = gw.RotateVerifier(testAdmin, next.Signer().Address(), next.PublicKey(), next, openSessions{1, 3})
	c.Assert(err, qt.ErrorIs, ErrKeyInUse)
	c.Assert(gw.Address(), qt.Equals, trustee.Signer().Address())
	c.Assert(gw.PublicKey().Equal(trustee.PublicKey()), qt.IsTrue)

	// keeping the key only swaps the verifier address and backend
	c.Assert(gw.RotateVerifier(testAdmin, testAdmin, trustee.PublicKey(), trustee, openSessions{1, 3}), qt.IsNil)
	c.Assert(gw.Address(), qt.Equals, testAdmin)

	c.Assert(gw.RotateVerifier(testAdmin, next.Signer().Address(), next.PublicKey(), next, openSessions(nil)), qt.IsNil)
	c.Assert(gw.Address(), qt.Equals, next.Signer().Address())
	c.Assert(gw.PublicKey().Equal(next.PublicKey()), qt.IsTrue)

	// ballots now go to the new key
	ct, proof, err := PrepareBallot(trustee.PublicKey(), 1, 0, testVoter)
	c.Assert(err, qt.IsNil)
	_, err = gw.ValidateBallot(context.Background(), &types.Ballot{SessionID: 1, Voter: testVoter, Ciphertext: ct, Proof: proof})
	c.Assert(err, qt.ErrorIs, session.ErrInvalidBallotProof)
}
