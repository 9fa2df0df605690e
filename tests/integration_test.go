package tests

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ciphervote/api"
	"github.com/vocdoni/ciphervote/api/client"
	"github.com/vocdoni/ciphervote/crypto/ecc/curves"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/types"
	"github.com/vocdoni/ciphervote/verifier"
)

func init() {
	log.Init(log.LogLevelDebug, "stdout", nil)
}

const day = 24 * 60 * 60

var testStart = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func colorVote() *types.SessionRequest {
	return &types.SessionRequest{
		Title:       "Color Vote",
		Description: "Pick a color",
		Options:     []types.Option{{Name: "Red"}, {Name: "Blue"}},
		Duration:    day,
	}
}

func TestIntegration(t *testing.T) {
	for _, curveType := range curves.Curves() {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)
			clk := clock.NewMock()
			clk.Set(testStart)
			ts, err := StartTestService(context.Background(), t.TempDir(), curveType, clk)
			c.Assert(err, qt.IsNil)
			defer ts.Stop()
			cli := ts.Client

			creator, err := NewTestSigner()
			c.Assert(err, qt.IsNil)
			id, err := cli.CreateSession(creator, colorVote())
			c.Assert(err, qt.IsNil)

			c.Run("cast ballots", func(c *qt.C) {
				voter, err := CastTestBallot(cli, id, 0)
				c.Assert(err, qt.IsNil)
				_, err = CastTestBallot(cli, id, 0)
				c.Assert(err, qt.IsNil)
				_, err = CastTestBallot(cli, id, 1)
				c.Assert(err, qt.IsNil)

				// the same voter cannot vote twice, whatever the option
				info, err := cli.Verifier()
				c.Assert(err, qt.IsNil)
				ct, proof, err := verifier.PrepareBallot(ts.Gateway.PublicKey(), id, 1, voter.Address())
				c.Assert(err, qt.IsNil)
				c.Assert(info.Address, qt.Equals, ts.Gateway.Address())
				err = cli.CastBallot(voter, id, 1, ct, proof)
				var apiErr *client.APIError
				c.Assert(err, qt.ErrorAs, &apiErr)
				c.Assert(apiErr.Code, qt.Equals, api.ErrAlreadyVoted.Code)
			})

			sess, err := cli.Session(id)
			c.Assert(err, qt.IsNil)
			c.Assert(sess.TotalVotes, qt.Equals, uint64(3))
			c.Assert(sess.IsActive, qt.IsTrue)

			c.Run("automatic finalization", func(c *qt.C) {
				clk.Add(day * time.Second)
				res, err := WaitResults(cli, id, 10*time.Second)
				c.Assert(err, qt.IsNil)
				c.Assert(res.Counts, qt.DeepEquals, []uint64{2, 1})

				// anyone can audit the published results against the
				// stored accumulators
				accs, err := ts.Storage.Accumulators(id)
				c.Assert(err, qt.IsNil)
				c.Assert(verifier.VerifyDecryption(res.Verifier, ts.Gateway.PublicKey(), id, accs, res.Decryption), qt.IsNil)

				sess, err := cli.Session(id)
				c.Assert(err, qt.IsNil)
				c.Assert(sess.State, qt.Equals, types.StateFinalized)
				c.Assert(sess.IsEnded, qt.IsTrue)
			})

			events, err := cli.Events(0, 100)
			c.Assert(err, qt.IsNil)
			c.Assert(events.Events, qt.HasLen, 5)
			for _, ev := range events.Events {
				c.Assert(ev.SessionID, qt.Equals, id)
				c.Assert(ev.Counts == nil || ev.Type == types.EventResultsPublished, qt.IsTrue)
			}
		})
	}
}

func TestRestart(t *testing.T) {
	c := qt.New(t)
	dataDir := t.TempDir()
	clk := clock.NewMock()
	clk.Set(testStart)

	ts, err := StartTestService(context.Background(), dataDir, curves.CurveTypeBabyJubJub, clk)
	c.Assert(err, qt.IsNil)
	creator, err := NewTestSigner()
	c.Assert(err, qt.IsNil)
	id, err := ts.Client.CreateSession(creator, colorVote())
	c.Assert(err, qt.IsNil)
	_, err = CastTestBallot(ts.Client, id, 1)
	c.Assert(err, qt.IsNil)
	address := ts.Gateway.Address()
	ts.Stop()

	// the verifier keys, the creator nonces and the accumulators survive
	// the restart
	ts, err = StartTestService(context.Background(), dataDir, curves.CurveTypeBabyJubJub, clk)
	c.Assert(err, qt.IsNil)
	defer ts.Stop()
	c.Assert(ts.Gateway.Address(), qt.Equals, address)
	nonce, err := ts.Client.CreatorNonce(creator.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(1))

	_, err = CastTestBallot(ts.Client, id, 1)
	c.Assert(err, qt.IsNil)
	_, err = CastTestBallot(ts.Client, id, 0)
	c.Assert(err, qt.IsNil)

	clk.Add(day * time.Second)
	res, err := WaitResults(ts.Client, id, 10*time.Second)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Counts, qt.DeepEquals, []uint64{1, 2})

	_, err = StartTestService(context.Background(), t.TempDir(), "unknown", clk)
	c.Assert(err, qt.Not(qt.IsNil))
}
