package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/ciphervote/api"
	"github.com/vocdoni/ciphervote/api/client"
	"github.com/vocdoni/ciphervote/crypto/ecc/curves"
	"github.com/vocdoni/ciphervote/crypto/elgamal"
	"github.com/vocdoni/ciphervote/crypto/ethereum"
	"github.com/vocdoni/ciphervote/session"
	"github.com/vocdoni/ciphervote/storage"
	"github.com/vocdoni/ciphervote/types"
	"github.com/vocdoni/ciphervote/verifier"
)

type testAPI struct {
	cli     *client.HTTPclient
	clock   *clock.Mock
	gateway *verifier.Gateway
}

func newTestAPI(c *qt.C) *testAPI {
	curve, err := curves.New(curves.CurveTypeBabyJubJub)
	c.Assert(err, qt.IsNil)
	cfg := session.DefaultConfig()
	trustee, err := verifier.GenerateTrustee(curve, cfg.MaxVotesPerSession)
	c.Assert(err, qt.IsNil)
	gw := verifier.NewGateway(trustee.Signer().Address(), trustee.PublicKey(), trustee, trustee.Signer().Address())

	clk := clock.NewMock()
	clk.Set(time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC))
	engine := session.NewEngine(storage.New(memdb.New()), elgamal.NewEnvelope(curve), gw, clk, cfg)
	c.Cleanup(engine.Close)

	a, err := api.New(&api.APIConfig{Engine: engine, Verifier: gw, CurveType: curves.CurveTypeBabyJubJub})
	c.Assert(err, qt.IsNil)
	srv := httptest.NewServer(a.Router())
	c.Cleanup(srv.Close)

	cli, err := client.New(srv.URL)
	c.Assert(err, qt.IsNil)
	cli.SetRetries(1)
	return &testAPI{cli: cli, clock: clk, gateway: gw}
}

func newSigner(c *qt.C) *ethereum.SignKeys {
	signer := ethereum.NewSignKeys()
	c.Assert(signer.Generate(), qt.IsNil)
	return signer
}

func colorVote() *types.SessionRequest {
	return &types.SessionRequest{
		Title:    "Color Vote",
		Options:  []types.Option{{Name: "Red"}, {Name: "Blue"}},
		Duration: 24 * 60 * 60,
	}
}

// assertAPIError checks err is an API error with the given code.
func assertAPIError(c *qt.C, err error, want api.Error) {
	c.Helper()
	var apiErr *client.APIError
	c.Assert(errors.As(err, &apiErr), qt.IsTrue, qt.Commentf("error %v", err))
	c.Assert(apiErr.Code, qt.Equals, want.Code, qt.Commentf("error %v", err))
	c.Assert(apiErr.HTTPStatus, qt.Equals, want.HTTPstatus)
}

// apiCategory returns the category of an API error, empty if err is not one.
func apiCategory(err error) string {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	return apiErr.Category
}

func TestVerifierInfo(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(c)

	info, err := env.cli.Verifier()
	c.Assert(err, qt.IsNil)
	c.Assert(info.Address, qt.Equals, env.gateway.Address())
	c.Assert(info.CurveType, qt.Equals, curves.CurveTypeBabyJubJub)

	pub, err := curves.New(info.CurveType)
	c.Assert(err, qt.IsNil)
	c.Assert(pub.Unmarshal(info.PublicKey), qt.IsNil)
	c.Assert(pub.Equal(env.gateway.PublicKey()), qt.IsTrue)
}

func TestSessionFlow(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(c)
	creator := newSigner(c)

	id, err := env.cli.CreateSession(creator, colorVote())
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))

	info, err := env.cli.Session(id)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Creator, qt.Equals, creator.Address())
	c.Assert(info.State, qt.Equals, types.StateActive)
	c.Assert(info.OptionCount, qt.Equals, 2)

	list, err := env.cli.Sessions(0, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 1)

	pub := env.gateway.PublicKey()
	for _, option := range []int{0, 0, 1} {
		voter := newSigner(c)
		ct, proof, err := verifier.PrepareBallot(pub, id, option, voter.Address())
		c.Assert(err, qt.IsNil)
		c.Assert(env.cli.CastBallot(voter, id, option, ct, proof), qt.IsNil)
	}

	_, err = env.cli.Finalize(id)
	assertAPIError(c, err, api.ErrSessionNotEnded)
	_, err = env.cli.Results(id)
	assertAPIError(c, err, api.ErrNotFinalized)

	env.clock.Add(24*time.Hour + time.Second)
	info, err = env.cli.Session(id)
	c.Assert(err, qt.IsNil)
	c.Assert(info.State, qt.Equals, types.StateEnded)
	c.Assert(info.TotalVotes, qt.Equals, uint64(3))

	res, err := env.cli.Finalize(id)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Counts, qt.DeepEquals, []uint64{2, 1})
	c.Assert(res.Verifier, qt.Equals, env.gateway.Address())

	published, err := env.cli.Results(id)
	c.Assert(err, qt.IsNil)
	c.Assert(published.Counts, qt.DeepEquals, []uint64{2, 1})
	c.Assert(published.PublishedAt, qt.Equals, res.PublishedAt)

	_, err = env.cli.Finalize(id)
	assertAPIError(c, err, api.ErrAlreadyFinalized)

	events, err := env.cli.Events(0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(events.Events, qt.HasLen, 5)
	c.Assert(events.Last, qt.Equals, uint64(5))
	c.Assert(events.Events[0].Type, qt.Equals, types.EventSessionCreated)
	c.Assert(events.Events[4].Type, qt.Equals, types.EventResultsPublished)
}

func TestBallotRejections(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(c)

	id, err := env.cli.CreateSession(newSigner(c), colorVote())
	c.Assert(err, qt.IsNil)
	pub := env.gateway.PublicKey()
	voter := newSigner(c)

	ct, proof, err := verifier.PrepareBallot(pub, id, 1, voter.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(env.cli.CastBallot(voter, id, 1, ct, proof), qt.IsNil)

	c.Run("double vote", func(c *qt.C) {
		ct, proof, err := verifier.PrepareBallot(pub, id, 0, voter.Address())
		c.Assert(err, qt.IsNil)
		err = env.cli.CastBallot(voter, id, 0, ct, proof)
		assertAPIError(c, err, api.ErrAlreadyVoted)
		c.Assert(apiCategory(err), qt.Equals, string(session.CategoryState))
	})

	c.Run("proof bound to another voter", func(c *qt.C) {
		other := newSigner(c)
		ct, proof, err := verifier.PrepareBallot(pub, id, 0, voter.Address())
		c.Assert(err, qt.IsNil)
		err = env.cli.CastBallot(other, id, 0, ct, proof)
		assertAPIError(c, err, api.ErrInvalidBallotProof)
		c.Assert(apiCategory(err), qt.Equals, string(session.CategoryTrust))
	})

	c.Run("option out of range", func(c *qt.C) {
		other := newSigner(c)
		ct, proof, err := verifier.PrepareBallot(pub, id, 2, other.Address())
		c.Assert(err, qt.IsNil)
		err = env.cli.CastBallot(other, id, 2, ct, proof)
		assertAPIError(c, err, api.ErrInvalidOption)
		c.Assert(apiCategory(err), qt.Equals, string(session.CategoryValidation))
	})

	c.Run("unknown session", func(c *qt.C) {
		other := newSigner(c)
		ct, proof, err := verifier.PrepareBallot(pub, 42, 0, other.Address())
		c.Assert(err, qt.IsNil)
		assertAPIError(c, env.cli.CastBallot(other, 42, 0, ct, proof), api.ErrSessionNotFound)
	})

	c.Run("session ended", func(c *qt.C) {
		env.clock.Add(25 * time.Hour)
		other := newSigner(c)
		ct, proof, err := verifier.PrepareBallot(pub, id, 0, other.Address())
		c.Assert(err, qt.IsNil)
		assertAPIError(c, env.cli.CastBallot(other, id, 0, ct, proof), api.ErrSessionNotActive)
	})

	info, err := env.cli.Session(id)
	c.Assert(err, qt.IsNil)
	c.Assert(info.TotalVotes, qt.Equals, uint64(1))
}

func TestCreateSessionRejections(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(c)
	signer := newSigner(c)

	req := colorVote()
	req.Options = req.Options[:1]
	_, err := env.cli.CreateSession(signer, req)
	assertAPIError(c, err, api.ErrInvalidOptions)

	req = colorVote()
	req.Duration = 0
	_, err = env.cli.CreateSession(signer, req)
	assertAPIError(c, err, api.ErrInvalidDuration)

	body, status, err := env.cli.Request(client.HTTPPOST, &api.NewSession{
		SessionRequest: *colorVote(),
		Signature:      []byte{0x01, 0x02},
	}, nil, api.SessionsPath)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest, qt.Commentf("response body %s", body))

	list, err := env.cli.Sessions(0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 0)
}

func TestCreateSessionReplay(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(c)
	signer := newSigner(c)

	signed, err := client.SignSessionRequest(signer, colorVote(), 0)
	c.Assert(err, qt.IsNil)
	body, status, err := env.cli.Request(client.HTTPPOST, signed, nil, api.SessionsPath)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("response body %s", body))

	// the same signed request is rejected every time it is sent again
	for range 2 {
		body, status, err = env.cli.Request(client.HTTPPOST, signed, nil, api.SessionsPath)
		c.Assert(err, qt.IsNil)
		c.Assert(status, qt.Equals, api.ErrInvalidNonce.HTTPstatus, qt.Commentf("response body %s", body))
		apiErr := &client.APIError{}
		c.Assert(json.Unmarshal(body, apiErr), qt.IsNil)
		c.Assert(apiErr.Code, qt.Equals, api.ErrInvalidNonce.Code)
	}

	// changing the nonce breaks the signature, the recovered creator differs
	forged := *signed
	forged.Nonce = 1
	_, status, err = env.cli.Request(client.HTTPPOST, &forged, nil, api.SessionsPath)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, api.ErrInvalidNonce.HTTPstatus)

	list, err := env.cli.Sessions(0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 1)
	c.Assert(list[0].Creator, qt.Equals, signer.Address())

	nonce, err := env.cli.CreatorNonce(signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(1))

	// the client fills in the next nonce
	id, err := env.cli.CreateSession(signer, colorVote())
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(2))
	nonce, err = env.cli.CreatorNonce(signer.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(2))

	body, status, err = env.cli.Request(client.HTTPGET, nil, nil, api.CreatorsPath, "0x1234", api.NoncePath)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest, qt.Commentf("response body %s", body))
}

func TestEventsStream(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(c)
	creator := newSigner(c)

	id, err := env.cli.CreateSession(creator, colorVote())
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stream := func(from uint64, count int) <-chan []*types.Event {
		ch := make(chan []*types.Event, 1)
		go func() {
			var events []*types.Event
			err := env.cli.StreamEvents(ctx, from, func(e *types.Event) bool {
				events = append(events, e)
				return len(events) < count
			})
			if err != nil {
				t.Logf("event stream: %v", err)
			}
			ch <- events
		}()
		return ch
	}
	all := stream(0, 3)
	tail := stream(2, 2)

	voter := newSigner(c)
	ct, proof, err := verifier.PrepareBallot(env.gateway.PublicKey(), id, 1, voter.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(env.cli.CastBallot(voter, id, 1, ct, proof), qt.IsNil)
	_, err = env.cli.CreateSession(creator, colorVote())
	c.Assert(err, qt.IsNil)

	events := <-all
	c.Assert(events, qt.HasLen, 3)
	for i, e := range events {
		c.Assert(e.Seq, qt.Equals, uint64(i+1))
	}
	c.Assert(events[0].Type, qt.Equals, types.EventSessionCreated)
	c.Assert(events[1].Type, qt.Equals, types.EventBallotAccepted)
	c.Assert(events[1].SessionID, qt.Equals, id)
	c.Assert(events[2].Type, qt.Equals, types.EventSessionCreated)
	c.Assert(events[2].SessionID, qt.Equals, uint64(2))

	events = <-tail
	c.Assert(events, qt.HasLen, 2)
	c.Assert(events[0].Seq, qt.Equals, uint64(2))
	c.Assert(events[1].Seq, qt.Equals, uint64(3))
}

func TestMalformedRequests(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(c)

	_, err := env.cli.Session(7)
	assertAPIError(c, err, api.ErrSessionNotFound)

	body, status, err := env.cli.Request(client.HTTPGET, nil, nil, api.SessionsPath, "not-a-number")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest, qt.Commentf("response body %s", body))

	body, status, err = env.cli.Request(client.HTTPGET, nil, []string{"from", "-1"}, api.EventsPath)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest, qt.Commentf("response body %s", body))

	body, status, err = env.cli.Request(client.HTTPGET, nil, nil, "unknown")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusNotFound, qt.Commentf("response body %s", body))

	_, status, err = env.cli.Request(client.HTTPGET, nil, nil, "metrics")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK)
}
