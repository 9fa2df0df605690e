// Package tests runs the whole service end to end: a pebble database, the
// local verifier, the HTTP API and the finalization keeper.
package tests

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/vocdoni/ciphervote/api"
	"github.com/vocdoni/ciphervote/api/client"
	"github.com/vocdoni/ciphervote/crypto/ecc/curves"
	"github.com/vocdoni/ciphervote/crypto/elgamal"
	"github.com/vocdoni/ciphervote/crypto/ethereum"
	"github.com/vocdoni/ciphervote/service"
	"github.com/vocdoni/ciphervote/session"
	"github.com/vocdoni/ciphervote/storage"
	"github.com/vocdoni/ciphervote/types"
	"github.com/vocdoni/ciphervote/verifier"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

// TestService is a running service instance.
type TestService struct {
	Storage *storage.Storage
	Engine  *session.Engine
	Trustee *verifier.Trustee
	Gateway *verifier.Gateway
	API     *service.APIService
	Monitor *service.FinalizerMonitor
	Client  *client.HTTPclient
}

// StartTestService opens (or reopens) the database in dataDir and starts
// the API and the finalizer monitor. Time is driven by clk.
func StartTestService(ctx context.Context, dataDir, curveType string, clk clock.Clock) (*TestService, error) {
	database, err := metadb.New(db.TypePebble, filepath.Join(dataDir, "db"))
	if err != nil {
		return nil, err
	}
	ts := &TestService{Storage: storage.New(database)}
	cfg := session.DefaultConfig()
	if ts.Trustee, err = verifier.LoadTrustee(ts.Storage, curveType, "", cfg.MaxVotesPerSession); err != nil {
		ts.Storage.Close()
		return nil, err
	}
	curve, err := curves.New(curveType)
	if err != nil {
		ts.Storage.Close()
		return nil, err
	}
	address := ts.Trustee.Signer().Address()
	ts.Gateway = verifier.NewGateway(address, ts.Trustee.PublicKey(), ts.Trustee, address)
	ts.Engine = session.NewEngine(ts.Storage, elgamal.NewEnvelope(curve), ts.Gateway, clk, cfg)

	ts.API = service.NewAPI(&api.APIConfig{
		Engine:    ts.Engine,
		Verifier:  ts.Gateway,
		CurveType: curveType,
	}, "127.0.0.1", 0)
	if err := ts.API.Start(ctx); err != nil {
		ts.Stop()
		return nil, err
	}
	ts.Monitor = service.NewFinalizerMonitor(ts.Engine, 50*time.Millisecond)
	if err := ts.Monitor.Start(ctx); err != nil {
		ts.Stop()
		return nil, err
	}
	if ts.Client, err = client.New(fmt.Sprintf("http://%s", ts.API.Addr())); err != nil {
		ts.Stop()
		return nil, err
	}
	return ts, nil
}

// Stop halts the services and closes the database.
func (ts *TestService) Stop() {
	if ts.Monitor != nil {
		ts.Monitor.Stop()
	}
	if ts.API != nil {
		ts.API.Stop()
	}
	if ts.Engine != nil {
		ts.Engine.Close()
	}
	ts.Storage.Close()
}

// NewTestSigner creates and initializes a new ethereum signer for testing.
func NewTestSigner() (*ethereum.SignKeys, error) {
	signer := ethereum.NewSignKeys()
	if err := signer.Generate(); err != nil {
		return nil, err
	}
	return signer, nil
}

// CastTestBallot encrypts and casts the vote of a fresh voter through the
// API. It returns the voter.
func CastTestBallot(cli *client.HTTPclient, sessionID uint64, option int) (*ethereum.SignKeys, error) {
	info, err := cli.Verifier()
	if err != nil {
		return nil, err
	}
	pub, err := curves.New(info.CurveType)
	if err != nil {
		return nil, err
	}
	if err := pub.Unmarshal(info.PublicKey); err != nil {
		return nil, err
	}
	voter, err := NewTestSigner()
	if err != nil {
		return nil, err
	}
	ct, proof, err := verifier.PrepareBallot(pub, sessionID, option, voter.Address())
	if err != nil {
		return nil, err
	}
	return voter, cli.CastBallot(voter, sessionID, option, ct, proof)
}

// WaitResults polls the API until the results of the session are
// published or the timeout expires.
func WaitResults(cli *client.HTTPclient, sessionID uint64, timeout time.Duration) (*types.Results, error) {
	deadline := time.Now().Add(timeout)
	for {
		res, err := cli.Results(sessionID)
		if err == nil {
			return res, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("results of session %d not published: %w", sessionID, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
