// Package session implements the vote session state machine: the registry
// of sessions, the lifecycle derived from the clock, the ballot ledger that
// folds verified encrypted ballots into per-option accumulators and the
// finalizer that publishes the decrypted tally.
//
// All mutating operations go through one Engine and are serialized by its
// lock. Each one is committed as a single storage transaction, so either the
// whole operation is applied or nothing is.
package session

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/vocdoni/ciphervote/storage"
	"github.com/vocdoni/ciphervote/types"
)

// Homomorphic is the additive homomorphism over opaque encrypted values.
type Homomorphic interface {
	// Zero returns the encryption of zero.
	Zero() ([]byte, error)
	// Add returns a ciphertext decrypting to the sum of the plaintexts.
	Add(a, b []byte) ([]byte, error)
}

// Gateway is the trusted verifier as seen by the engine.
type Gateway interface {
	// ValidateBallot checks the ballot and returns the validated ciphertext
	// to accumulate. Rejections wrap ErrInvalidBallotProof.
	ValidateBallot(ctx context.Context, ballot *types.Ballot) ([]byte, error)
	// AuthorizeFinalization returns the attested results decrypted from
	// exactly the given accumulators. Rejections wrap ErrUnauthorized.
	AuthorizeFinalization(ctx context.Context, sessionID uint64, accumulators [][]byte) (*types.Results, error)
}

// Engine is the entry point to the vote sessions.
type Engine struct {
	stg      *storage.Storage
	envelope Homomorphic
	gateway  Gateway
	clock    clock.Clock
	cfg      Config
	broker   *Broker

	// mu serializes the mutating operations
	mu sync.Mutex
}

// NewEngine creates an Engine. If clk is nil the wall clock is used.
func NewEngine(stg *storage.Storage, envelope Homomorphic, gateway Gateway, clk clock.Clock, cfg Config) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		stg:      stg,
		envelope: envelope,
		gateway:  gateway,
		clock:    clk,
		cfg:      cfg,
		broker:   NewBroker(),
	}
}

// Config returns the engine limits.
func (e *Engine) Config() Config {
	return e.cfg
}

// Clock returns the clock used to derive session states.
func (e *Engine) Clock() clock.Clock {
	return e.clock
}

// Events returns up to limit persisted events starting at sequence number
// from.
func (e *Engine) Events(from uint64, limit int) ([]*types.Event, error) {
	return e.stg.Events(from, limit)
}

// LastEventSeq returns the sequence number of the last persisted event.
func (e *Engine) LastEventSeq() (uint64, error) {
	return e.stg.LastEventSeq()
}

// Subscribe returns a channel receiving the events committed from now on,
// and a function to cancel the subscription.
func (e *Engine) Subscribe(buffer int) (<-chan *types.Event, func()) {
	return e.broker.Subscribe(buffer)
}

// Close closes the event subscriptions.
func (e *Engine) Close() {
	e.broker.Close()
}

func (e *Engine) now() int64 {
	return e.clock.Now().Unix()
}
