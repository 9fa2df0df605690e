package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/storage"
	"github.com/vocdoni/ciphervote/types"
)

// Finalize asks the verifier to decrypt the accumulators of an ended session
// and publishes the attested counts. Anyone may trigger it; the outcome only
// depends on the verifier decryption.
func (e *Engine) Finalize(ctx context.Context, sessionID uint64) (*types.Results, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	switch state := e.State(sess); state {
	case types.StateFinalized:
		return nil, fmt.Errorf("%w: %d", ErrAlreadyFinalized, sessionID)
	case types.StatePending, types.StateActive:
		return nil, fmt.Errorf("%w: session %d is %s", ErrSessionNotEnded, sessionID, state)
	}

	accumulators, err := e.stg.Accumulators(sessionID)
	if err != nil {
		return nil, fmt.Errorf("cannot read accumulators: %w", err)
	}
	res, err := e.gateway.AuthorizeFinalization(ctx, sessionID, accumulators)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, ErrUnauthorized) {
			err = fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		log.Warnw("finalization not authorized", "sessionId", sessionID, "error", err.Error())
		return nil, err
	}
	if err := checkResults(sess, res); err != nil {
		log.Warnw("finalization not authorized", "sessionId", sessionID, "error", err.Error())
		return nil, err
	}
	res.PublishedAt = e.now()

	event, err := e.stg.PublishResults(res)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %d", ErrAlreadyFinalized, sessionID)
		}
		return nil, fmt.Errorf("cannot publish results: %w", err)
	}
	sessionsFinalized.Inc()
	e.broker.Publish(event)
	log.Infow("results published", "sessionId", sessionID, "counts", res.Counts, "verifier", res.Verifier.Hex())
	return res, nil
}

// checkResults ensures the attested counts belong to the session and account
// for every accepted ballot.
func checkResults(sess *types.Session, res *types.Results) error {
	if res == nil {
		return fmt.Errorf("%w: no results", ErrUnauthorized)
	}
	if res.SessionID != sess.ID {
		return fmt.Errorf("%w: results for session %d", ErrUnauthorized, res.SessionID)
	}
	if len(res.Counts) != len(sess.Options) {
		return fmt.Errorf("%w: %d counts for %d options", ErrUnauthorized, len(res.Counts), len(sess.Options))
	}
	var total uint64
	for _, c := range res.Counts {
		total += c
	}
	if total != sess.TotalVotes {
		return fmt.Errorf("%w: counts add up to %d, %d ballots accepted", ErrUnauthorized, total, sess.TotalVotes)
	}
	return nil
}

// GetResults returns the published results of a finalized session.
func (e *Engine) GetResults(sessionID uint64) (*types.Results, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Finalized {
		return nil, fmt.Errorf("%w: %d", ErrNotFinalized, sessionID)
	}
	res, err := e.stg.Results(sessionID)
	if err != nil {
		return nil, fmt.Errorf("cannot read results: %w", err)
	}
	return res, nil
}

// EndedSessions returns the ids of the sessions that have ended and are
// waiting to be finalized.
func (e *Engine) EndedSessions() ([]uint64, error) {
	sessions, err := e.stg.ListSessions()
	if err != nil {
		return nil, err
	}
	ids := []uint64{}
	for _, sess := range sessions {
		if e.State(sess) == types.StateEnded {
			ids = append(ids, sess.ID)
		}
	}
	return ids, nil
}
