package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/storage"
	"github.com/vocdoni/ciphervote/types"
)

// CastBallot verifies the encrypted ballot of voter for the option and, if
// valid, folds it into the accumulator of that option. The choice is never
// stored nor logged in plaintext beyond the option slot the ciphertext is
// added to. Either the ballot is fully accepted or nothing changes.
func (e *Engine) CastBallot(ctx context.Context, sessionID uint64, voter common.Address, optionIndex int, ciphertext, proof []byte) error {
	err := e.castBallot(ctx, sessionID, voter, optionIndex, ciphertext, proof)
	if err != nil {
		category := Classify(err)
		ballotsRejected.WithLabelValues(string(category)).Inc()
		if category == CategoryTrust {
			log.Warnw("untrusted ballot rejected", "sessionId", sessionID, "voter", voter.Hex(), "error", err.Error())
		} else {
			log.Debugw("ballot rejected", "sessionId", sessionID, "voter", voter.Hex(), "error", err.Error())
		}
		return err
	}
	return nil
}

func (e *Engine) castBallot(ctx context.Context, sessionID uint64, voter common.Address, optionIndex int, ciphertext, proof []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.session(sessionID)
	if err != nil {
		return err
	}
	if state := e.State(sess); state != types.StateActive {
		return fmt.Errorf("%w: session %d is %s", ErrSessionNotActive, sessionID, state)
	}
	if optionIndex < 0 || optionIndex >= len(sess.Options) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidOption, optionIndex, len(sess.Options))
	}
	voted, err := e.stg.HasVoted(sessionID, voter)
	if err != nil {
		return err
	}
	if voted {
		return fmt.Errorf("%w: %s in session %d", ErrAlreadyVoted, voter.Hex(), sessionID)
	}
	if sess.TotalVotes >= e.cfg.MaxVotesPerSession {
		return fmt.Errorf("%w: %d ballots", ErrVoteLimitReached, sess.TotalVotes)
	}

	validated, err := e.gateway.ValidateBallot(ctx, &types.Ballot{
		SessionID:   sessionID,
		Voter:       voter,
		OptionIndex: optionIndex,
		OptionCount: len(sess.Options),
		Ciphertext:  ciphertext,
		Proof:       proof,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.Is(err, ErrInvalidBallotProof) {
			err = fmt.Errorf("%w: %v", ErrInvalidBallotProof, err)
		}
		return err
	}
	// the verification may be slow, the window is checked again with the
	// clock at commit time
	if state := e.State(sess); state != types.StateActive {
		return fmt.Errorf("%w: session %d is %s", ErrSessionNotActive, sessionID, state)
	}

	acc, err := e.stg.Accumulator(sessionID, optionIndex)
	if err != nil {
		return fmt.Errorf("cannot read accumulator: %w", err)
	}
	acc, err = e.envelope.Add(acc, validated)
	if err != nil {
		return fmt.Errorf("%w: cannot accumulate: %v", ErrInvalidBallotProof, err)
	}
	updated, event, err := e.stg.CommitBallot(sessionID, voter, optionIndex, acc, e.now())
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("%w: %s in session %d", ErrAlreadyVoted, voter.Hex(), sessionID)
		}
		return fmt.Errorf("cannot commit ballot: %w", err)
	}
	ballotsAccepted.Inc()
	e.broker.Publish(event)
	log.Infow("ballot accepted", "sessionId", sessionID, "voter", voter.Hex(), "totalVotes", updated.TotalVotes)
	return nil
}
