package storage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var votedFlag = []byte{1}

// HasVoted reports whether the voter already has an accepted ballot in the
// session.
func (s *Storage) HasVoted(sessionID uint64, voter common.Address) (bool, error) {
	return s.hasVoted(s.db, sessionID, voter)
}

func (s *Storage) hasVoted(r db.Reader, sessionID uint64, voter common.Address) (bool, error) {
	_, err := prefixeddb.NewPrefixedReader(r, voterPrefix).Get(voterKey(sessionID, voter))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CommitBallot applies an accepted ballot: the accumulator of the option is
// replaced by acc, the voter is flagged, the session vote counter is
// incremented and the ballot-accepted event appended. All or nothing. It
// returns ErrAlreadyExists if the voter was already flagged.
func (s *Storage) CommitBallot(sessionID uint64, voter common.Address, option int, acc []byte, now int64) (*types.Session, *types.Event, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if option < 0 || option >= len(sess.Options) {
		return nil, nil, fmt.Errorf("option %d out of range", option)
	}
	voted, err := s.hasVoted(s.db, sessionID, voter)
	if err != nil {
		return nil, nil, err
	}
	if voted {
		return nil, nil, fmt.Errorf("voter %s: %w", voter.Hex(), ErrAlreadyExists)
	}
	sess.TotalVotes++
	v := voter
	event := &types.Event{
		Type:      types.EventBallotAccepted,
		SessionID: sessionID,
		Time:      now,
		Voter:     &v,
	}

	wTx := s.db.WriteTx()
	err = func() error {
		if err := prefixeddb.NewPrefixedWriteTx(wTx, accumulatorPrefix).Set(accumulatorKey(sessionID, option), acc); err != nil {
			return fmt.Errorf("set accumulator: %w", err)
		}
		if err := prefixeddb.NewPrefixedWriteTx(wTx, voterPrefix).Set(voterKey(sessionID, voter), votedFlag); err != nil {
			return fmt.Errorf("set voter: %w", err)
		}
		if err := setArtifact(wTx, sessionPrefix, uint64Key(sessionID), sess); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		return s.appendEvent(wTx, event)
	}()
	if err := commit(wTx, err); err != nil {
		return nil, nil, err
	}
	return sess, event, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrKeyNotFound)
}
