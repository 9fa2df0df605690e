package storage

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// CreateSession assigns the next session id to sess and stores it, together
// with one accumulator per option set to zero and the session-created event.
// The creation nonce of the creator is increased in the same transaction.
// The stored session is returned with its id set.
func (s *Storage) CreateSession(sess *types.Session, zero []byte, now int64) (*types.Session, *types.Event, error) {
	if sess == nil {
		return nil, nil, fmt.Errorf("nil session")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	last, err := s.counter(s.db, sessionCounterKey)
	if err != nil {
		return nil, nil, err
	}
	nonce, err := s.creatorNonce(s.db, sess.Creator)
	if err != nil {
		return nil, nil, err
	}
	stored := *sess
	stored.ID = last + 1
	stored.TotalVotes = 0
	stored.Finalized = false

	creator := stored.Creator
	event := &types.Event{
		Type:      types.EventSessionCreated,
		SessionID: stored.ID,
		Time:      now,
		Creator:   &creator,
		Title:     stored.Title,
	}

	wTx := s.db.WriteTx()
	err = func() error {
		if err := setArtifact(wTx, sessionPrefix, uint64Key(stored.ID), &stored); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		accTx := prefixeddb.NewPrefixedWriteTx(wTx, accumulatorPrefix)
		for i := range stored.Options {
			if err := accTx.Set(accumulatorKey(stored.ID, i), zero); err != nil {
				return fmt.Errorf("set accumulator %d: %w", i, err)
			}
		}
		if err := setCounter(wTx, sessionCounterKey, stored.ID); err != nil {
			return err
		}
		if err := prefixeddb.NewPrefixedWriteTx(wTx, noncePrefix).Set(creator.Bytes(), uint64Key(nonce+1)); err != nil {
			return fmt.Errorf("set creator nonce: %w", err)
		}
		return s.appendEvent(wTx, event)
	}()
	if err := commit(wTx, err); err != nil {
		return nil, nil, err
	}
	return &stored, event, nil
}

// CreatorNonce returns the nonce the next session request of creator must
// carry, which is the number of sessions it created so far.
func (s *Storage) CreatorNonce(creator common.Address) (uint64, error) {
	return s.creatorNonce(s.db, creator)
}

func (s *Storage) creatorNonce(r db.Reader, creator common.Address) (uint64, error) {
	data, err := prefixeddb.NewPrefixedReader(r, noncePrefix).Get(creator.Bytes())
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted nonce of %s", creator.Hex())
	}
	return binary.BigEndian.Uint64(data), nil
}

// Session returns the stored session or ErrNotFound.
func (s *Storage) Session(id uint64) (*types.Session, error) {
	sess := &types.Session{}
	if err := s.getArtifact(s.db, sessionPrefix, uint64Key(id), sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SessionCount returns the number of sessions created, which is also the
// last assigned id.
func (s *Storage) SessionCount() (uint64, error) {
	return s.counter(s.db, sessionCounterKey)
}

// ListSessions returns the sessions sorted by ascending id.
func (s *Storage) ListSessions() ([]*types.Session, error) {
	var (
		sessions []*types.Session
		decErr   error
	)
	if err := prefixeddb.NewPrefixedReader(s.db, sessionPrefix).Iterate(nil, func(_, v []byte) bool {
		sess := &types.Session{}
		if decErr = decodeArtifact(v, sess); decErr != nil {
			return false
		}
		sessions = append(sessions, sess)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	if decErr != nil {
		return nil, decErr
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

// Accumulator returns the encrypted accumulator of one option.
func (s *Storage) Accumulator(sessionID uint64, option int) ([]byte, error) {
	return s.accumulator(s.db, sessionID, option)
}

func (s *Storage) accumulator(r db.Reader, sessionID uint64, option int) ([]byte, error) {
	data, err := prefixeddb.NewPrefixedReader(r, accumulatorPrefix).Get(accumulatorKey(sessionID, option))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// Accumulators returns the accumulators of all the options of a session, in
// option order, read from a single snapshot of the committed state.
func (s *Storage) Accumulators(sessionID uint64) ([][]byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	accs := make([][]byte, len(sess.Options))
	for i := range accs {
		if accs[i], err = s.accumulator(s.db, sessionID, i); err != nil {
			return nil, fmt.Errorf("accumulator %d: %w", i, err)
		}
	}
	return accs, nil
}
