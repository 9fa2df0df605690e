package storage

import (
	"fmt"

	"github.com/vocdoni/ciphervote/types"
)

// PublishResults stores the results of a session, marks the session as
// finalized and appends the results-published event, atomically. Results
// can only be published once, a second call returns ErrAlreadyExists.
func (s *Storage) PublishResults(res *types.Results) (*types.Event, error) {
	if res == nil {
		return nil, fmt.Errorf("nil results")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	sess, err := s.Session(res.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return nil, fmt.Errorf("results of session %d: %w", res.SessionID, ErrAlreadyExists)
	}
	if len(res.Counts) != len(sess.Options) {
		return nil, fmt.Errorf("got %d counts for %d options", len(res.Counts), len(sess.Options))
	}
	sess.Finalized = true
	event := &types.Event{
		Type:      types.EventResultsPublished,
		SessionID: res.SessionID,
		Time:      res.PublishedAt,
		Counts:    append([]uint64(nil), res.Counts...),
	}

	wTx := s.db.WriteTx()
	err = func() error {
		if err := setArtifact(wTx, resultsPrefix, uint64Key(res.SessionID), res); err != nil {
			return fmt.Errorf("set results: %w", err)
		}
		if err := setArtifact(wTx, sessionPrefix, uint64Key(res.SessionID), sess); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		return s.appendEvent(wTx, event)
	}()
	if err := commit(wTx, err); err != nil {
		return nil, err
	}
	return event, nil
}

// Results returns the published results of a session or ErrNotFound if
// they have not been published. The returned value must not be modified.
func (s *Storage) Results(sessionID uint64) (*types.Results, error) {
	if res, ok := s.results.Get(sessionID); ok {
		return res, nil
	}
	res := &types.Results{}
	if err := s.getArtifact(s.db, resultsPrefix, uint64Key(sessionID), res); err != nil {
		return nil, err
	}
	s.results.Add(sessionID, res)
	return res, nil
}
