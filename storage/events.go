package storage

import (
	"fmt"

	"github.com/vocdoni/ciphervote/types"
	"go.vocdoni.io/dvote/db"
)

// appendEvent assigns the next sequence number to the event and writes it as
// part of wTx. Must be called with globalLock held.
func (s *Storage) appendEvent(wTx db.WriteTx, event *types.Event) error {
	last, err := s.counter(s.db, eventCounterKey)
	if err != nil {
		return err
	}
	event.Seq = last + 1
	if err := setArtifact(wTx, eventPrefix, uint64Key(event.Seq), event); err != nil {
		return fmt.Errorf("set event: %w", err)
	}
	return setCounter(wTx, eventCounterKey, event.Seq)
}

// LastEventSeq returns the sequence number of the last appended event.
func (s *Storage) LastEventSeq() (uint64, error) {
	return s.counter(s.db, eventCounterKey)
}

// Events returns up to limit events with sequence number >= from, in order.
func (s *Storage) Events(from uint64, limit int) ([]*types.Event, error) {
	if from == 0 {
		from = 1
	}
	last, err := s.LastEventSeq()
	if err != nil {
		return nil, err
	}
	events := []*types.Event{}
	for seq := from; seq <= last && len(events) < limit; seq++ {
		event := &types.Event{}
		if err := s.getArtifact(s.db, eventPrefix, uint64Key(seq), event); err != nil {
			return nil, fmt.Errorf("event %d: %w", seq, err)
		}
		events = append(events, event)
	}
	return events, nil
}
