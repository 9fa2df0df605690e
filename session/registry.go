package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/storage"
	"github.com/vocdoni/ciphervote/types"
)

const (
	// DefaultListLimit is used when ListSessions is called without limit.
	DefaultListLimit = 100
	// MaxListLimit is the maximum number of sessions returned at once.
	MaxListLimit = 1000
)

// CreateSession validates the request and creates a new session owned by
// creator. It returns the new session id.
func (e *Engine) CreateSession(ctx context.Context, creator common.Address, req *types.SessionRequest) (uint64, error) {
	if req == nil {
		return 0, fmt.Errorf("%w: empty request", ErrInvalidOptions)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	start, err := e.validateRequest(req, now)
	if err != nil {
		log.Debugw("session request rejected", "creator", creator.Hex(), "error", err.Error())
		return 0, err
	}
	nonce, err := e.stg.CreatorNonce(creator)
	if err != nil {
		return 0, fmt.Errorf("cannot read creator nonce: %w", err)
	}
	if req.Nonce != nonce {
		log.Debugw("session request replayed or out of order", "creator", creator.Hex(), "nonce", req.Nonce, "expected", nonce)
		return 0, fmt.Errorf("%w: got %d, expected %d", ErrInvalidNonce, req.Nonce, nonce)
	}
	zero, err := e.envelope.Zero()
	if err != nil {
		return 0, fmt.Errorf("cannot compute zero accumulator: %w", err)
	}
	sess := &types.Session{
		Title:       req.Title,
		Description: req.Description,
		Creator:     creator,
		Options:     append([]types.Option(nil), req.Options...),
		StartTime:   start,
		EndTime:     start + int64(req.Duration),
	}
	stored, event, err := e.stg.CreateSession(sess, zero, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("cannot store session: %w", err)
	}
	sessionsCreated.Inc()
	e.broker.Publish(event)
	log.Infow("session created",
		"sessionId", stored.ID,
		"creator", creator.Hex(),
		"options", len(stored.Options),
		"start", stored.Start().Format(time.RFC3339),
		"end", stored.End().Format(time.RFC3339))
	return stored.ID, nil
}

// CreatorNonce returns the nonce the next session request signed by creator
// must carry.
func (e *Engine) CreatorNonce(creator common.Address) (uint64, error) {
	return e.stg.CreatorNonce(creator)
}

// validateRequest checks the request against the engine limits and returns
// the start time of the session.
func (e *Engine) validateRequest(req *types.SessionRequest, now time.Time) (int64, error) {
	if len(req.Options) < 2 {
		return 0, fmt.Errorf("%w: at least 2 options required, got %d", ErrInvalidOptions, len(req.Options))
	}
	if len(req.Options) > e.cfg.MaxOptions {
		return 0, fmt.Errorf("%w: at most %d options allowed, got %d", ErrInvalidOptions, e.cfg.MaxOptions, len(req.Options))
	}
	for i, opt := range req.Options {
		if opt.Name == "" {
			return 0, fmt.Errorf("%w: option %d has no name", ErrInvalidOptions, i)
		}
	}
	maxSeconds := uint64(e.cfg.MaxDuration / time.Second)
	if req.Duration == 0 || req.Duration > maxSeconds {
		return 0, fmt.Errorf("%w: %d seconds not in (0, %d]", ErrInvalidDuration, req.Duration, maxSeconds)
	}
	start := now.Unix()
	if req.StartTime != 0 {
		if req.StartTime < start {
			return 0, fmt.Errorf("%w: %d is in the past", ErrInvalidStartTime, req.StartTime)
		}
		if req.StartTime > start+int64(e.cfg.MaxStartDelay/time.Second) {
			return 0, fmt.Errorf("%w: %d is too far in the future", ErrInvalidStartTime, req.StartTime)
		}
		start = req.StartTime
	}
	return start, nil
}

// GetSession returns the session with its state derived at the current time.
func (e *Engine) GetSession(id uint64) (*types.SessionInfo, error) {
	sess, err := e.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Info(e.State(sess)), nil
}

// ListSessions returns up to limit sessions by ascending id, skipping the
// first offset ones.
func (e *Engine) ListSessions(offset, limit int) ([]*types.SessionInfo, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	sessions, err := e.stg.ListSessions()
	if err != nil {
		return nil, err
	}
	list := []*types.SessionInfo{}
	if offset < 0 || offset >= len(sessions) {
		return list, nil
	}
	for _, sess := range sessions[offset:min(offset+limit, len(sessions))] {
		list = append(list, sess.Info(e.State(sess)))
	}
	return list, nil
}

// UnfinalizedSessions returns the ids of the sessions whose results are not
// published yet, whatever their state.
func (e *Engine) UnfinalizedSessions() ([]uint64, error) {
	sessions, err := e.stg.ListSessions()
	if err != nil {
		return nil, err
	}
	ids := []uint64{}
	for _, sess := range sessions {
		if !sess.Finalized {
			ids = append(ids, sess.ID)
		}
	}
	return ids, nil
}

// session loads a session mapping the storage not found error.
func (e *Engine) session(id uint64) (*types.Session, error) {
	sess, err := e.stg.Session(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, err
	}
	return sess, nil
}
