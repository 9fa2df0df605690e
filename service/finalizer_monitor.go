package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/session"
	"github.com/vocdoni/ciphervote/types"
)

// Finalizer is the part of the session engine the monitor needs.
type Finalizer interface {
	EndedSessions() ([]uint64, error)
	Finalize(ctx context.Context, sessionID uint64) (*types.Results, error)
}

// FinalizerMonitor represents a service that periodically finalizes the
// sessions whose voting window is over. Finalization is permissionless, the
// monitor only saves users from triggering it.
type FinalizerMonitor struct {
	engine   Finalizer
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewFinalizerMonitor creates a new FinalizerMonitor service.
func NewFinalizerMonitor(engine Finalizer, interval time.Duration) *FinalizerMonitor {
	return &FinalizerMonitor{
		engine:   engine,
		interval: interval,
	}
}

// Start begins monitoring for ended sessions. It returns an error if the
// service is already running.
func (fm *FinalizerMonitor) Start(ctx context.Context) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if fm.interval <= 0 {
		return fmt.Errorf("invalid finalize interval %s", fm.interval)
	}
	ctx, fm.cancel = context.WithCancel(ctx)
	fm.done = make(chan struct{})
	go fm.monitorSessions(ctx, fm.done)
	return nil
}

// Stop halts the monitoring service and waits for the running round.
func (fm *FinalizerMonitor) Stop() {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.cancel != nil {
		fm.cancel()
		<-fm.done
		fm.cancel = nil
	}
}

func (fm *FinalizerMonitor) monitorSessions(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(fm.interval)
	defer ticker.Stop()
	for {
		fm.FinalizeEnded(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// FinalizeEnded finalizes every ended session once and returns how many
// were finalized.
func (fm *FinalizerMonitor) FinalizeEnded(ctx context.Context) int {
	ids, err := fm.engine.EndedSessions()
	if err != nil {
		log.Warnw("cannot list ended sessions", "error", err.Error())
		return 0
	}
	finalized := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return finalized
		}
		res, err := fm.engine.Finalize(ctx, id)
		switch {
		case err == nil:
			finalized++
			log.Debugw("session finalized by monitor", "sessionId", id, "counts", res.Counts)
		case errors.Is(err, session.ErrAlreadyFinalized):
			// finalized by someone else meanwhile
		default:
			log.Warnw("cannot finalize session", "sessionId", id, "error", err.Error())
		}
	}
	return finalized
}
