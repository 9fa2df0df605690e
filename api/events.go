package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/session"
	"github.com/vocdoni/ciphervote/types"
)

const (
	// streamBuffer is the number of committed events a stream subscription
	// can hold before the stream falls back to the stored log.
	streamBuffer = 64
	// streamWriteTimeout bounds the time to write one event to a stream.
	streamWriteTimeout = 10 * time.Second
)

// events returns the event log starting at the "from" sequence number
// GET /events
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	from, err := queryUint(r, "from")
	if err != nil {
		ErrMalformedURLParameter.Withf("from: %v", err).Write(w)
		return
	}
	limit, err := queryUint(r, "limit")
	if err != nil {
		ErrMalformedURLParameter.Withf("limit: %v", err).Write(w)
		return
	}
	if limit == 0 {
		limit = session.DefaultListLimit
	}
	events, err := a.engine.Events(from, int(min(limit, session.MaxListLimit)))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	last, err := a.engine.LastEventSeq()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httpWriteJSON(w, &EventList{Events: events, Last: last})
}

// eventsStream upgrades the connection to a websocket and writes, as JSON
// messages, every event from the "from" sequence number on. Stored events
// are written first, then each committed event as it is published
// GET /events/stream
func (a *API) eventsStream(w http.ResponseWriter, r *http.Request) {
	from, err := queryUint(r, "from")
	if err != nil {
		ErrMalformedURLParameter.Withf("from: %v", err).Write(w)
		return
	}
	// subscribe before reading the log, so no event is missed in between
	published, cancel := a.engine.Subscribe(streamBuffer)
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warnw("cannot accept event stream", "error", err.Error())
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")
	// nothing is read from the client, CloseRead handles its control frames
	ctx := conn.CloseRead(r.Context())

	next := max(from, 1)
	if err := a.streamStored(ctx, conn, &next); err != nil {
		log.Debugw("event stream closed", "error", err.Error())
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-published:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "service stopped")
				return
			}
			if event.Seq < next {
				continue
			}
			// the published event is already stored, reading the log also
			// recovers the events dropped if the subscription fell behind
			if err := a.streamStored(ctx, conn, &next); err != nil {
				log.Debugw("event stream closed", "error", err.Error())
				return
			}
		}
	}
}

// streamStored writes the stored events from *next on and advances it past
// the last written one.
func (a *API) streamStored(ctx context.Context, conn *websocket.Conn, next *uint64) error {
	for {
		events, err := a.engine.Events(*next, session.MaxListLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for _, event := range events {
			if err := writeEvent(ctx, conn, event); err != nil {
				return err
			}
			*next = event.Seq + 1
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, event *types.Event) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, event)
}
