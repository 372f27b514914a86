/*
Package backendtest is an in-process stand-in for the hosted backend platform.

This file defines the feed hub: the fan-out core behind the realtime
websocket endpoint. It tracks subscribers, broadcasts row-insert events to
every subscriber watching the affected table, and owns subscriber lifecycles
through register/unregister channels so the run loop is the only goroutine
touching the subscriber set.
*/
package backendtest

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"supachat/internal/pkg/logx"
)

const (
	// timeout duration for writing to a subscriber connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for client traffic before a read times out.
	// Clients ping periodically, which resets the deadline.
	readWait = 70 * time.Second

	// capacity of a subscriber's outbound queue.
	subscriberQueueSize = 64

	// capacity of the hub's broadcast queue.
	broadcastQueueSize = 256
)

// insertEvent is one row-insert notification fanned out to subscribers.
type insertEvent struct {
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record"`
}

// wireFrame is the JSON envelope of every realtime frame on the wire.
type wireFrame struct {
	Type   string          `json:"type"`
	Table  string          `json:"table,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
}

// subscriber is one websocket connection subscribed to inserts on one table.
type subscriber struct {
	conn  *websocket.Conn
	table string

	// send queues outbound frames for the write pump.
	send chan []byte

	logger zerolog.Logger
}

// feedHub fans insert events out to the current subscribers.
type feedHub struct {
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan insertEvent
	stop       chan struct{}

	subscribers map[*subscriber]struct{}
	logger      zerolog.Logger
}

// newFeedHub constructs a hub and starts its run loop.
func newFeedHub() *feedHub {
	h := &feedHub{
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		broadcast:   make(chan insertEvent, broadcastQueueSize),
		stop:        make(chan struct{}),
		subscribers: make(map[*subscriber]struct{}),
		logger:      logx.Logger().With().Str("component", "backendtest.hub").Logger(),
	}

	go h.run()

	return h
}

// run is the hub's event loop. Registration, deregistration, and broadcast
// all funnel through here, so the subscriber set needs no lock.
func (h *feedHub) run() {
	defer func() {
		for sub := range h.subscribers {
			close(sub.send)
		}
		h.subscribers = nil
		h.logger.Info().Msg("Feed hub stopped")
	}()

	for {
		select {
		case sub := <-h.register:
			h.subscribers[sub] = struct{}{}
			h.logger.Debug().Str("table", sub.table).Int("subscribers", len(h.subscribers)).Msg("Subscriber registered")

		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
			}

		case event := <-h.broadcast:
			frame, err := json.Marshal(wireFrame{Type: "insert", Table: event.Table, Record: event.Record})
			if err != nil {
				h.logger.Error().Err(err).Msg("Failed to encode insert event")
				continue
			}

			for sub := range h.subscribers {
				if sub.table != event.Table {
					continue
				}

				select {
				case sub.send <- frame:
				default:
					h.logger.Warn().Msg("Subscriber queue full, dropping event for it")
				}
			}

		case <-h.stop:
			return
		}
	}
}

// publish queues an insert event for fan-out. The record must already be
// JSON-encoded in the row's response shape.
func (h *feedHub) publish(table string, record json.RawMessage) {
	select {
	case h.broadcast <- insertEvent{Table: table, Record: record}:
	default:
		h.logger.Warn().Str("table", table).Msg("Broadcast queue full, dropping insert event")
	}
}

// shutdown terminates the run loop and closes every subscriber queue.
func (h *feedHub) shutdown() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}

// writePump writes queued frames to the subscriber connection until the queue
// closes, then sends a close frame.
func (s *subscriber) writePump() {
	defer s.conn.Close()

	for frame := range s.send {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to set write deadline")
			return
		}

		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to write frame to subscriber")
			return
		}
	}

	deadline := time.Now().Add(writeWait)
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, closeMsg, deadline)
}

// readPump consumes client frames until the connection drops. Its only job is
// to process control frames (pings reset the read deadline) and to notice the
// close, at which point the subscriber is unregistered.
func (s *subscriber) readPump(h *feedHub) {
	defer func() {
		select {
		case h.unregister <- s:
		case <-h.stop:
		}
		s.conn.Close()
	}()

	if err := s.conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		return
	}

	s.conn.SetPingHandler(func(appData string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			return err
		}
		deadline := time.Now().Add(writeWait)
		return s.conn.WriteControl(websocket.PongMessage, []byte(appData), deadline)
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
