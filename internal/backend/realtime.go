/*
Package backend is the client for the hosted backend-as-a-service platform.

This file covers the realtime surface: a long-lived websocket channel
delivering row-insert notifications without polling. One Subscription maps to
one websocket connection; the caller owns its lifecycle and must Close it, or
the connection and its read goroutine leak.
*/
package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"supachat/internal/app/user"
)

const (
	// timeout duration for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for a Pong message from the backend.
	pongWait = 60 * time.Second

	// frequency at which the client sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the backend.
	maxFrameSize = 16384

	// how long to wait for the backend to acknowledge a subscribe frame.
	subscribeAckWait = 10 * time.Second

	// capacity of the event delivery channel.
	eventQueueSize = 256
)

// Realtime frame types exchanged over the websocket.
const (
	frameSubscribe  = "subscribe"
	frameSubscribed = "subscribed"
	frameInsert     = "insert"
)

// realtimeFrame is the JSON envelope of every realtime websocket frame.
type realtimeFrame struct {
	Type   string          `json:"type"`
	Table  string          `json:"table,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
}

// Subscription is an open realtime channel filtered to insert events on one
// table. Inserted rows arrive on Events in delivery order; the channel is
// closed when the subscription is closed or the connection drops.
type Subscription struct {
	conn   *websocket.Conn
	table  string
	events chan user.Message
	logger zerolog.Logger

	closeOnce sync.Once
}

// SubscribeInserts opens a websocket connection to the realtime endpoint and
// subscribes to insert events on the given table. It blocks until the backend
// acknowledges the subscription, so an insert performed after this call
// returns is guaranteed to be delivered.
func (c *Client) SubscribeInserts(ctx context.Context, table string) (*Subscription, error) {
	wsURL := c.realtimeURL()

	header := http.Header{}
	header.Set("apikey", c.anonKey)
	if token := c.AccessToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, res, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if res != nil {
			res.Body.Close()
		}
		return nil, err
	}

	sub := &Subscription{
		conn:   conn,
		table:  table,
		events: make(chan user.Message, eventQueueSize),
		logger: c.logger.With().Str("component", "realtime").Str("table", table).Logger(),
	}

	if err := sub.handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	go sub.readPump()
	go sub.pingLoop()

	sub.logger.Info().Msg("Realtime subscription established")

	return sub, nil
}

// realtimeURL derives the websocket endpoint from the backend base URL.
func (c *Client) realtimeURL() string {
	wsBase := c.baseURL
	if strings.HasPrefix(wsBase, "https://") {
		wsBase = "wss://" + strings.TrimPrefix(wsBase, "https://")
	} else if strings.HasPrefix(wsBase, "http://") {
		wsBase = "ws://" + strings.TrimPrefix(wsBase, "http://")
	}
	return wsBase + c.realtimePath + "?apikey=" + c.anonKey
}

// handshake sends the subscribe frame and waits for the acknowledgment.
func (s *Subscription) handshake() error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	subscribeMsg := realtimeFrame{Type: frameSubscribe, Table: s.table}
	if err := s.conn.WriteJSON(subscribeMsg); err != nil {
		return err
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(subscribeAckWait)); err != nil {
		return err
	}

	var ack realtimeFrame
	if err := s.conn.ReadJSON(&ack); err != nil {
		return err
	}

	if ack.Type != frameSubscribed || ack.Table != s.table {
		return &statusError{Status: http.StatusBadGateway, Message: "unexpected realtime handshake frame: " + ack.Type}
	}

	return nil
}

// Events returns the channel delivering inserted rows. The channel is closed
// when the subscription ends; a receiver must treat a closed channel as the
// end of the stream, not as an error.
func (s *Subscription) Events() <-chan user.Message {
	return s.events
}

// readPump reads frames from the websocket until the connection closes,
// delivering insert events to the Events channel. Events are appended
// verbatim: no deduplication by id is performed, so a duplicate delivery
// (e.g. after a reconnect) shows up as a duplicate row downstream.
func (s *Subscription) readPump() {
	defer close(s.events)

	s.conn.SetReadLimit(maxFrameSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame realtimeFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Realtime connection closed unexpectedly")
			}
			return
		}

		if frame.Type != frameInsert || frame.Table != s.table {
			s.logger.Debug().Str("frame_type", frame.Type).Msg("Ignoring non-insert realtime frame")
			continue
		}

		var msg user.Message
		if err := json.Unmarshal(frame.Record, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Backend sent an insert record that does not decode")
			continue
		}

		select {
		case s.events <- msg:
		default:
			s.logger.Warn().Int("queue_len", len(s.events)).Msg("Event queue full, dropping insert event")
		}
	}
}

// pingLoop keeps the connection alive by sending periodic Ping control frames.
// It exits when a write fails, which happens once the connection is closed.
func (s *Subscription) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		deadline := time.Now().Add(writeWait)
		if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			return
		}
	}
}

// Close releases the subscription. It sends a close frame on a best-effort
// basis and closes the underlying connection, which terminates the read pump
// and closes the Events channel. Close is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := s.conn.WriteControl(websocket.CloseMessage, closeMsg, deadline); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to send websocket close frame")
		}

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Websocket connection close error")
		}

		s.logger.Info().Msg("Realtime subscription released")
	})
}
