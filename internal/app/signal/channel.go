/*
Package signal implements the real-time signaling and room-presence coordinator.

This file defines Channel, the WebSocket-backed signaling channel. A Channel
runs two loops: ReadPump decodes client envelopes and hands them to the hub,
WritePump drains the outbound queue and keeps the connection alive with
pings. Whichever loop fails first closes the channel, and the hub is told
exactly once.
*/
package signal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"meetsignal/internal/pkg/logx"
)

const (
	// timeout for a single write to the connection.
	writeWait = 10 * time.Second

	// maximum size in bytes of one client message. SDP offers with many
	// candidates are the largest legitimate payloads.
	maxMessageSize = 64 << 10

	// capacity of the outbound queue.
	sendQueueSize = 256
)

// dispatcher is the part of the hub a channel talks to.
type dispatcher interface {
	Dispatch(ctx context.Context, channelID string, in Inbound)
	Disconnect(channelID string)
}

// Channel is one client's WebSocket signaling connection.
type Channel struct {
	id   string
	hub  dispatcher
	conn *websocket.Conn

	pongWait   time.Duration
	pingPeriod time.Duration

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

// NewChannel wraps an upgraded connection. pongWait is how long the channel
// may stay silent, pongs included, before it is considered dead.
func NewChannel(hub dispatcher, conn *websocket.Conn, id string, pongWait time.Duration) *Channel {
	return &Channel{
		id:         id,
		hub:        hub,
		conn:       conn,
		pongWait:   pongWait,
		pingPeriod: pongWait * 9 / 10,
		send:       make(chan []byte, sendQueueSize),
		done:       make(chan struct{}),
		logger:     logx.Component("channel").With().Str("channel_id", id).Logger(),
	}
}

// ID returns the channel id.
func (c *Channel) ID() string {
	return c.id
}

// Send queues msg for the write loop. It never blocks: a closed channel or a
// full queue drops the message and returns false.
func (c *Channel) Send(msg Outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	b, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(msg.Event)).Msg("Error marshaling outbound message")
		return false
	}

	select {
	case c.send <- b:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Channel send queue full, dropping message")
		return false
	}
}

// Close stops both loops and reports the disconnect to the hub. It is safe to
// call more than once and from any goroutine not holding the hub lock.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.Disconnect(c.id)
		c.logger.Debug().Msg("Channel closed")
	})
}

// ReadPump reads client envelopes until the connection fails or goes quiet
// for longer than pongWait. It closes the channel on return.
func (c *Channel) ReadPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Channel read failed")
			}
			return
		}

		// any traffic proves liveness, not only pongs
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Event == "" {
			c.logger.Warn().Err(err).Int("message_bytes", len(data)).Msg("Client sent malformed envelope")
			continue
		}

		c.hub.Dispatch(ctx, c.id, in)
	}
}

// WritePump drains the send queue to the connection and pings the client
// every pingPeriod. It owns closing the underlying connection.
func (c *Channel) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if !c.write(websocket.TextMessage, msg) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Channel) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing to channel")
		return false
	}

	return true
}
