/*
Package signal implements the real-time signaling and room-presence coordinator.

This file defines the Relay, the stateless router for WebRTC handshake
messages. It never inspects SDP or ICE payloads; the browsers' WebRTC stacks
are the only validators.
*/
package signal

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Handshake is one offer, answer or ICE candidate in flight.
type Handshake struct {
	Type    EventName
	RoomID  string
	Target  string
	Payload json.RawMessage
}

// Relay forwards handshake messages between channels.
type Relay struct {
	peers       peerLookup
	broadcaster *Broadcaster
	logger      zerolog.Logger
}

func newRelay(peers peerLookup, broadcaster *Broadcaster, logger zerolog.Logger) *Relay {
	return &Relay{
		peers:       peers,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "relay").Logger(),
	}
}

// Forward delivers h from channel from. With a target the message goes to that
// channel only; without one it goes to every other channel of the room, the
// legacy two-party flow. Messages for vanished targets are dropped silently.
// It returns the number of channels reached.
func (rl *Relay) Forward(from string, h Handshake) int {
	msg := Outbound{Event: h.Type, Data: h.Payload, From: from}

	if h.Target == "" {
		return rl.broadcaster.ToRoom(h.RoomID, from, msg)
	}

	p, ok := rl.peers.peer(h.Target)
	if !ok {
		rl.logger.Debug().
			Str("from", from).
			Str("target", h.Target).
			Str("event", string(h.Type)).
			Msg("Handshake target is not connected, dropping")
		return 0
	}

	if !p.Send(msg) {
		return 0
	}
	return 1
}
