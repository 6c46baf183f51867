/*
Package signal implements the real-time signaling and room-presence coordinator.

This file defines the Broadcaster, which pushes full roster snapshots and
room-wide notifications to every channel subscribed to a room. Delivery is
fire-and-forget: a channel whose queue is full or already closed just misses
the message, and the next roster broadcast heals its view.
*/
package signal

import (
	"slices"

	"github.com/rs/zerolog"
)

// Peer is the coordinator's handle on one signaling channel.
type Peer interface {
	// ID returns the channel identifier assigned on connect.
	ID() string

	// Send queues msg without blocking and reports whether it was accepted.
	Send(msg Outbound) bool

	// Close tears the channel down; the transport then reports the disconnect.
	Close()
}

// peerLookup resolves channel ids to live peers.
type peerLookup interface {
	peer(channelID string) (Peer, bool)
}

// Broadcaster fans messages out to the channels of a room.
type Broadcaster struct {
	registry *Registry
	peers    peerLookup
	logger   zerolog.Logger
}

func newBroadcaster(registry *Registry, peers peerLookup, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		peers:    peers,
		logger:   logger.With().Str("component", "broadcaster").Logger(),
	}
}

// Roster sends the room's complete roster as participants-updated to every
// subscribed channel and to any extra channels (the actor of a leave, which
// is no longer subscribed). It returns the number of channels reached.
func (b *Broadcaster) Roster(roomID string, extra ...string) int {
	msg := b.rosterMessage(roomID)

	targets := b.registry.ChannelsIn(roomID)
	for _, id := range extra {
		if id != "" && !slices.Contains(targets, id) {
			targets = append(targets, id)
		}
	}

	return b.deliver(roomID, targets, msg)
}

// RosterTo sends the room's roster to channelID alone, leaving the room's
// members untouched. It answers a join that changed nothing.
func (b *Broadcaster) RosterTo(roomID, channelID string) int {
	return b.deliver(roomID, []string{channelID}, b.rosterMessage(roomID))
}

func (b *Broadcaster) rosterMessage(roomID string) Outbound {
	return Outbound{
		Event: EventParticipantsUpdated,
		Data:  rosterEntries(b.registry.RosterOf(roomID)),
	}
}

// ToRoom sends msg to every channel subscribed to roomID except the one named by except.
func (b *Broadcaster) ToRoom(roomID, except string, msg Outbound) int {
	targets := slices.DeleteFunc(b.registry.ChannelsIn(roomID), func(id string) bool {
		return id == except
	})

	return b.deliver(roomID, targets, msg)
}

func (b *Broadcaster) deliver(roomID string, targets []string, msg Outbound) int {
	sent := 0
	for _, id := range targets {
		p, ok := b.peers.peer(id)
		if !ok {
			continue
		}
		if p.Send(msg) {
			sent++
			continue
		}
		b.logger.Debug().
			Str("room_id", roomID).
			Str("channel_id", id).
			Str("event", string(msg.Event)).
			Msg("Dropped message for unavailable channel")
	}

	return sent
}
