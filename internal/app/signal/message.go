/*
Package signal implements the real-time signaling and room-presence coordinator.

This file defines the wire envelopes exchanged over a signaling channel. Only
the event name is interpreted; handshake and chat payloads stay opaque
json.RawMessage values and are forwarded byte for byte.
*/
package signal

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"meetsignal/internal/app/participant"
)

// EventName is the discriminator of a signaling envelope.
type EventName string

// Client to server.
const (
	EventJoinRoom    EventName = "join-room"
	EventLeaveRoom   EventName = "leave-room"
	EventGuestJoined EventName = "guest-joined"
	EventGuestLeft   EventName = "guest-left"
	EventChatMessage EventName = "chat-message"
	EventNameChange  EventName = "name-change"
)

// Handshake events, relayed peer to peer.
const (
	EventOffer        EventName = "offer"
	EventAnswer       EventName = "answer"
	EventICECandidate EventName = "ice-candidate"
)

// Server to client.
const (
	EventWelcome             EventName = "welcome"
	EventParticipantsUpdated EventName = "participants-updated"
	EventUserJoined          EventName = "user-joined"
	EventUserLeft            EventName = "user-left"
)

// IsHandshake reports whether e is one of the WebRTC handshake events.
func (e EventName) IsHandshake() bool {
	return e == EventOffer || e == EventAnswer || e == EventICECandidate
}

// Inbound is an envelope received from a client.
type Inbound struct {
	Event         EventName       `json:"event"`
	RoomID        string          `json:"roomId,omitempty"`
	ParticipantID string          `json:"participantId,omitempty"`
	Target        string          `json:"target,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Outbound is an envelope sent to a client. From carries the sender's channel
// id on relayed messages so the recipient knows where to reply.
type Outbound struct {
	Event EventName `json:"event"`
	Data  any       `json:"data,omitempty"`
	From  string    `json:"from,omitempty"`
}

// RosterEntry is the wire form of a participant in participants-updated.
type RosterEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsGuest   bool   `json:"isGuest"`
	ChannelID string `json:"channelId"`
}

// rosterEntries converts a roster snapshot, always returning a non-nil slice
// so an empty room is sent as [] rather than omitted.
func rosterEntries(roster []participant.Participant) []RosterEntry {
	out := make([]RosterEntry, 0, len(roster))
	for _, p := range roster {
		out = append(out, RosterEntry{
			ID:        p.ID,
			Name:      p.Name,
			IsGuest:   p.IsGuest(),
			ChannelID: p.ChannelID,
		})
	}
	return out
}

// GuestInfo describes a guest in guest-joined / guest-left.
type GuestInfo struct {
	Name     string `json:"name"`
	IsGuest  bool   `json:"isGuest"`
	JoinedAt string `json:"joinedAt,omitempty"`
	TempID   string `json:"tempId"`
}

// GuestEvent is the payload of guest-joined and guest-left.
type GuestEvent struct {
	MeetingID string    `json:"meetingId"`
	GuestInfo GuestInfo `json:"guestInfo"`
}

// NameChange is the payload of name-change.
type NameChange struct {
	UserID  string `json:"userId"`
	NewName string `json:"newName"`
}

// Welcome is sent once when a channel opens.
type Welcome struct {
	ChannelID  string             `json:"channelId"`
	UserID     string             `json:"userId,omitempty"`
	Name       string             `json:"name,omitempty"`
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}
