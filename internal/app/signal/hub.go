/*
Package signal implements the real-time signaling and room-presence coordinator.

This file defines the Hub, which owns the Registry, the table of open
channels, the Broadcaster and the Relay, and turns channel events into
registry mutations and deliveries. Every event is handled under one mutex, so
a mutation and the roster broadcast it triggers are never interleaved with
another mutation and rosters cannot reach a client out of order.
*/
package signal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"meetsignal/internal/app/meeting"
	"meetsignal/internal/app/participant"
	"meetsignal/internal/pkg/auth/jwt"
	"meetsignal/internal/pkg/logx"
)

// directoryTimeout bounds a meeting lookup made on behalf of a guest event.
const directoryTimeout = 3 * time.Second

// Config wires a Hub to its collaborators.
type Config struct {
	// Directory resolves meeting ids to rooms for guest events. Optional.
	Directory meeting.Directory

	// ICEServers is sent to every channel on connect.
	ICEServers []webrtc.ICEServer

	// EmptyRoomTTL is how long an empty room lingers before Run deletes it; 0 keeps rooms forever.
	EmptyRoomTTL time.Duration
}

// session is the hub's record of one open channel.
type session struct {
	peer      Peer
	identity  *jwt.Payload
	guestName string
}

// Hub coordinates presence and signaling for all rooms of the process.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*session

	registry    *Registry
	broadcaster *Broadcaster
	relay       *Relay

	directory    meeting.Directory
	iceServers   []webrtc.ICEServer
	emptyRoomTTL time.Duration
	now          func() time.Time

	logger zerolog.Logger
}

// NewHub builds a hub around registry.
func NewHub(registry *Registry, cfg Config) *Hub {
	h := &Hub{
		sessions:     make(map[string]*session),
		registry:     registry,
		directory:    cfg.Directory,
		iceServers:   cfg.ICEServers,
		emptyRoomTTL: cfg.EmptyRoomTTL,
		now:          time.Now,
		logger:       logx.Component("hub"),
	}

	h.broadcaster = newBroadcaster(registry, h, h.logger)
	h.relay = newRelay(h, h.broadcaster, h.logger)

	return h
}

// Registry exposes the hub's registry for read-only queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// peer implements peerLookup. Callers hold mu.
func (h *Hub) peer(channelID string) (Peer, bool) {
	s, ok := h.sessions[channelID]
	if !ok {
		return nil, false
	}
	return s.peer, true
}

// Connect registers an open channel and greets it with its channel id and the
// ICE servers. identity is nil for anonymous clients; guestName is the display
// name they offered when connecting, if any.
func (h *Hub) Connect(p Peer, identity *jwt.Payload, guestName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[p.ID()] = &session{
		peer:      p,
		identity:  identity,
		guestName: participant.NormalizeName(guestName, ""),
	}

	welcome := Welcome{ChannelID: p.ID(), ICEServers: h.iceServers}
	if identity != nil {
		welcome.UserID = identity.UserID
		welcome.Name = identity.DisplayName()
	}
	p.Send(Outbound{Event: EventWelcome, Data: welcome})

	h.logger.Debug().
		Str("channel_id", p.ID()).
		Bool("authenticated", identity != nil).
		Int("channels", len(h.sessions)).
		Msg("Channel connected")
}

// Disconnect handles the end of a channel, whether it closed cleanly or the
// network dropped it. The channel's participant is removed from its room and
// the remaining members get the new roster. Repeated calls are no-ops.
func (h *Hub) Disconnect(channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[channelID]; !ok {
		return
	}

	m, bound := h.registry.Detach(channelID)
	if bound {
		removed := h.leaveOwnedLocked(m.RoomID, m.ParticipantID, channelID)
		h.broadcaster.Roster(m.RoomID)
		if removed {
			h.broadcaster.ToRoom(m.RoomID, channelID, Outbound{Event: EventUserLeft, Data: m.ParticipantID})
		}
	}

	delete(h.sessions, channelID)

	h.logger.Debug().
		Str("channel_id", channelID).
		Str("room_id", m.RoomID).
		Int("channels", len(h.sessions)).
		Msg("Channel disconnected")
}

// Dispatch routes one inbound envelope from channelID. Malformed or
// unsupported envelopes are dropped without a reply.
func (h *Hub) Dispatch(ctx context.Context, channelID string, in Inbound) {
	switch {
	case in.Event == EventJoinRoom:
		h.handleJoinRoom(channelID, in)

	case in.Event == EventLeaveRoom:
		h.handleLeaveRoom(channelID, in)

	case in.Event == EventGuestJoined:
		h.handleGuestJoined(ctx, channelID, in.Payload)

	case in.Event == EventGuestLeft:
		h.handleGuestLeft(ctx, channelID, in.Payload)

	case in.Event.IsHandshake():
		h.handleHandshake(channelID, in)

	case in.Event == EventChatMessage:
		h.handleChat(channelID, in)

	case in.Event == EventNameChange:
		h.handleNameChange(channelID, in)

	default:
		h.logger.Debug().
			Str("channel_id", channelID).
			Str("event", string(in.Event)).
			Msg("Ignoring unsupported event")
	}
}

func (h *Hub) handleJoinRoom(channelID string, in Inbound) {
	if in.RoomID == "" || in.ParticipantID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[channelID]
	if !ok {
		return
	}

	p, ok := participant.Resolve(s.identity, in.ParticipantID, s.guestName, channelID, h.now())
	if !ok {
		// An anonymous channel claimed a non-guest id. The room is left as is,
		// but the caller still learns who is there.
		h.logger.Debug().
			Str("channel_id", channelID).
			Str("participant_id", in.ParticipantID).
			Msg("Join refused: anonymous channel claimed a non-guest id")
		h.broadcaster.RosterTo(in.RoomID, channelID)
		return
	}

	h.joinLocked(in.RoomID, p)
}

func (h *Hub) handleLeaveRoom(channelID string, in Inbound) {
	if in.RoomID == "" || in.ParticipantID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[channelID]; !ok {
		return
	}

	h.leaveLocked(in.RoomID, in.ParticipantID, channelID)
}

func (h *Hub) handleGuestJoined(ctx context.Context, channelID string, payload json.RawMessage) {
	var ev GuestEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.MeetingID == "" {
		return
	}

	roomID := h.roomForMeeting(ctx, ev.MeetingID)

	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[channelID]
	if !ok || s.identity != nil {
		return
	}

	name := ev.GuestInfo.Name
	if name == "" {
		name = s.guestName
	}

	p, ok := participant.Guest(ev.GuestInfo.TempID, name, channelID, h.now())
	if !ok {
		return
	}
	s.guestName = p.Name

	h.joinLocked(roomID, p)

	info := ev.GuestInfo
	info.Name, info.TempID, info.IsGuest = p.Name, p.ID, true
	h.broadcaster.ToRoom(roomID, channelID, Outbound{Event: EventGuestJoined, Data: info})
}

func (h *Hub) handleGuestLeft(ctx context.Context, channelID string, payload json.RawMessage) {
	var ev GuestEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.MeetingID == "" || ev.GuestInfo.TempID == "" {
		return
	}

	roomID := h.roomForMeeting(ctx, ev.MeetingID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[channelID]; !ok {
		return
	}

	if h.leaveLocked(roomID, ev.GuestInfo.TempID, channelID) {
		h.broadcaster.ToRoom(roomID, channelID, Outbound{Event: EventGuestLeft, Data: ev.GuestInfo})
	}
}

func (h *Hub) handleHandshake(channelID string, in Inbound) {
	if in.RoomID == "" && in.Target == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[channelID]; !ok {
		return
	}

	h.relay.Forward(channelID, Handshake{
		Type:    in.Event,
		RoomID:  in.RoomID,
		Target:  in.Target,
		Payload: in.Payload,
	})
}

func (h *Hub) handleChat(channelID string, in Inbound) {
	if in.RoomID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[channelID]; !ok {
		return
	}

	h.broadcaster.ToRoom(in.RoomID, "", Outbound{Event: EventChatMessage, Data: in.Payload, From: channelID})
}

// handleNameChange relays the payload to the rest of the room and, when the
// named participant belongs to the sender, renames it in the roster too.
func (h *Hub) handleNameChange(channelID string, in Inbound) {
	if in.RoomID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[channelID]; !ok {
		return
	}

	var change NameChange
	if err := json.Unmarshal(in.Payload, &change); err == nil && change.UserID != "" {
		name := participant.NormalizeName(change.NewName, "")
		if name != "" && h.registry.Rename(in.RoomID, change.UserID, channelID, name) {
			h.broadcaster.Roster(in.RoomID)
		}
	}

	h.broadcaster.ToRoom(in.RoomID, channelID, Outbound{Event: EventNameChange, Data: in.Payload, From: channelID})
}

// joinLocked adds p to roomID on behalf of its channel and broadcasts the
// roster. A channel already bound elsewhere first leaves its previous room,
// since a channel is in at most one room. Callers hold mu.
func (h *Hub) joinLocked(roomID string, p participant.Participant) {
	if prev, ok := h.registry.Binding(p.ChannelID); ok && (prev.RoomID != roomID || prev.ParticipantID != p.ID) {
		h.leaveLocked(prev.RoomID, prev.ParticipantID, p.ChannelID)
	}

	_, added := h.registry.Join(roomID, p)
	if !added {
		// Same id rejoining from the channel that owns it: keep the entry, refresh the name.
		h.registry.Rename(roomID, p.ID, p.ChannelID, p.Name)
	}

	h.registry.Attach(p.ChannelID, roomID, p.ID)
	h.broadcaster.Roster(roomID)

	if added {
		h.broadcaster.ToRoom(roomID, p.ChannelID, Outbound{Event: EventUserJoined, Data: p.ID})
	}

	h.logger.Info().
		Str("room_id", roomID).
		Str("participant_id", p.ID).
		Str("channel_id", p.ChannelID).
		Str("kind", string(p.Kind)).
		Bool("added", added).
		Msg("Participant joined room")
}

// leaveLocked removes participantID from roomID when channelID backs it,
// unsubscribes the channel if it was bound to roomID, and broadcasts the
// roster to the room and the leaving channel. It reports whether an entry was
// removed. Callers hold mu.
func (h *Hub) leaveLocked(roomID, participantID, channelID string) bool {
	if m, ok := h.registry.Binding(channelID); ok && m.RoomID == roomID {
		h.registry.Detach(channelID)
	}

	removed := h.leaveOwnedLocked(roomID, participantID, channelID)
	h.broadcaster.Roster(roomID, channelID)

	if removed {
		h.broadcaster.ToRoom(roomID, channelID, Outbound{Event: EventUserLeft, Data: participantID})
	}

	h.logger.Info().
		Str("room_id", roomID).
		Str("participant_id", participantID).
		Str("channel_id", channelID).
		Bool("removed", removed).
		Msg("Participant left room")

	return removed
}

// leaveOwnedLocked removes participantID only when channelID is its backing
// channel, so a channel that issued a duplicate join for someone else's id
// cannot evict them. Callers hold mu.
func (h *Hub) leaveOwnedLocked(roomID, participantID, channelID string) bool {
	p, ok := h.registry.Lookup(roomID, participantID)
	if !ok || p.ChannelID != channelID {
		return false
	}

	_, removed := h.registry.Leave(roomID, participantID)
	return removed
}

func (h *Hub) roomForMeeting(ctx context.Context, meetingID string) string {
	ctx, cancel := context.WithTimeout(ctx, directoryTimeout)
	defer cancel()

	return meeting.RoomFor(ctx, h.directory, meetingID)
}

// Run deletes long-empty rooms until ctx is done. It returns immediately when
// EmptyRoomTTL is zero.
func (h *Hub) Run(ctx context.Context) {
	if h.emptyRoomTTL <= 0 {
		return
	}

	interval := h.emptyRoomTTL / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.logger.Info().Dur("empty_room_ttl", h.emptyRoomTTL).Msg("Empty room sweeper started")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("Empty room sweeper stopped")
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if removed := h.registry.SweepEmpty(h.emptyRoomTTL); len(removed) > 0 {
		h.logger.Info().Strs("room_ids", removed).Msg("Removed empty rooms")
	}
}

// ChannelCount returns the number of open channels.
func (h *Hub) ChannelCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.sessions)
}

// Shutdown closes every open channel. Each close reports back through Disconnect.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	peers := make([]Peer, 0, len(h.sessions))
	for _, s := range h.sessions {
		peers = append(peers, s.peer)
	}
	h.mu.Unlock()

	h.logger.Info().Int("channels", len(peers)).Msg("Closing all signaling channels")

	for _, p := range peers {
		p.Close()
	}
}
