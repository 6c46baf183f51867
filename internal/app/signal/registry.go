/*
Package signal implements the real-time signaling and room-presence coordinator.

This file defines the Registry, the single source of truth for who is in
which room. It holds, per room, the ordered participant roster and the set of
channels subscribed to the room, plus the channel -> {room, participant} side
table used to clean up after a channel disappears without leaving.
*/
package signal

import (
	"slices"
	"sync"
	"time"

	"meetsignal/internal/app/participant"
)

// Membership records which room a channel is in and which participant it joined as.
type Membership struct {
	RoomID        string
	ParticipantID string
}

// room is one registry entry. participants keeps join order; channels keeps
// subscription order so broadcasts are deterministic.
type room struct {
	participants []participant.Participant
	channels     []string

	// emptySince is the moment the room lost its last participant and channel;
	// zero while the room is occupied.
	emptySince time.Time
}

func (rm *room) isEmpty() bool {
	return len(rm.participants) == 0 && len(rm.channels) == 0
}

func (rm *room) indexOf(participantID string) int {
	return slices.IndexFunc(rm.participants, func(p participant.Participant) bool {
		return p.ID == participantID
	})
}

// Registry maps room ids to rosters. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	bindings map[string]Membership
	now      func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*room),
		bindings: make(map[string]Membership),
		now:      time.Now,
	}
}

// roomLocked returns the entry for roomID, creating it on first use. Callers hold mu.
func (r *Registry) roomLocked(roomID string) *room {
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{}
		r.rooms[roomID] = rm
	}
	return rm
}

// markLocked refreshes emptySince after a mutation. Callers hold mu.
func (r *Registry) markLocked(rm *room) {
	switch {
	case !rm.isEmpty():
		rm.emptySince = time.Time{}
	case rm.emptySince.IsZero():
		rm.emptySince = r.now()
	}
}

// Join appends p to the room's roster unless a participant with the same id is
// already present, in which case the roster is left untouched. The room is
// created on first use. It returns the resulting roster and whether p was added.
func (r *Registry) Join(roomID string, p participant.Participant) ([]participant.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.roomLocked(roomID)

	added := false
	if rm.indexOf(p.ID) < 0 {
		rm.participants = append(rm.participants, p)
		added = true
	}

	r.markLocked(rm)

	return slices.Clone(rm.participants), added
}

// Leave removes the participant with participantID from the room. Removing an
// absent participant, or leaving an unknown room, is a silent no-op. The room
// entry is kept even when it becomes empty.
func (r *Registry) Leave(roomID, participantID string) ([]participant.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return []participant.Participant{}, false
	}

	i := rm.indexOf(participantID)
	if i < 0 {
		return slices.Clone(rm.participants), false
	}

	rm.participants = slices.Delete(rm.participants, i, i+1)
	r.markLocked(rm)

	return slices.Clone(rm.participants), true
}

// RosterOf returns a snapshot of the room's roster in join order. Unknown rooms
// yield an empty, non-nil slice.
func (r *Registry) RosterOf(roomID string) []participant.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok || len(rm.participants) == 0 {
		return []participant.Participant{}
	}

	return slices.Clone(rm.participants)
}

// Lookup returns the participant with participantID in roomID.
func (r *Registry) Lookup(roomID, participantID string) (participant.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return participant.Participant{}, false
	}

	i := rm.indexOf(participantID)
	if i < 0 {
		return participant.Participant{}, false
	}

	return rm.participants[i], true
}

// Rename changes the display name of a participant, but only when it is backed
// by channelID. It reports whether the roster changed.
func (r *Registry) Rename(roomID, participantID, channelID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	i := rm.indexOf(participantID)
	if i < 0 || rm.participants[i].ChannelID != channelID || rm.participants[i].Name == name {
		return false
	}

	rm.participants[i].Name = name
	return true
}

// Exists reports whether the registry has an entry for roomID, empty or not.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID]
	return ok
}

// Attach subscribes channelID to roomID and records it as participantID in the
// side table, replacing any previous binding of the channel.
func (r *Registry) Attach(channelID, roomID, participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.bindings[channelID]; ok && prev.RoomID != roomID {
		r.unsubscribeLocked(channelID, prev.RoomID)
	}

	rm := r.roomLocked(roomID)
	if !slices.Contains(rm.channels, channelID) {
		rm.channels = append(rm.channels, channelID)
	}
	r.markLocked(rm)

	r.bindings[channelID] = Membership{RoomID: roomID, ParticipantID: participantID}
}

// Detach removes channelID from its room and clears its side-table entry,
// returning the binding it had.
func (r *Registry) Detach(channelID string) (Membership, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.bindings[channelID]
	if !ok {
		return Membership{}, false
	}

	delete(r.bindings, channelID)
	r.unsubscribeLocked(channelID, m.RoomID)

	return m, true
}

// Binding returns the side-table entry for channelID.
func (r *Registry) Binding(channelID string) (Membership, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.bindings[channelID]
	return m, ok
}

func (r *Registry) unsubscribeLocked(channelID, roomID string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}

	if i := slices.Index(rm.channels, channelID); i >= 0 {
		rm.channels = slices.Delete(rm.channels, i, i+1)
	}
	r.markLocked(rm)
}

// ChannelsIn returns the channels subscribed to roomID in subscription order.
func (r *Registry) ChannelsIn(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	return slices.Clone(rm.channels)
}

// SweepEmpty deletes rooms that have had no participants and no channels for
// at least ttl, returning their ids. A non-positive ttl disables sweeping.
func (r *Registry) SweepEmpty(ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)

	var removed []string
	for id, rm := range r.rooms {
		if rm.isEmpty() && !rm.emptySince.IsZero() && !rm.emptySince.After(cutoff) {
			delete(r.rooms, id)
			removed = append(removed, id)
		}
	}

	return removed
}

// RoomCount returns the number of room entries, including empty ones.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
