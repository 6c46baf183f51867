/*
Package participant defines the single presence record shared by
authenticated users and anonymous guests.

Both classes are normalized into Participant here, so the room registry and
the presence broadcaster never branch on participant kind.
*/
package participant

import (
	"strings"
	"time"
	"unicode/utf8"

	"meetsignal/internal/pkg/auth/jwt"
	"meetsignal/internal/pkg/randx"
)

// Kind tells authenticated users and guests apart for display purposes.
type Kind string

const (
	KindAuthenticated Kind = "authenticated"
	KindGuest         Kind = "guest"
)

const (
	// DefaultGuestName is used when a guest supplies no display name.
	DefaultGuestName = "Guest"

	// MaxNameLength bounds display names, in runes.
	MaxNameLength = 64
)

// Participant is one entry of a room roster.
type Participant struct {
	ID        string
	Name      string
	Kind      Kind
	ChannelID string
}

// IsGuest reports whether p is an anonymous guest.
func (p Participant) IsGuest() bool {
	return p.Kind == KindGuest
}

// Authenticated builds the participant for a verified identity.
func Authenticated(identity *jwt.Payload, channelID string) Participant {
	return Participant{
		ID:        identity.UserID,
		Name:      NormalizeName(identity.DisplayName(), identity.UserID),
		Kind:      KindAuthenticated,
		ChannelID: channelID,
	}
}

// Guest builds a guest participant. An empty id yields a freshly generated one;
// a non-empty id must already be in the guest namespace.
func Guest(id, name, channelID string, now time.Time) (Participant, bool) {
	if id == "" {
		generated, err := randx.GuestID(now)
		if err != nil {
			return Participant{}, false
		}
		id = generated
	}

	if !randx.IsGuestID(id) {
		return Participant{}, false
	}

	return Participant{
		ID:        id,
		Name:      NormalizeName(name, DefaultGuestName),
		Kind:      KindGuest,
		ChannelID: channelID,
	}, true
}

// Resolve is the unification rule for a join request carrying participantID.
//
// An authenticated channel always joins as its token's user, whatever
// participantID says. An anonymous channel may only claim ids in the guest
// namespace, so it can never impersonate a real user; the returned bool is
// false when it tries.
func Resolve(identity *jwt.Payload, participantID, guestName, channelID string, now time.Time) (Participant, bool) {
	if identity != nil {
		return Authenticated(identity, channelID), true
	}

	if participantID == "" {
		return Participant{}, false
	}

	return Guest(participantID, guestName, channelID, now)
}

// NormalizeName trims name, truncates it to MaxNameLength runes and falls back when empty.
func NormalizeName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}

	return name
}
